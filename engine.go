package dri2

// Config carries the driver options the engine cares about.
type Config struct {
	// BufferCount is the total configured buffering depth, including the
	// front buffer. 2 is classic double buffering; higher values enable
	// a ring of BufferCount-1 back buffers. Values below 2 are treated
	// as 2.
	BufferCount int

	// DisableFlips disables page flipping entirely (user option); every
	// swap becomes a blit.
	DisableFlips bool

	// DriverName and DeviceName identify the driver to the DRI2 core.
	DriverName string
	DeviceName string
}

// Stats are cumulative engine counters. They are maintained without
// synchronization; read them from the engine's own event loop.
type Stats struct {
	// Flips counts swaps dispatched as page flips, including fake and
	// failed ones.
	Flips uint64

	// Blits counts swaps realized as software copies.
	Blits uint64

	// FakeFlips counts flips that completed trivially because no
	// controller was scanning out the drawable.
	FakeFlips uint64

	// FailedFlips counts flips the kernel rejected at dispatch time.
	FailedFlips uint64

	// Degradations counts permanent ring-depth reductions forced by
	// allocation failure.
	Degradations uint64

	// Completed counts swap commands that reached completion.
	Completed uint64

	// PendingFlips is the number of swap commands currently awaiting
	// completion.
	PendingFlips int
}

// Engine is the buffer lifecycle and swap scheduling core. Create one with
// New, gate it on the DRI2 core version with Init, and drain it with Close
// before tearing down any collaborator state.
//
// The engine is not safe for concurrent use; see the package documentation
// for the single-threaded event model.
type Engine struct {
	cfg    Config
	alloc  SurfaceAllocator
	mode   ModeSetter
	blit   Blitter
	lookup DrawableLookup

	initialized bool

	// pendingFlips counts outstanding swap commands. Teardown blocks on
	// it reaching zero so no completion can fire after engine state is
	// gone.
	pendingFlips int

	stats Stats
}

// New creates an engine wired to its collaborators. The engine must be
// initialized with Init before use.
func New(cfg Config, alloc SurfaceAllocator, mode ModeSetter, blit Blitter, lookup DrawableLookup) *Engine {
	if cfg.BufferCount < 2 {
		cfg.BufferCount = 2
	}
	return &Engine{
		cfg:    cfg,
		alloc:  alloc,
		mode:   mode,
		blit:   blit,
		lookup: lookup,
	}
}

// Init registers the engine against a DRI2 core of the given version.
// Versions before 1.1 lack the reuse notification this engine depends on
// and are rejected with ErrVersion.
func (e *Engine) Init(coreMajor, coreMinor int) error {
	if coreMajor < 1 || (coreMajor == 1 && coreMinor < 1) {
		Logger().Warn("DRI2 core too old", "major", coreMajor, "minor", coreMinor)
		return ErrVersion
	}
	if e.alloc == nil || e.mode == nil || e.blit == nil || e.lookup == nil {
		return ErrNotInitialized
	}
	e.initialized = true
	Logger().Debug("engine initialized", "driver", e.cfg.DriverName, "buffers", e.cfg.BufferCount)
	return nil
}

// Close drains all outstanding swap commands by driving the hardware event
// source, then deregisters the engine. It must be called before any
// collaborator state the completions touch is torn down.
func (e *Engine) Close() {
	log := Logger()
	for e.pendingFlips > 0 {
		log.Debug("waiting for pending flips", "pending", e.pendingFlips)
		if err := e.mode.WaitForEvent(); err != nil {
			// Without events there is no way to make progress; the
			// remaining commands can never complete.
			log.Error("event drain failed during teardown", "err", err)
			break
		}
	}
	e.initialized = false
}

// FrameCount returns the drawable's current frame counter value and its
// timestamp in microseconds, from the display controller's vblank counter.
// Hardware without vblank queries reports ErrUnsupported.
func (e *Engine) FrameCount(d Drawable) (ust, msc uint64, err error) {
	if !e.mode.SupportsVBlank() {
		return 0, 0, ErrUnsupported
	}
	ust, msc, err = e.mode.WaitVBlank()
	if err != nil {
		Logger().Error("vblank counter query failed", "err", err)
		return 0, 0, err
	}
	return ust, msc, nil
}

// ScheduleWaitMSC would block the client until the drawable reaches a
// target frame count. It is not implemented by this engine.
func (e *Engine) ScheduleWaitMSC(d Drawable, target, divisor, remainder uint64) error {
	Logger().Error("wait-for-msc not implemented")
	return ErrUnsupported
}

// PendingFlips returns the number of swap commands awaiting completion.
func (e *Engine) PendingFlips() int {
	return e.pendingFlips
}

// Stats returns a snapshot of the engine's cumulative counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.PendingFlips = e.pendingFlips
	return s
}
