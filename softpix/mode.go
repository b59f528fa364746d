package softpix

import (
	"image"

	"github.com/gogpu/dri2"
	xdraw "golang.org/x/image/draw"
)

// Mode is a software mode-setting layer with a queued completion-event
// model. It implements dri2.ModeSetter.
//
// A flip enqueues one completion event per flipped controller; the outer
// event loop (or a test) drains them with WaitForEvent, which dispatches
// each event to the bound engine's SwapComplete. Setting FlipEvents to
// false models platforms whose flips complete synchronously.
type Mode struct {
	// FlipEvents reports flip completions as discrete queued events.
	FlipEvents bool

	// VBlank enables vblank counter queries.
	VBlank bool

	// CRTCs is the number of display controllers that will accept a
	// flip for any drawable. 0 makes every flip a fake flip.
	CRTCs int

	// FlipErr, when set, makes the next PageFlip fail with this error.
	// FailPending is the number of completion events that will still
	// arrive for controllers flipped before the failure.
	FlipErr     error
	FailPending int

	engine  *dri2.Engine
	queue   []*dri2.SwapCommand
	scanout dri2.BufferObject
	msc     uint64
	flips   int
}

// NewMode creates a mode-setter modeling one controller with discrete flip
// events and vblank support.
func NewMode() *Mode {
	return &Mode{FlipEvents: true, VBlank: true, CRTCs: 1}
}

// Bind points the mode-setter at the engine whose SwapComplete receives
// drained events. Must be called before any flip is scheduled.
func (m *Mode) Bind(e *dri2.Engine) { m.engine = e }

// PageFlip queues a flip of the drawable to the given scanout binding.
func (m *Mode) PageFlip(d dri2.Drawable, scanoutID uint32, cmd *dri2.SwapCommand) (int, error) {
	if m.FlipErr != nil {
		err := m.FlipErr
		m.FlipErr = nil
		for i := 0; i < m.FailPending; i++ {
			m.queue = append(m.queue, cmd)
		}
		dri2.Logger().Debug("softpix: injected flip failure", "drawable", d.ID(), "pending", m.FailPending)
		return m.FailPending, err
	}

	m.flips++
	if m.FlipEvents {
		for i := 0; i < m.CRTCs; i++ {
			m.queue = append(m.queue, cmd)
		}
	}
	return m.CRTCs, nil
}

// UsesFlipEvents reports whether completions arrive as queued events.
func (m *Mode) UsesFlipEvents() bool { return m.FlipEvents }

// SupportsVBlank reports whether vblank queries are available.
func (m *Mode) SupportsVBlank() bool { return m.VBlank }

// WaitVBlank advances the software vblank counter and returns it, with a
// timestamp modeling a 60Hz refresh.
func (m *Mode) WaitVBlank() (ust, msc uint64, err error) {
	m.msc++
	return m.msc * 16667, m.msc, nil
}

// WaitForEvent dispatches one queued completion event to the bound engine.
func (m *Mode) WaitForEvent() error {
	if len(m.queue) == 0 {
		return ErrNoEvents
	}
	cmd := m.queue[0]
	m.queue = m.queue[1:]
	m.engine.SwapComplete(cmd)
	return nil
}

// SetScanout records the object the controller is displaying.
func (m *Mode) SetScanout(bo dri2.BufferObject) { m.scanout = bo }

// Scanout returns the object last handed to SetScanout.
func (m *Mode) Scanout() dri2.BufferObject { return m.scanout }

// PendingEvents returns the number of undelivered completion events.
func (m *Mode) PendingEvents() int { return len(m.queue) }

// Flips returns the number of accepted page flips.
func (m *Mode) Flips() int { return m.flips }

// Blitter is a software copy engine over image.RGBA, using x/image/draw
// for the copy primitive. It implements dri2.Blitter.
type Blitter struct {
	copies int
}

// NewBlitter creates a software blitter.
func NewBlitter() *Blitter { return &Blitter{} }

// CopyArea copies the (0,0)-(width,height) area from src to dst, clipped to
// region and to both surfaces' bounds.
func (b *Blitter) CopyArea(src, dst dri2.Surface, clip []image.Rectangle, width, height int) {
	sp := src.(*Surface)
	dp := dst.(*Surface)

	area := image.Rect(0, 0, width, height)
	for _, r := range clip {
		r = r.Intersect(area).Intersect(dp.obj.img.Bounds()).Intersect(sp.obj.img.Bounds())
		if r.Empty() {
			continue
		}
		xdraw.Draw(dp.obj.img, r, sp.obj.img, r.Min, xdraw.Src)
	}
	b.copies++
}

// Copies returns the number of CopyArea calls performed.
func (b *Blitter) Copies() int { return b.copies }
