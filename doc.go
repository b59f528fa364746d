// Package dri2 implements the buffer lifecycle and swap scheduling core of
// a DRI2 display driver.
//
// # Overview
//
// dri2 decides how many backing surfaces a drawable gets, whether a swap is
// realized as a hardware page flip or a software copy, and how asynchronous
// completion of that operation is sequenced and reported back to the
// requester. It owns three intertwined concerns:
//
//   - a reference-counted lifetime model for GPU-backed surfaces that may be
//     destroyed by the client while a kernel-driven flip is still in flight
//   - a lazily-populated ring of backing surfaces per attachment point,
//     which degrades to fewer buffers under allocation pressure
//   - a per-swap flip-versus-blit decision based on current scanout
//     capability, window state and surface geometry
//
// # Quick Start
//
//	import "github.com/gogpu/dri2"
//
//	eng := dri2.New(dri2.Config{BufferCount: 3}, alloc, mode, blit, lookup)
//	if err := eng.Init(1, 4); err != nil {
//	    // DRI2 core too old
//	}
//
//	front, err := eng.CreateBuffer(win, dri2.AttachFront, format)
//	back, err := eng.CreateBuffer(win, dri2.AttachBack, format)
//
//	eng.ScheduleSwap(win, front, back, onSwapDone, nil)
//
//	eng.Close() // drains outstanding flips
//
// # Collaborators
//
// Surface allocation, mode setting, the blit primitive and drawable lookup
// are external concerns supplied through the SurfaceAllocator, ModeSetter,
// Blitter and DrawableLookup contracts. The softpix subpackage provides an
// in-memory implementation of all of them, suitable for tests and for
// software-only operation.
//
// # Concurrency
//
// The engine is single-threaded: every operation runs to
// completion on the caller's goroutine. "Asynchronous" completion of a flip
// means the outer event loop delivers the kernel event by calling
// SwapComplete later, from the same goroutine that called ScheduleSwap.
// There is no locking inside the engine and no cancellation of a dispatched
// swap; a command can only be marked failed at dispatch time.
package dri2
