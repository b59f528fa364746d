package dri2

// ReuseBufferNotify is called when the protocol glue is about to hand a
// previously created buffer back to the client.
//
// Its job is to keep the scanout binding in step with the drawable's
// flip eligibility. A back buffer created while its window was unmapped has
// no binding; if the window has since been mapped, one is needed before any
// flip can happen. Conversely, a window that became unflippable no longer
// needs its binding, and scanout memory is too scarce to hold it
// speculatively.
//
// At most one binding attempt is made per eligibility window: a failed
// attempt is not retried until the drawable transitions through ineligible
// and back, which keeps the engine polite under scanout-memory pressure.
func (e *Engine) ReuseBufferNotify(d Drawable, b *Buffer) {
	if b.Attachment == AttachFront {
		return
	}

	bo := b.ring[0].Object()
	bound := bo.ScanoutID()
	flippable := e.flippable(d)

	// Unflippable-to-flippable transition: the window is flippable, no
	// binding exists, and none has been attempted since the window became
	// eligible. Typically CreateBuffer ran before the window was mapped.
	if flippable && !b.attemptedScanout && bound == 0 {
		if err := bo.AddScanout(); err != nil {
			Logger().Warn("scanout binding on reuse failed", "drawable", d.ID(), "err", err)
		}
		b.attemptedScanout = true
	}

	// Flippable-to-unflippable transition: release the binding and reset
	// the attempt flag so a future re-mapping gets a fresh attempt.
	if !flippable && bound != 0 {
		b.attemptedScanout = false
		bo.RemoveScanout()
	}
}
