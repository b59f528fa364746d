package dri2

// exchange swaps the identities of the two buffers' current surfaces: the
// backing objects trade places and so do the client-visible names. No pixel
// data moves. After a flip this is what makes the old front buffer the new
// render target and vice versa.
func (e *Engine) exchange(d Drawable, a, b *Buffer) {
	e.alloc.Exchange(a.surfaceFor(d), b.surfaceFor(d))
	a.Name, b.Name = b.Name, a.Name
}

// SwapComplete finalizes a swap command. The outer event loop calls it once
// per hardware completion event; the command finalizes when the last
// expected event arrives. Synchronous paths (blits, failed or fake flips,
// platforms without flip events) reach here directly from ScheduleSwap with
// no events expected.
//
// Finalization runs exactly once per command: the buffer identities are
// exchanged and the back ring rotated (for a genuine flip), the requester is
// notified, the scanout is rebound to what is now being displayed, and every
// reference the command held is released, whether or not the flip failed
// and whether or not the drawable still exists.
func (e *Engine) SwapComplete(cmd *SwapCommand) {
	cmd.events--
	if cmd.events > 0 {
		return
	}

	// Capture the objects currently backing both buffers before any
	// rotation below changes what "current" means; these carry the
	// allocator references taken at schedule time.
	oldSrc := cmd.src.object()
	oldDst := cmd.dst.object()

	// The drawable may have been destroyed while the flip was in flight.
	// Cleanup below still runs; only the client-visible effects are
	// skipped.
	if d := e.lookup(cmd.drawID); d != nil {
		Logger().Debug("swap complete", "kind", cmd.kind, "failed", cmd.failed,
			"src", cmd.src.Attachment, "dst", cmd.dst.Attachment)

		// Fake and failed flips moved no pixels, so the buffers keep
		// their identities.
		realFlip := cmd.kind == SwapFlip && !cmd.fakeFlip && !cmd.failed

		if realFlip {
			e.exchange(d, cmd.src, cmd.dst)

			// What was the front buffer is the back buffer now; rotate
			// its ring so the client's next render target is a fresh
			// surface, and refresh its name.
			if cmd.src.Attachment == AttachBack {
				e.advance(d, cmd.src)
			}
		}

		// Notified even for failed commands: the requester must never
		// be left waiting for a swap that will not happen.
		if cmd.done != nil {
			cmd.done(cmd.drawID, cmd.kind, 0, 0, cmd.data)
		}

		if realFlip {
			// The destination now holds what the controller is
			// displaying; future mode sets must reference it.
			e.mode.SetScanout(cmd.dst.object())
		}
	}

	// Drop the protective buffer references obtained at schedule time.
	// Either of these may be the last reference if the client detached
	// the drawable mid-flight.
	e.DestroyBuffer(cmd.src)
	e.DestroyBuffer(cmd.dst)

	oldSrc.Unreference()
	oldDst.Unreference()

	e.pendingFlips--
	e.stats.Completed++
}
