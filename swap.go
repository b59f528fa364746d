package dri2

import "image"

// SwapKind classifies how a swap was realized.
type SwapKind uint32

const (
	// SwapExchange is a pure buffer identity exchange. Unused by this
	// engine today but part of the protocol vocabulary.
	SwapExchange SwapKind = iota

	// SwapBlit is a software copy from source to destination.
	SwapBlit

	// SwapFlip is a hardware page flip.
	SwapFlip
)

// String returns the swap kind name.
func (k SwapKind) String() string {
	switch k {
	case SwapExchange:
		return "exchange"
	case SwapBlit:
		return "blit"
	case SwapFlip:
		return "flip"
	}
	return "unknown"
}

// SwapCommand tracks one outstanding swap request from dispatch to its
// exactly-once completion.
//
// The command holds a protective reference on both of its buffers and an
// allocator-level reference on both of their current objects for its whole
// lifetime; all four are released in SwapComplete when the last expected
// completion event arrives. The drawable is recorded by id, not by handle:
// the client may destroy it while the flip is in flight.
type SwapCommand struct {
	kind     SwapKind
	drawID   uint32
	src, dst *Buffer

	// events is the number of hardware completion events still expected.
	// Zero means the command completes within the scheduling call.
	events int

	// failed marks a flip the kernel rejected at dispatch time. A
	// command can never fail mid-flight.
	failed bool

	// fakeFlip marks a flip that succeeded trivially because no display
	// controller was scanning out the drawable; completion is
	// synthesized locally and no buffer exchange happens.
	fakeFlip bool

	done SwapFunc
	data any
}

// Kind returns how the swap was (or will be) realized.
func (c *SwapCommand) Kind() SwapKind { return c.kind }

// ScheduleSwap swaps src into dst for the drawable, as a page flip when the
// hardware allows it and as an immediate blit otherwise.
//
// Flip eligibility requires the drawable to be flippable, both current
// backing objects to hold a scanout binding, and both to have identical
// dimensions. The geometry condition matters right after a mode change: the
// back buffer still has the old size, and flipping to it would display a
// corrupted frame, so that one frame is blitted (clipping the contents as
// expected) until the client picks up a correctly sized buffer.
//
// ScheduleSwap returns nil once a command has been created and dispatched,
// even if the dispatched flip failed; in that case the command completes
// synchronously, marked failed, and the requester is still notified. A
// non-nil error means no command was dispatched and no notification will
// ever arrive.
func (e *Engine) ScheduleSwap(d Drawable, dst, src *Buffer, done SwapFunc, data any) error {
	log := Logger()

	cmd := &SwapCommand{
		drawID: d.ID(),
		src:    src,
		dst:    dst,
		done:   done,
		data:   data,
	}

	log.Debug("schedule swap", "drawable", cmd.drawID, "src", src.Attachment, "dst", dst.Attachment)

	// Obtain extra references on the buffers so they cannot go away while
	// we await the page flip event. pendingFlips is raised speculatively
	// here and dropped again in SwapComplete regardless of the kind the
	// command ends up with.
	e.ReferenceBuffer(src)
	e.ReferenceBuffer(dst)
	e.pendingFlips++

	srcBO := src.object()
	dstBO := dst.object()
	if srcBO == nil || dstBO == nil {
		e.pendingFlips--
		e.DestroyBuffer(src)
		e.DestroyBuffer(dst)
		return ErrNoBacking
	}

	srcScanout := srcBO.ScanoutID()
	dstScanout := dstBO.ScanoutID()

	srcBO.Reference()
	dstBO.Reference()

	doFlip := srcScanout != 0 && dstScanout != 0 && e.flippable(d)

	srcExt := srcBO.Extent()
	dstExt := dstBO.Extent()
	doFlip = doFlip && srcExt.Width == dstExt.Width && srcExt.Height == dstExt.Height

	if doFlip {
		log.Debug("can flip", "src", srcScanout, "dst", dstScanout)
		cmd.kind = SwapFlip
		e.stats.Flips++

		// Clients sometimes ask to destroy buffers before they have
		// finished reading from them, so released surfaces are not
		// freed immediately. Scheduling a swap is a reliable indication
		// that the client is done with the previous scene, so process
		// all pending deletions now.
		e.alloc.FlushDeletions()

		pending, err := e.mode.PageFlip(d, srcScanout, cmd)
		if err != nil {
			cmd.failed = true
			e.stats.FailedFlips++

			if e.mode.UsesFlipEvents() {
				cmd.events = pending
			} else {
				cmd.events = 0
			}

			log.Warn("page flip failed", "drawable", cmd.drawID, "pending", cmd.events, "err", err)

			if cmd.events == 0 {
				e.SwapComplete(cmd)
			}
			return nil
		}

		if pending == 0 {
			cmd.fakeFlip = true
			e.stats.FakeFlips++
		}

		if e.mode.UsesFlipEvents() {
			cmd.events = pending
		} else {
			// Flips are known synchronous on this platform; complete
			// unconditionally.
			cmd.events = 0
		}

		if cmd.events == 0 {
			e.SwapComplete(cmd)
		}
		return nil
	}

	// Fall back to a blit of the full drawable area, completing within
	// this call.
	ext := d.Extent()
	region := []image.Rectangle{image.Rect(0, 0, int(ext.Width), int(ext.Height))}
	e.CopyRegion(d, region, dst, src)
	cmd.kind = SwapBlit
	e.stats.Blits++
	e.SwapComplete(cmd)
	return nil
}

// CopyRegion copies the drawable-sized area from the source buffer's
// current surface to the destination buffer's, clipped to region. Front
// buffers resolve to the drawable's own live surface.
func (e *Engine) CopyRegion(d Drawable, region []image.Rectangle, dst, src *Buffer) {
	srcSurf := src.surfaceFor(d)
	dstSurf := dst.surfaceFor(d)

	ext := d.Extent()
	e.blit.CopyArea(srcSurf, dstSurf, region, int(ext.Width), int(ext.Height))
}
