package dri2

// allocRingSlot allocates one additional back buffer surface for the ring.
// Additional buffers are only ever allocated while flipping, so the surface
// must end up with a scanout binding; failing that is treated the same as
// failing the allocation itself.
func (e *Engine) allocRingSlot(d Drawable) (Surface, uint32, error) {
	log := Logger()

	surf, err := e.newSurface(d)
	if err != nil {
		return nil, 0, ErrBufferAlloc
	}

	bo := surf.Object()
	if bo == nil {
		log.Warn("attempting to wrap a surface with no buffer object backing")
		e.alloc.Destroy(surf)
		return nil, 0, ErrNoBacking
	}

	e.alloc.RegisterExternal(surf)

	if bo.ScanoutID() == 0 {
		if err := bo.AddScanout(); err != nil {
			log.Error("could not add scanout binding to additional back buffer", "err", err)
			e.alloc.DeregisterExternal(surf)
			e.alloc.Destroy(surf)
			return nil, 0, err
		}
	}

	return surf, bo.Name(), nil
}

// advance rotates a back buffer's ring to the next slot, preparing the
// client's next render target after a flip.
//
// An empty target slot is populated lazily. If that allocation fails, the
// ring degrades: the index reverts to the previous slot and the ring is
// shortened permanently to the buffering depth actually achieved. The depth
// is opportunistic: the engine always attempts the configured depth once,
// then settles for what allocation pressure allows rather than retrying
// every swap.
//
// With double buffering (or any capacity-1 ring, including all front
// buffers) there is nothing to rotate and advance is a no-op.
func (e *Engine) advance(d Drawable, b *Buffer) {
	if e.cfg.BufferCount <= 2 {
		return
	}

	b.current++
	b.current %= len(b.ring)

	if s := b.ring[b.current]; s != nil {
		// Slot already populated from an earlier rotation; just refresh
		// the client-visible name.
		b.Name = s.Object().Name()
		return
	}

	surf, name, err := e.allocRingSlot(d)
	if err != nil {
		// Cannot have failed on slot 0: that one was allocated at
		// CreateBuffer time. Fall back to the previous slot for good.
		b.current--
		Logger().Warn("buffering degraded by allocation failure",
			"requested", len(b.ring)+1,
			"achieved", b.current+2)
		b.ring = b.ring[:b.current+1]
		e.stats.Degradations++
		return
	}

	b.ring[b.current] = surf
	b.Name = name
}
