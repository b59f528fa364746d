package dri2

import "github.com/gogpu/gputypes"

// Attachment identifies the client-visible role of a buffer.
type Attachment uint32

const (
	// AttachFront is the front (displayed) attachment point.
	AttachFront Attachment = iota

	// AttachBack is the back (render target) attachment point.
	AttachBack
)

// String returns the attachment name.
func (a Attachment) String() string {
	switch a {
	case AttachFront:
		return "front"
	case AttachBack:
		return "back"
	}
	return "unknown"
}

// Buffer is one logical DRI2 attachment point (front, or back) of one
// drawable. The exported fields mirror the client-visible DRI2 buffer
// record; everything else is engine bookkeeping.
//
// A back buffer owns a ring of up to Config.BufferCount-1 backing surfaces,
// populated lazily as swaps rotate through them. A front buffer always has
// exactly one ring slot, aliasing the drawable's own surface.
type Buffer struct {
	// Attachment is the buffer's role.
	Attachment Attachment

	// Name identifies the current backing object to the client. It is
	// refreshed after each ring rotation.
	Name uint32

	// Pitch is the backing surface's row stride in bytes.
	Pitch uint32

	// CPP is the backing surface's bytes per pixel.
	CPP uint32

	// Format is the client-requested buffer format. It may differ from
	// the drawable's format; any conversion happens at blit time.
	Format uint32

	// Flags is reserved protocol state, currently always zero.
	Flags uint32

	// ring holds the backing surfaces. Slot 0 is populated at creation;
	// later slots fill in as current rotates into them. The slice
	// is shortened, never regrown, when allocation pressure degrades the
	// buffering depth.
	//
	// For front buffers the slot 0 surface handle is recorded here for
	// teardown, but reads that matter go through Drawable.Surface: a
	// window's own surface can be reallocated beneath us.
	ring []Surface

	// current indexes the ring slot backing Name.
	current int

	// refcnt protects the buffer from being destroyed while the client
	// has detached its drawable but a page flip is still in flight.
	refcnt int

	// attemptedScanout records that a scanout binding has been attempted
	// since the drawable last became flip-ineligible, so the engine does
	// not hammer a failing allocation under scanout-memory pressure.
	attemptedScanout bool
}

// Current returns the surface presently backing the buffer: the drawable's
// own surface for front buffers, the active ring slot otherwise. This is the
// surface a client renders into between swaps.
func (b *Buffer) Current(d Drawable) Surface {
	return b.surfaceFor(d)
}

// surfaceFor resolves the buffer's current backing surface. Front buffers
// resolve through the drawable, which always has the live surface.
func (b *Buffer) surfaceFor(d Drawable) Surface {
	if b.Attachment == AttachFront {
		return d.Surface()
	}
	return b.ring[b.current]
}

// object returns the buffer object backing the current ring slot.
func (b *Buffer) object() BufferObject {
	s := b.ring[b.current]
	if s == nil {
		return nil
	}
	return s.Object()
}

// flippable reports whether swaps on the drawable may be realized as page
// flips at all, combining hardware capability with the user option.
func (e *Engine) flippable(d Drawable) bool {
	if e.cfg.DisableFlips {
		return false
	}
	return d.Flippable()
}

// newSurface allocates one backing surface for the drawable, placing it in
// scanout-capable memory when the drawable can be flipped.
func (e *Engine) newSurface(d Drawable) (Surface, error) {
	usage := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	if e.flippable(d) {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	return e.alloc.Allocate(d.Extent(), usage)
}

// CreateBuffer creates the logical buffer for one attachment point of a
// drawable.
//
// Front buffers alias the drawable's existing surface and take a reference
// on it. Back buffers get a ring sized to the configured buffering depth,
// with slot 0 allocated eagerly; if the drawable is currently flippable, a
// scanout binding is attempted on it. Binding failure is not an error (the
// swap path degrades silently to blitting), but a surface without a GPU
// buffer object backing cannot be wrapped and fails with ErrNoBacking.
func (e *Engine) CreateBuffer(d Drawable, attachment Attachment, format uint32) (*Buffer, error) {
	log := Logger()
	log.Debug("create buffer", "drawable", d.ID(), "attachment", attachment, "format", format)

	var surf Surface
	if attachment == AttachFront {
		surf = d.Surface()
		if surf != nil {
			e.alloc.Retain(surf)
		}
	} else {
		var err error
		surf, err = e.newSurface(d)
		if err != nil {
			log.Error("failed to create back buffer surface", "drawable", d.ID(), "err", err)
			return nil, ErrBufferAlloc
		}
	}
	if surf == nil {
		log.Error("drawable has no surface to wrap", "drawable", d.ID())
		return nil, ErrBufferAlloc
	}

	buf := &Buffer{Attachment: attachment, Format: format}
	if attachment == AttachBack && e.cfg.BufferCount > 2 {
		buf.ring = make([]Surface, e.cfg.BufferCount-1)
	} else {
		buf.ring = make([]Surface, 1)
	}
	buf.ring[0] = surf

	bo := surf.Object()
	if bo == nil {
		log.Error("attempting to wrap a surface with no buffer object backing")
		e.alloc.Destroy(surf)
		return nil, ErrNoBacking
	}

	buf.Pitch = surf.Pitch()
	buf.CPP = surf.CPP()
	buf.Name = bo.Name()
	buf.refcnt = 1

	if attachment != AttachFront && e.flippable(d) {
		// Attempt a scanout binding now. This will fail and we will fall
		// back to blitting if the display controller cannot scan out
		// this object, for example when it does not support the format
		// or scanout memory was exhausted.
		//
		// If the window is not mapped yet, this path is not taken, and
		// ReuseBufferNotify creates the binding if it gets mapped later.
		err := bo.AddScanout()
		buf.attemptedScanout = true
		if err != nil {
			log.Warn("falling back to blitting a flippable window", "drawable", d.ID(), "err", err)
		}
	}

	// The surface is now handed to an external consumer; CPU access must
	// be synchronized from here on.
	e.alloc.RegisterExternal(surf)

	return buf, nil
}

// DestroyBuffer drops one reference from the buffer. When the last
// reference is gone, every populated ring slot is deregistered and its
// surface released.
func (e *Engine) DestroyBuffer(b *Buffer) {
	b.refcnt--
	if b.refcnt > 0 {
		return
	}

	Logger().Debug("destroy buffer", "attachment", b.Attachment, "name", b.Name)

	// Slots populate front to back, so the first empty one ends the ring.
	for _, s := range b.ring {
		if s == nil {
			break
		}
		e.alloc.DeregisterExternal(s)
		e.alloc.Destroy(s)
	}
	b.ring = nil
}

// ReferenceBuffer adds a reference to the buffer. Taken before handing a
// buffer to an asynchronous operation so it cannot be destroyed mid-flight.
func (e *Engine) ReferenceBuffer(b *Buffer) {
	b.refcnt++
}
