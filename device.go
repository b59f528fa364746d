package dri2

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Surface is an opaque handle to a pixel surface managed by the
// SurfaceAllocator. A surface may or may not have a GPU buffer object
// backing it; only backed surfaces can be wrapped as DRI2 buffers.
type Surface interface {
	// Object returns the GPU buffer object backing this surface, or nil
	// if the surface has no accelerated backing.
	Object() BufferObject

	// Pitch returns the surface row stride in bytes.
	Pitch() uint32

	// CPP returns the bytes per pixel of the surface.
	CPP() uint32
}

// BufferObject is a GPU-addressable memory object with an optional scanout
// binding. The scanout binding associates the object with a display
// controller output slot and can be added and removed independently of the
// object's allocation.
type BufferObject interface {
	// Name returns an integer id for the object that is stable and
	// meaningful to the requesting client across process boundaries.
	Name() uint32

	// Extent returns the object's pixel dimensions.
	Extent() gputypes.Extent3D

	// AddScanout attempts to create a scanout binding for the object.
	// Failure is not fatal: the display controller may not support the
	// object's format, or scanout memory may be exhausted. Swaps fall
	// back to blitting when a binding is missing.
	AddScanout() error

	// RemoveScanout removes the object's scanout binding, if any.
	// Scanout memory is scarce; bindings are torn down the moment they
	// are no longer needed for flipping.
	RemoveScanout()

	// ScanoutID returns the id of the object's scanout binding, or 0 if
	// the object has none.
	ScanoutID() uint32

	// Reference adds an allocator-level reference to the object.
	Reference()

	// Unreference drops an allocator-level reference to the object.
	Unreference()
}

// SurfaceAllocator acquires and destroys backing surfaces on behalf of the
// engine. Implementations are typically backed by the driver's EXA/GEM
// layer; softpix provides an in-memory implementation.
type SurfaceAllocator interface {
	// Allocate creates a new surface of the given extent. The usage hint
	// tells the allocator whether the surface must be placed in
	// scanout-capable memory (TextureUsageRenderAttachment) or is plain
	// copy-source/destination backing storage.
	Allocate(ext gputypes.Extent3D, usage gputypes.TextureUsage) (Surface, error)

	// Retain adds a reference to an existing surface. Used when a front
	// buffer aliases the drawable's own surface, whose lifetime is the
	// drawable's.
	Retain(s Surface)

	// Destroy drops a reference to the surface, freeing it when the last
	// reference is gone.
	Destroy(s Surface)

	// RegisterExternal marks the surface as externally consumed, so that
	// CPU-side access must be synchronized from now on.
	RegisterExternal(s Surface)

	// DeregisterExternal reverts RegisterExternal.
	DeregisterExternal(s Surface)

	// Exchange swaps the backing objects of two surfaces in place. The
	// surface handles keep their identity; what they point at swaps.
	Exchange(a, b Surface)

	// FlushDeletions processes surfaces queued for deferred deletion.
	// The engine calls this right before a page flip, the most reliable
	// point at which the client is known to be done reading from
	// previously released buffers.
	FlushDeletions()
}

// ModeSetter is the mode-setting layer: it issues page flips against the
// display controller and relays the kernel's completion events.
type ModeSetter interface {
	// PageFlip asks every display controller currently scanning out the
	// drawable to flip to the surface identified by scanoutID. It
	// returns the number of controllers whose completion events are
	// still outstanding after the call.
	//
	// On success with pending == 0, no controller actually needed a
	// flip (nothing is currently displaying the drawable) and the engine
	// synthesizes the completion locally. On error, pending is the
	// number of completion events that will still arrive for controllers
	// that were flipped before the failure.
	PageFlip(d Drawable, scanoutID uint32, cmd *SwapCommand) (pending int, err error)

	// UsesFlipEvents reports whether the platform delivers flip
	// completions as discrete kernel events. When false, PageFlip is
	// known synchronous and the engine completes commands immediately.
	UsesFlipEvents() bool

	// SupportsVBlank reports whether vblank queries are available.
	SupportsVBlank() bool

	// WaitVBlank drains the next vblank and returns its timestamp in
	// microseconds and its frame counter value.
	WaitVBlank() (ust, msc uint64, err error)

	// WaitForEvent blocks until one pending hardware event has been
	// dispatched. Used only to drain outstanding flips during teardown.
	WaitForEvent() error

	// SetScanout points the display controller at the given object.
	// Called after a completed flip so that future mode sets reference
	// the object actually being displayed.
	SetScanout(bo BufferObject)
}

// Blitter is the software copy primitive.
type Blitter interface {
	// CopyArea copies the area (0,0)-(width,height) from src to dst,
	// clipped to the given region.
	CopyArea(src, dst Surface, clip []image.Rectangle, width, height int)
}

// Drawable is a client window or pixmap as seen by this engine.
type Drawable interface {
	// ID returns the protocol-level drawable id. The engine stores ids,
	// not Drawables, across asynchronous operations: the drawable may be
	// destroyed while a flip is in flight, and a failed lookup is the
	// signal for that.
	ID() uint32

	// Extent returns the drawable's current pixel dimensions.
	Extent() gputypes.Extent3D

	// Surface returns the drawable's own backing surface. Front buffers
	// alias this surface rather than owning one.
	Surface() Surface

	// Flippable reports whether the drawable can currently be page
	// flipped: it must be a window, mapped, and fully cover its scanout.
	Flippable() bool
}

// DrawableLookup resolves a drawable id, returning nil if the drawable has
// been destroyed. Supplied by the protocol glue.
type DrawableLookup func(id uint32) Drawable

// SwapFunc receives the completion notification for a scheduled swap.
// The timestamps are zeros; callers needing real vblank timing use
// [Engine.FrameCount].
type SwapFunc func(drawID uint32, kind SwapKind, ust, msc uint64, data any)
