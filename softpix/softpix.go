// Package softpix provides an in-memory, CPU-only implementation of the
// dri2 collaborator contracts: a surface allocator, a blit engine, a
// mode-setting layer with a queued event model, and simple window drawables.
//
// softpix is the reference backend for the engine and the harness its tests
// run on. It supports failure injection (allocation exhaustion, scanout
// memory limits, flip rejection) so every fallback path in the engine can be
// exercised without hardware.
package softpix

import (
	"errors"
	"image"

	"github.com/gogpu/dri2"
	"github.com/gogpu/gputypes"
)

// Package errors.
var (
	// ErrExhausted is returned by Allocate when failure injection is
	// active.
	ErrExhausted = errors.New("softpix: surface memory exhausted")

	// ErrScanout is returned by AddScanout when the configured scanout
	// memory limit is reached.
	ErrScanout = errors.New("softpix: scanout memory exhausted")

	// ErrNoEvents is returned by WaitForEvent when no completion events
	// are pending.
	ErrNoEvents = errors.New("softpix: no pending events")
)

// Object is a software buffer object: pixel storage plus an optional
// scanout binding. It implements dri2.BufferObject.
type Object struct {
	name    uint32
	img     *image.RGBA
	scanout uint32
	refs    int
	alloc   *Allocator
}

// Name returns the object's client-visible id.
func (o *Object) Name() uint32 { return o.name }

// Extent returns the object's pixel dimensions.
func (o *Object) Extent() gputypes.Extent3D {
	b := o.img.Bounds()
	return gputypes.Extent3D{
		Width:              uint32(b.Dx()),
		Height:             uint32(b.Dy()),
		DepthOrArrayLayers: 1,
	}
}

// AddScanout creates a scanout binding, honoring the allocator's configured
// scanout memory limit. Adding a binding an object already has is a no-op.
func (o *Object) AddScanout() error {
	if o.scanout != 0 {
		return nil
	}
	if o.alloc.scanoutLimit > 0 && o.alloc.bound >= o.alloc.scanoutLimit {
		return ErrScanout
	}
	o.alloc.nextScanout++
	o.scanout = o.alloc.nextScanout
	o.alloc.bound++
	return nil
}

// RemoveScanout releases the object's scanout binding, if any.
func (o *Object) RemoveScanout() {
	if o.scanout == 0 {
		return
	}
	o.scanout = 0
	o.alloc.bound--
}

// ScanoutID returns the binding id, or 0 when unbound.
func (o *Object) ScanoutID() uint32 { return o.scanout }

// Reference adds an allocator-level reference.
func (o *Object) Reference() { o.refs++ }

// Unreference drops an allocator-level reference.
func (o *Object) Unreference() { o.refs-- }

// Refs returns the object's current reference count.
func (o *Object) Refs() int { return o.refs }

// Image exposes the object's pixel storage for test inspection and for
// software rendering into the buffer.
func (o *Object) Image() *image.RGBA { return o.img }

// Surface is a software surface handle. It implements dri2.Surface. The
// handle keeps its identity across Exchange; only the backing object swaps.
type Surface struct {
	obj      *Object
	refs     int
	external bool
}

// Object returns the backing object, or nil for a surface whose backing
// has been released.
func (s *Surface) Object() dri2.BufferObject {
	if s.obj == nil {
		return nil
	}
	return s.obj
}

// Pitch returns the row stride in bytes.
func (s *Surface) Pitch() uint32 { return uint32(s.obj.img.Stride) }

// CPP returns bytes per pixel (always 4: RGBA).
func (s *Surface) CPP() uint32 { return 4 }

// Allocator is a software surface allocator with failure injection. It
// implements dri2.SurfaceAllocator.
//
// The zero value is not usable; create one with NewAllocator.
type Allocator struct {
	nextName    uint32
	nextScanout uint32

	// scanoutLimit caps concurrent scanout bindings; 0 means unlimited.
	scanoutLimit int
	bound        int

	// failNext makes the next n Allocate calls fail.
	failNext int

	live     int
	deferred []*Surface
	flushes  int
}

// NewAllocator creates an empty software allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// FailNextAllocs makes the next n calls to Allocate fail with ErrExhausted.
func (a *Allocator) FailNextAllocs(n int) { a.failNext = n }

// SetScanoutLimit caps the number of concurrent scanout bindings.
// 0 removes the cap.
func (a *Allocator) SetScanoutLimit(n int) { a.scanoutLimit = n }

// Allocate creates a new software surface of the given extent. The usage
// hint is accepted for contract compatibility; all softpix memory is
// scanout-capable.
func (a *Allocator) Allocate(ext gputypes.Extent3D, usage gputypes.TextureUsage) (dri2.Surface, error) {
	if a.failNext > 0 {
		a.failNext--
		return nil, ErrExhausted
	}
	obj := &Object{
		img:   image.NewRGBA(image.Rect(0, 0, int(ext.Width), int(ext.Height))),
		refs:  1,
		alloc: a,
	}
	a.nextName++
	obj.name = a.nextName
	a.live++
	return &Surface{obj: obj, refs: 1}, nil
}

// Retain adds a reference to the surface.
func (a *Allocator) Retain(s dri2.Surface) {
	s.(*Surface).refs++
}

// Destroy drops a reference. When the last reference is gone the surface is
// queued for deferred deletion rather than freed: an external consumer may
// still be reading from it. FlushDeletions performs the actual release.
func (a *Allocator) Destroy(s dri2.Surface) {
	sp := s.(*Surface)
	sp.refs--
	if sp.refs > 0 {
		return
	}
	a.deferred = append(a.deferred, sp)
}

// RegisterExternal marks the surface as externally consumed.
func (a *Allocator) RegisterExternal(s dri2.Surface) {
	s.(*Surface).external = true
}

// DeregisterExternal reverts RegisterExternal.
func (a *Allocator) DeregisterExternal(s dri2.Surface) {
	s.(*Surface).external = false
}

// Exchange swaps the backing objects of two surfaces in place.
func (a *Allocator) Exchange(x, y dri2.Surface) {
	xs := x.(*Surface)
	ys := y.(*Surface)
	xs.obj, ys.obj = ys.obj, xs.obj
}

// FlushDeletions releases every surface queued by Destroy, removing any
// scanout binding it still holds.
func (a *Allocator) FlushDeletions() {
	a.flushes++
	for _, sp := range a.deferred {
		if sp.obj != nil {
			sp.obj.RemoveScanout()
			sp.obj = nil
		}
		a.live--
	}
	a.deferred = a.deferred[:0]
}

// Live returns the number of surfaces not yet released.
func (a *Allocator) Live() int { return a.live }

// PendingDeletions returns the number of surfaces awaiting FlushDeletions.
func (a *Allocator) PendingDeletions() int { return len(a.deferred) }

// Flushes returns how many times FlushDeletions has run.
func (a *Allocator) Flushes() int { return a.flushes }

// BoundScanouts returns the number of scanout bindings currently held.
func (a *Allocator) BoundScanouts() int { return a.bound }
