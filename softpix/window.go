package softpix

import (
	"github.com/gogpu/dri2"
	"github.com/gogpu/gputypes"
)

// Window is a software drawable. It implements dri2.Drawable.
type Window struct {
	id   uint32
	surf dri2.Surface

	// Mapped controls flip eligibility.
	Mapped bool

	screen *Screen
}

// ID returns the window's drawable id.
func (w *Window) ID() uint32 { return w.id }

// Extent returns the window's current dimensions, which are its backing
// surface's.
func (w *Window) Extent() gputypes.Extent3D {
	return w.surf.Object().Extent()
}

// Surface returns the window's own backing surface.
func (w *Window) Surface() dri2.Surface { return w.surf }

// Flippable reports whether the window can be page flipped right now.
func (w *Window) Flippable() bool { return w.Mapped }

// Resize replaces the window's backing surface with one of the new size,
// the way a window manager resize reallocates a window's pixmap. The old
// surface is released through the allocator.
func (w *Window) Resize(width, height int) error {
	ext := gputypes.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	surf, err := w.screen.alloc.Allocate(ext, gputypes.TextureUsageCopySrc|gputypes.TextureUsageCopyDst)
	if err != nil {
		return err
	}
	w.screen.alloc.Destroy(w.surf)
	w.surf = surf
	return nil
}

// Screen owns windows and resolves drawable ids for the engine. Its Lookup
// method satisfies dri2.DrawableLookup.
type Screen struct {
	alloc   *Allocator
	windows map[uint32]*Window
	nextID  uint32
}

// NewScreen creates an empty screen backed by the given allocator.
func NewScreen(alloc *Allocator) *Screen {
	return &Screen{alloc: alloc, windows: make(map[uint32]*Window)}
}

// NewWindow creates a mapped window of the given size with its own backing
// surface.
func (s *Screen) NewWindow(width, height int) (*Window, error) {
	ext := gputypes.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	surf, err := s.alloc.Allocate(ext, gputypes.TextureUsageCopySrc|gputypes.TextureUsageCopyDst)
	if err != nil {
		return nil, err
	}
	s.nextID++
	w := &Window{id: s.nextID, surf: surf, Mapped: true, screen: s}
	s.windows[w.id] = w
	return w, nil
}

// Destroy removes the window from the screen and releases its surface.
// Lookups for its id return nil from now on, which is how the engine
// detects a drawable that vanished mid-flight.
func (s *Screen) Destroy(w *Window) {
	delete(s.windows, w.id)
	s.alloc.Destroy(w.surf)
}

// Lookup resolves a drawable id, returning nil for destroyed windows.
func (s *Screen) Lookup(id uint32) dri2.Drawable {
	w, ok := s.windows[id]
	if !ok {
		return nil
	}
	return w
}
