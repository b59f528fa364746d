package dri2

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
)

// Test-only fakes for the collaborator contracts. softpix covers the
// integration surface; these stay minimal so engine tests can reach into
// every failure path directly.

var (
	errOutOfMemory = errors.New("out of memory")
	errNoEvents    = errors.New("no pending events")
)

func ext3(w, h int) gputypes.Extent3D {
	return gputypes.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}
}

type fakeBO struct {
	name      uint32
	ext       gputypes.Extent3D
	scanout   uint32
	bindErr   error
	bindCalls int
	refs      int
	alloc     *fakeAlloc
}

func (o *fakeBO) Name() uint32              { return o.name }
func (o *fakeBO) Extent() gputypes.Extent3D { return o.ext }

func (o *fakeBO) AddScanout() error {
	o.bindCalls++
	if o.bindErr != nil {
		return o.bindErr
	}
	if o.scanout == 0 {
		o.alloc.nextScanout++
		o.scanout = o.alloc.nextScanout
	}
	return nil
}

func (o *fakeBO) RemoveScanout()    { o.scanout = 0 }
func (o *fakeBO) ScanoutID() uint32 { return o.scanout }
func (o *fakeBO) Reference()        { o.refs++ }
func (o *fakeBO) Unreference()      { o.refs-- }

type fakeSurface struct {
	bo       *fakeBO
	refs     int
	external bool
}

func (s *fakeSurface) Object() BufferObject {
	if s.bo == nil {
		return nil
	}
	return s.bo
}

func (s *fakeSurface) Pitch() uint32 { return s.bo.ext.Width * 4 }
func (s *fakeSurface) CPP() uint32   { return 4 }

type fakeAlloc struct {
	nextName    uint32
	nextScanout uint32

	allocs    int
	failNext  int
	bindErr   error // applied to newly allocated objects
	noBacking bool  // new surfaces come back without an object

	destroys     int
	retains      int
	registered   int
	deregistered int
	exchanges    int
	flushes      int
}

func (a *fakeAlloc) Allocate(e gputypes.Extent3D, usage gputypes.TextureUsage) (Surface, error) {
	a.allocs++
	if a.failNext > 0 {
		a.failNext--
		return nil, errOutOfMemory
	}
	s := &fakeSurface{refs: 1}
	if !a.noBacking {
		a.nextName++
		s.bo = &fakeBO{name: a.nextName, ext: e, bindErr: a.bindErr, refs: 1, alloc: a}
	}
	return s, nil
}

func (a *fakeAlloc) Retain(s Surface) {
	a.retains++
	s.(*fakeSurface).refs++
}

func (a *fakeAlloc) Destroy(s Surface) {
	a.destroys++
	s.(*fakeSurface).refs--
}

func (a *fakeAlloc) RegisterExternal(s Surface) {
	a.registered++
	s.(*fakeSurface).external = true
}

func (a *fakeAlloc) DeregisterExternal(s Surface) {
	a.deregistered++
	s.(*fakeSurface).external = false
}

func (a *fakeAlloc) Exchange(x, y Surface) {
	a.exchanges++
	xs := x.(*fakeSurface)
	ys := y.(*fakeSurface)
	xs.bo, ys.bo = ys.bo, xs.bo
}

func (a *fakeAlloc) FlushDeletions() { a.flushes++ }

type fakeMode struct {
	flipEvents bool
	vblank     bool
	crtcs      int

	flipErr     error // next PageFlip fails with this
	failPending int   // events still arriving despite the failure

	flips   []uint32 // scanout ids flipped to
	queue   []*SwapCommand
	scanout BufferObject
	eng     *Engine
	msc     uint64
}

func (m *fakeMode) PageFlip(d Drawable, scanoutID uint32, cmd *SwapCommand) (int, error) {
	if m.flipErr != nil {
		err := m.flipErr
		m.flipErr = nil
		for i := 0; i < m.failPending; i++ {
			m.queue = append(m.queue, cmd)
		}
		return m.failPending, err
	}
	m.flips = append(m.flips, scanoutID)
	if m.flipEvents {
		for i := 0; i < m.crtcs; i++ {
			m.queue = append(m.queue, cmd)
		}
	}
	return m.crtcs, nil
}

func (m *fakeMode) UsesFlipEvents() bool { return m.flipEvents }
func (m *fakeMode) SupportsVBlank() bool { return m.vblank }

func (m *fakeMode) WaitVBlank() (uint64, uint64, error) {
	m.msc++
	return m.msc * 16667, m.msc, nil
}

func (m *fakeMode) WaitForEvent() error {
	if len(m.queue) == 0 {
		return errNoEvents
	}
	cmd := m.queue[0]
	m.queue = m.queue[1:]
	m.eng.SwapComplete(cmd)
	return nil
}

func (m *fakeMode) SetScanout(bo BufferObject) { m.scanout = bo }

type fakeBlit struct {
	copies int
	last   []image.Rectangle
}

func (b *fakeBlit) CopyArea(src, dst Surface, clip []image.Rectangle, width, height int) {
	b.copies++
	b.last = clip
}

type fakeWindow struct {
	id        uint32
	ext       gputypes.Extent3D
	surf      Surface
	flippable bool
}

func (w *fakeWindow) ID() uint32                { return w.id }
func (w *fakeWindow) Extent() gputypes.Extent3D { return w.ext }
func (w *fakeWindow) Surface() Surface          { return w.surf }
func (w *fakeWindow) Flippable() bool           { return w.flippable }

// harness wires an engine to the fakes plus a window table for lookups.
type harness struct {
	alloc *fakeAlloc
	mode  *fakeMode
	blit  *fakeBlit
	eng   *Engine
	wins  map[uint32]*fakeWindow
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		alloc: &fakeAlloc{},
		mode:  &fakeMode{flipEvents: true, vblank: true, crtcs: 1},
		blit:  &fakeBlit{},
		wins:  make(map[uint32]*fakeWindow),
	}
	h.eng = New(cfg, h.alloc, h.mode, h.blit, func(id uint32) Drawable {
		w, ok := h.wins[id]
		if !ok {
			return nil
		}
		return w
	})
	h.mode.eng = h.eng
	if err := h.eng.Init(1, 4); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}
	return h
}

// window creates a drawable with its own backing surface, mapped or not.
func (h *harness) window(t *testing.T, width, height int, mapped bool) *fakeWindow {
	t.Helper()
	surf, err := h.alloc.Allocate(ext3(width, height), 0)
	if err != nil {
		t.Fatalf("window surface allocation failed: %v", err)
	}
	id := uint32(len(h.wins) + 1)
	w := &fakeWindow{id: id, ext: ext3(width, height), surf: surf, flippable: mapped}
	h.wins[id] = w
	return w
}

// flipPair creates a front+back buffer pair that is fully flip-eligible:
// both current objects carry a scanout binding.
func (h *harness) flipPair(t *testing.T, w *fakeWindow, format uint32) (front, back *Buffer) {
	t.Helper()
	back, err := h.eng.CreateBuffer(w, AttachBack, format)
	if err != nil {
		t.Fatalf("CreateBuffer(back) = %v, want nil", err)
	}
	front, err = h.eng.CreateBuffer(w, AttachFront, format)
	if err != nil {
		t.Fatalf("CreateBuffer(front) = %v, want nil", err)
	}
	if err := front.object().AddScanout(); err != nil {
		t.Fatalf("front AddScanout() = %v, want nil", err)
	}
	return front, back
}
