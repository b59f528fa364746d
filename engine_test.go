package dri2

import (
	"errors"
	"testing"
)

func TestInitVersionGate(t *testing.T) {
	tests := []struct {
		major, minor int
		wantErr      error
	}{
		{0, 9, ErrVersion},
		{1, 0, ErrVersion},
		{1, 1, nil},
		{1, 4, nil},
		{2, 0, nil},
	}
	for _, tt := range tests {
		h := &harness{
			alloc: &fakeAlloc{},
			mode:  &fakeMode{},
			blit:  &fakeBlit{},
			wins:  map[uint32]*fakeWindow{},
		}
		eng := New(Config{}, h.alloc, h.mode, h.blit, func(uint32) Drawable { return nil })
		if err := eng.Init(tt.major, tt.minor); !errors.Is(err, tt.wantErr) {
			t.Errorf("Init(%d, %d) = %v, want %v", tt.major, tt.minor, err, tt.wantErr)
		}
	}
}

func TestInitMissingCollaborators(t *testing.T) {
	eng := New(Config{}, nil, nil, nil, nil)
	if err := eng.Init(1, 4); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Init() = %v, want ErrNotInitialized", err)
	}
}

func TestNewClampsBufferCount(t *testing.T) {
	eng := New(Config{BufferCount: 0}, &fakeAlloc{}, &fakeMode{}, &fakeBlit{}, func(uint32) Drawable { return nil })
	if eng.cfg.BufferCount != 2 {
		t.Errorf("BufferCount = %d, want 2", eng.cfg.BufferCount)
	}
}

func TestCloseDrainsPendingFlips(t *testing.T) {
	h := newHarness(t, Config{BufferCount: 2})
	h.mode.crtcs = 2
	w := h.window(t, 640, 480, true)
	front, back := h.flipPair(t, w, 0)

	if err := h.eng.ScheduleSwap(w, front, back, nil, nil); err != nil {
		t.Fatalf("ScheduleSwap() = %v, want nil", err)
	}
	if got := h.eng.PendingFlips(); got != 1 {
		t.Fatalf("PendingFlips() = %d, want 1", got)
	}
	if got := len(h.mode.queue); got != 2 {
		t.Fatalf("queued events = %d, want 2", got)
	}

	h.eng.Close()

	if got := h.eng.PendingFlips(); got != 0 {
		t.Errorf("PendingFlips() = %d after Close, want 0", got)
	}
	if got := len(h.mode.queue); got != 0 {
		t.Errorf("queued events = %d after Close, want 0 (drained)", got)
	}
}

func TestCloseWithNothingPending(t *testing.T) {
	h := newHarness(t, Config{BufferCount: 2})
	h.eng.Close() // must not block or touch the event source
}

func TestFrameCount(t *testing.T) {
	h := newHarness(t, Config{BufferCount: 2})
	w := h.window(t, 640, 480, true)

	ust, msc, err := h.eng.FrameCount(w)
	if err != nil {
		t.Fatalf("FrameCount() = %v, want nil", err)
	}
	if msc != 1 || ust != 16667 {
		t.Errorf("FrameCount() = (%d, %d), want (16667, 1)", ust, msc)
	}

	_, msc, err = h.eng.FrameCount(w)
	if err != nil {
		t.Fatalf("FrameCount() = %v, want nil", err)
	}
	if msc != 2 {
		t.Errorf("msc = %d, want 2 (counter advances)", msc)
	}
}

func TestFrameCountUnsupported(t *testing.T) {
	h := newHarness(t, Config{BufferCount: 2})
	h.mode.vblank = false
	w := h.window(t, 640, 480, true)

	if _, _, err := h.eng.FrameCount(w); !errors.Is(err, ErrUnsupported) {
		t.Errorf("FrameCount() = %v, want ErrUnsupported", err)
	}
}

func TestScheduleWaitMSCUnsupported(t *testing.T) {
	h := newHarness(t, Config{BufferCount: 2})
	w := h.window(t, 640, 480, true)

	if err := h.eng.ScheduleWaitMSC(w, 100, 0, 0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ScheduleWaitMSC() = %v, want ErrUnsupported", err)
	}
}

func TestStatsAccumulate(t *testing.T) {
	h := newHarness(t, Config{BufferCount: 2})
	w := h.window(t, 640, 480, true)
	front, back := h.flipPair(t, w, 0)

	// One real flip.
	if err := h.eng.ScheduleSwap(w, front, back, nil, nil); err != nil {
		t.Fatalf("ScheduleSwap() = %v, want nil", err)
	}
	if err := h.mode.WaitForEvent(); err != nil {
		t.Fatalf("WaitForEvent() = %v, want nil", err)
	}

	// One blit (window unmapped).
	w.flippable = false
	if err := h.eng.ScheduleSwap(w, front, back, nil, nil); err != nil {
		t.Fatalf("ScheduleSwap() = %v, want nil", err)
	}

	s := h.eng.Stats()
	if s.Flips != 1 {
		t.Errorf("Flips = %d, want 1", s.Flips)
	}
	if s.Blits != 1 {
		t.Errorf("Blits = %d, want 1", s.Blits)
	}
	if s.Completed != 2 {
		t.Errorf("Completed = %d, want 2", s.Completed)
	}
	if s.PendingFlips != 0 {
		t.Errorf("PendingFlips = %d, want 0", s.PendingFlips)
	}
}
