package dri2

import "errors"

// Package errors. None of these are fatal to the caller's process; the worst
// outcome of any failure here is a permanent fallback to fewer buffers or to
// pure blit compositing.
var (
	// ErrVersion is returned by Init when the DRI2 core is older than 1.1.
	ErrVersion = errors.New("dri2: requires DRI2 core version 1.1 or later")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("dri2: engine not initialized")

	// ErrNoBacking is returned when a surface has no GPU buffer object
	// backing it, so it cannot be wrapped as a DRI2 buffer.
	ErrNoBacking = errors.New("dri2: surface has no buffer object backing")

	// ErrBufferAlloc is returned when a backing surface cannot be allocated.
	ErrBufferAlloc = errors.New("dri2: backing surface allocation failed")

	// ErrUnsupported is returned for operations the mode-setting layer
	// cannot provide, such as vblank queries on hardware without them.
	ErrUnsupported = errors.New("dri2: operation not supported")
)
