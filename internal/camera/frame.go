package camera

import (
	"context"
	"sync"

	"signpractice/internal/practice"
)

// FrameSource is a camera whose frames are pushed from outside: a browser
// upload or a file named on the command line. Each frame is captured once.
type FrameSource struct {
	mu         sync.Mutex
	frame      []byte
	permission bool
}

// NewFrameSource returns a source with the given initial permission.
func NewFrameSource(granted bool) *FrameSource {
	return &FrameSource{permission: granted}
}

// SetPermission records what the frame producer reported about camera access.
func (f *FrameSource) SetPermission(granted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permission = granted
	if !granted {
		f.frame = nil
	}
}

// Offer queues frame for the next capture, replacing any pending one.
// A frame is proof the producer has camera access, so permission is granted.
func (f *FrameSource) Offer(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = frame
	f.permission = true
}

// Discard drops the pending frame, if any.
func (f *FrameSource) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = nil
}

// Pending reports whether a frame is waiting to be captured.
func (f *FrameSource) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frame) > 0
}

func (f *FrameSource) RequestPermission(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission, nil
}

func (f *FrameSource) CaptureStill(_ context.Context, quality float64) (string, error) {
	f.mu.Lock()
	if !f.permission {
		f.mu.Unlock()
		return "", practice.ErrPermissionDenied
	}
	frame := f.frame
	f.frame = nil
	f.mu.Unlock()

	if len(frame) == 0 {
		return "", practice.ErrNoCaptureDevice
	}
	return Encode(frame, quality)
}
