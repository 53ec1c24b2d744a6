package audio

import (
	"context"
	"errors"
	"sync"
)

// MemoryBackend is an in-process Backend that plays nothing. It tracks how
// many handles are active at once and is used when audio is disabled and in
// tests.
type MemoryBackend struct {
	// Gate, when set, returns a channel that Ready waits on for url.
	Gate    func(url string) <-chan struct{}
	// OpenErr fails every Open when set.
	OpenErr error

	mu        sync.Mutex
	handles   []*MemoryHandle
	active    int
	maxActive int
}

// Open implements Backend.
func (b *MemoryBackend) Open(url string) (Handle, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	h := &MemoryHandle{backend: b, URL: url}
	if b.Gate != nil {
		h.gate = b.Gate(url)
	}
	b.mu.Lock()
	b.handles = append(b.handles, h)
	b.mu.Unlock()
	return h, nil
}

// Handles returns every handle opened so far.
func (b *MemoryBackend) Handles() []*MemoryHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*MemoryHandle, len(b.handles))
	copy(out, b.handles)
	return out
}

// ActiveCount returns the number of handles playing right now.
func (b *MemoryBackend) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// MaxActive returns the highest ActiveCount ever observed.
func (b *MemoryBackend) MaxActive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxActive
}

// MemoryHandle is a MemoryBackend clip.
type MemoryHandle struct {
	URL string

	backend  *MemoryBackend
	gate     <-chan struct{}
	playing  bool
	released bool
	plays    int
	stops    int
	rewinds  int
}

func (h *MemoryHandle) Ready(ctx context.Context) error {
	if h.gate != nil {
		select {
		case <-h.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	return nil
}

func (h *MemoryHandle) Play() error {
	b := h.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	h.plays++
	if !h.playing {
		h.playing = true
		b.active++
		b.maxActive = max(b.maxActive, b.active)
	}
	return nil
}

func (h *MemoryHandle) Stop() error {
	b := h.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	h.stops++
	h.stopLocked()
	return nil
}

func (h *MemoryHandle) Rewind() error {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	h.rewinds++
	return nil
}

func (h *MemoryHandle) Release() error {
	b := h.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if h.released {
		return errors.New("handle already released")
	}
	h.stopLocked()
	h.released = true
	return nil
}

func (h *MemoryHandle) Active() bool {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.playing
}

// Plays returns how many times Play succeeded.
func (h *MemoryHandle) Plays() int {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.plays
}

// Stops returns how many times Stop was called.
func (h *MemoryHandle) Stops() int {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.stops
}

// Rewinds returns how many times Rewind was called.
func (h *MemoryHandle) Rewinds() int {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.rewinds
}

// Released reports whether Release was called.
func (h *MemoryHandle) Released() bool {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.released
}

func (h *MemoryHandle) stopLocked() {
	if h.playing {
		h.playing = false
		h.backend.active--
	}
}
