// Package audio plays creature sound clips with at most one active playback
// at a time.
package audio

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// ErrReleased is returned by handles used after Release.
var ErrReleased = errors.New("playback handle released")

// Handle is one loaded sound clip.
type Handle interface {
	// Ready blocks until the clip can start playing.
	Ready(ctx context.Context) error
	Play() error
	Stop() error
	// Rewind resets the position so the next Play starts from the beginning.
	Rewind() error
	Release() error
	Active() bool
}

// Backend opens handles for clip URLs.
type Backend interface {
	Open(url string) (Handle, error)
}

// Player owns the single playback slot. Failures are logged and never
// returned; a missing or broken clip simply stays silent.
type Player struct {
	Backend Backend
	Logger  core.Logger

	mu      sync.Mutex
	current Handle
}

// NewPlayer returns a Player backed by backend.
func NewPlayer(backend Backend, logger core.Logger) *Player {
	return &Player{Backend: backend, Logger: logger}
}

// PlayLatest plays the record's latest cry. Any earlier handle is stopped,
// rewound and released before the new one is installed, and the new handle
// only starts if it is still current once it becomes ready.
func (p *Player) PlayLatest(ctx context.Context, rec *core.Pokemon) {
	url := rec.SoundURL()
	if url == "" || p == nil || p.Backend == nil {
		return
	}

	p.mu.Lock()
	p.retireLocked()
	handle, err := p.Backend.Open(url)
	if err != nil {
		p.mu.Unlock()
		p.logger().Warn("sound clip unavailable", zap.String("url", url), zap.Error(err))
		return
	}
	p.current = handle
	p.mu.Unlock()

	if err := handle.Ready(ctx); err != nil {
		p.mu.Lock()
		current := p.current == handle
		if current {
			p.current = nil
			_ = handle.Release()
		}
		p.mu.Unlock()
		if current {
			p.logger().Warn("sound clip failed to load", zap.String("url", url), zap.Error(err))
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != handle {
		p.logger().Debug("sound clip superseded before playback", zap.String("url", url))
		return
	}
	if err := handle.Play(); err != nil {
		p.logger().Warn("sound clip failed to play", zap.String("url", url), zap.Error(err))
	}
}

// Reset stops and rewinds the current clip without releasing it.
func (p *Player) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return
	}
	if err := p.current.Stop(); err != nil {
		p.logger().Warn("sound stop failed", zap.Error(err))
	}
	if err := p.current.Rewind(); err != nil {
		p.logger().Warn("sound rewind failed", zap.Error(err))
	}
}

// Active reports whether the current clip is playing.
func (p *Player) Active() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && p.current.Active()
}

// Close stops and releases the current clip.
func (p *Player) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retireLocked()
}

func (p *Player) retireLocked() {
	if p.current == nil {
		return
	}
	old := p.current
	p.current = nil
	_ = old.Stop()
	_ = old.Rewind()
	if err := old.Release(); err != nil {
		p.logger().Debug("sound release failed", zap.Error(err))
	}
}

func (p *Player) logger() core.Logger {
	if p.Logger == nil {
		return core.NopLogger()
	}
	return p.Logger
}
