package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/names"
)

var errNoFetcher = errors.New("detail lookups are not configured")

// Fetcher looks up detail records.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*core.Pokemon, error)
}

// SoundPlayer plays cries. Implementations swallow their own failures.
type SoundPlayer interface {
	PlayLatest(ctx context.Context, rec *core.Pokemon)
	Reset()
}

// SessionConfig wires a Session.
type SessionConfig struct {
	Fetcher  Fetcher
	Player   SoundPlayer
	Logger   core.Logger
	// Observer receives every new state. It runs with the session lock held
	// and must neither block nor call back into the Session.
	Observer func(State)
	Rand     *rand.Rand
}

// Session runs a Controller: transitions are serialized on one lock, fetches
// and playback run in background goroutines, and their settlements come back
// through the same lock.
type Session struct {
	ctx      context.Context
	ctrl     *Controller
	fetcher  Fetcher
	player   SoundPlayer
	logger   core.Logger
	observer func(State)

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewSession returns a session whose background work is bound to ctx.
func NewSession(ctx context.Context, cfg SessionConfig) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Session{
		ctx:      ctx,
		ctrl:     NewController(cfg.Rand),
		fetcher:  cfg.Fetcher,
		player:   cfg.Player,
		logger:   logger,
		observer: cfg.Observer,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

// Dispatch applies one transition and executes the commands it returns.
func (s *Session) Dispatch(transition func(*Controller) []Command) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(transition(s.ctrl))
}

// InputChange records new query text and refreshes suggestions.
func (s *Session) InputChange(text string) State {
	return s.Dispatch(func(c *Controller) []Command { return c.OnInputChange(text) })
}

// Submit looks up explicit, or the query text when explicit is blank.
func (s *Session) Submit(explicit string) State {
	return s.Dispatch(func(c *Controller) []Command { return c.OnSubmit(explicit) })
}

// PickSuggestion copies name into the query and looks it up.
func (s *Session) PickSuggestion(name string) State {
	return s.Dispatch(func(c *Controller) []Command { return c.OnSuggestionPick(name) })
}

// QuickPick looks up one of the fixed quick picks without touching the query.
func (s *Session) QuickPick(name string) State {
	return s.Dispatch(func(c *Controller) []Command { return c.OnQuickPick(name) })
}

// RandomPick looks up a random name from the index, or from the quick picks
// when the index is empty.
func (s *Session) RandomPick() State {
	return s.Dispatch(func(c *Controller) []Command { return c.OnRandomPick() })
}

// PlaySound plays the current record's cry, if it has one.
func (s *Session) PlaySound() State {
	return s.Dispatch(func(c *Controller) []Command { return c.OnPlaySoundRequest() })
}

// Focus re-shows suggestions for the current query.
func (s *Session) Focus() State {
	return s.Dispatch(func(c *Controller) []Command { return c.OnFocus() })
}

// DismissSuggestions hides the suggestion list.
func (s *Session) DismissSuggestions() State {
	return s.Dispatch(func(c *Controller) []Command { return c.DismissSuggestions() })
}

// MoveHighlight moves the suggestion highlight by delta, wrapping around.
func (s *Session) MoveHighlight(delta int) State {
	return s.Dispatch(func(c *Controller) []Command { return c.MoveHighlight(delta) })
}

// ToggleTheme flips between light and dark display.
func (s *Session) ToggleTheme() State {
	return s.Dispatch(func(c *Controller) []Command { return c.ToggleTheme() })
}

// Enter submits the highlighted suggestion when there is one and the query
// text otherwise.
func (s *Session) Enter() State {
	return s.Dispatch(func(c *Controller) []Command {
		if name, ok := c.Highlighted(); ok {
			return c.OnSuggestionPick(name)
		}
		return c.OnSubmit("")
	})
}

// LoadNames loads index from source in the background and hands the result
// to the controller. It returns immediately.
func (s *Session) LoadNames(index *names.Index, source names.Source) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		index.Load(s.ctx, source)
		list := index.Names()
		s.Dispatch(func(c *Controller) []Command { return c.OnNamesLoaded(list) })
	}()
}

// Wait blocks until every background fetch, playback and name load started
// so far has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) applyLocked(cmds []Command) State {
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case FetchDetail:
			s.startFetch(cmd)
		case PlaySound:
			s.startPlayback(cmd.Record)
		case ResetSound:
			if s.player != nil {
				s.player.Reset()
			}
		}
	}

	state := s.ctrl.State()
	if s.observer != nil {
		s.observer(state)
	}
	return state
}

func (s *Session) startFetch(cmd FetchDetail) {
	if s.fetcher == nil {
		s.logger.Warn("detail fetcher not configured", zap.String("name", cmd.Name))
		s.ctrl.OnFetchSettled(cmd.Seq, nil, errNoFetcher)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		started := time.Now()
		rec, err := s.fetcher.Fetch(s.ctx, cmd.Name)
		s.settle(cmd, rec, err, time.Since(started))
	}()
}

func (s *Session) settle(cmd FetchDetail, rec *core.Pokemon, err error, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmds, applied := s.ctrl.OnFetchSettled(cmd.Seq, rec, err)
	if !applied {
		s.logger.Debug("stale lookup result dropped",
			zap.String("name", cmd.Name),
			zap.Uint64("seq", cmd.Seq),
			zap.Duration("elapsed", elapsed))
		return
	}

	fields := []zap.Field{zap.String("name", cmd.Name), zap.Uint64("seq", cmd.Seq), zap.Duration("elapsed", elapsed)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Debug("lookup settled", fields...)
	s.applyLocked(cmds)
}

func (s *Session) startPlayback(rec *core.Pokemon) {
	if s.player == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.player.PlayLatest(s.ctx, rec)
	}()
}
