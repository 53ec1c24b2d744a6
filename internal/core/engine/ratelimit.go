package engine

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// RateLimiter keeps upstream hosts inside their request windows. State is
// persisted through RateLimitStore so budgets survive proxy restarts.
//
// A limiter may be shared by concurrent lookups; the read-modify-write of a
// host's state is serialized within the process.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	Margin float64

	mu sync.Mutex
}

// RateLimit allows Requests per Window. A zero Window means one minute.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

func (l RateLimit) window() time.Duration {
	if l.Window <= 0 {
		return time.Minute
	}
	return l.Window
}

// RateLimitStore stores rate limit state keyed by host.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, host string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, host string, state *core.RateLimitState) error
}

// DefaultLimits are conservative budgets for the public data hosts. Subdomains
// share their parent's budget unless listed themselves.
var DefaultLimits = map[string]RateLimit{
	"pokeapi.co":                {Requests: 100},
	"raw.githubusercontent.com": {Requests: 120},
	"localhost":                 {Requests: 600},
}

var fallbackLimit = RateLimit{Requests: 60}

// Allow reports whether a request to host may proceed now, and how long to
// wait when it may not. It does not consume budget; see Acquire.
func (r *RateLimiter) Allow(ctx context.Context, host string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, host)
	if err != nil {
		return true, 0, err
	}
	wait := r.blockedFor(host, state, r.now())
	return wait == 0, wait, nil
}

// Acquire checks the budget for host and, when a request may proceed, counts
// it in the same step. Concurrent callers cannot overshoot the window.
func (r *RateLimiter) Acquire(ctx context.Context, host string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, host)
	if err != nil {
		return true, 0, err
	}
	now := r.now()
	if wait := r.blockedFor(host, state, now); wait > 0 {
		return false, wait, nil
	}
	r.count(host, state, now)
	return true, 0, r.Store.UpdateRateLimit(ctx, host, state)
}

// Record counts one request against the host's current window.
func (r *RateLimiter) Record(ctx context.Context, host string) error {
	if r == nil || r.Store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, host)
	if err != nil {
		return err
	}
	r.count(host, state, r.now())
	return r.Store.UpdateRateLimit(ctx, host, state)
}

// Record429 starts a backoff after the upstream answered Too Many Requests.
// An earlier, longer backoff is kept.
func (r *RateLimiter) Record429(ctx context.Context, host string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, host)
	if err != nil {
		return err
	}

	now := r.now()
	state.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		if state.BackoffUntil == nil || until.After(*state.BackoffUntil) {
			state.BackoffUntil = &until
		}
	}
	return r.Store.UpdateRateLimit(ctx, host, state)
}

// ApplyOverrides replaces per-host budgets with requests-per-minute values
// from configuration.
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits)+len(overrides))
		for host, limit := range DefaultLimits {
			r.Limits[host] = limit
		}
	}
	for host, perMinute := range overrides {
		host = normalizeHost(host)
		if host == "" || perMinute <= 0 {
			continue
		}
		r.Limits[host] = RateLimit{Requests: perMinute, Window: time.Minute}
	}
}

// ApplySafetyMargin scales every budget by margin, which must be in (0, 1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil || margin <= 0 || margin > 1 {
		return
	}
	r.mu.Lock()
	r.Margin = margin
	r.mu.Unlock()
}

// blockedFor returns how long host must wait, or zero when it may proceed.
func (r *RateLimiter) blockedFor(host string, state *core.RateLimitState, now time.Time) time.Duration {
	if state.BackoffUntil != nil && now.Before(*state.BackoffUntil) {
		return state.BackoffUntil.Sub(now)
	}
	limit := r.limitFor(host)
	windowEnd := state.WindowStart.Add(limit.window())
	if state.WindowStart.IsZero() || now.After(windowEnd) {
		return 0
	}
	if state.RequestCount >= limit.Requests {
		return windowEnd.Sub(now)
	}
	return 0
}

func (r *RateLimiter) count(host string, state *core.RateLimitState, now time.Time) {
	limit := r.limitFor(host)
	if state.WindowStart.IsZero() || now.After(state.WindowStart.Add(limit.window())) {
		state.WindowStart = now
		state.RequestCount = 0
	}
	state.RequestCount++
}

func (r *RateLimiter) load(ctx context.Context, host string) (*core.RateLimitState, error) {
	state, err := r.Store.GetRateLimit(ctx, host)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &core.RateLimitState{}
	}
	return state, nil
}

// limitFor finds the budget for host, walking up to parent domains before
// falling back to the default.
func (r *RateLimiter) limitFor(host string) RateLimit {
	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	limit := fallbackLimit
	for candidate := normalizeHost(host); candidate != ""; {
		if l, ok := limits[candidate]; ok {
			limit = l
			break
		}
		dot := strings.IndexByte(candidate, '.')
		if dot < 0 {
			break
		}
		candidate = candidate[dot+1:]
		if !strings.Contains(candidate, ".") {
			// Never match a bare TLD.
			break
		}
	}

	if r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	limit.Requests = max(int(math.Floor(float64(limit.Requests)*r.Margin)), 1)
	return limit
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

func (r *RateLimiter) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
