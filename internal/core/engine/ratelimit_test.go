package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// memoryRateStore hands out copies so callers cannot mutate stored state
// without going through UpdateRateLimit, the way a database would.
type memoryRateStore struct {
	mu    sync.Mutex
	state map[string]core.RateLimitState
}

func (m *memoryRateStore) GetRateLimit(ctx context.Context, host string) (*core.RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.state[host]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *memoryRateStore) UpdateRateLimit(ctx context.Context, host string, state *core.RateLimitState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]core.RateLimitState)
	}
	m.state[host] = *state
	return nil
}

func TestRateLimiterWindow(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store:  &memoryRateStore{},
		Limits: map[string]RateLimit{"pokeapi.test": {Requests: 1, Window: time.Minute}},
		Clock:  func() time.Time { return clock },
	}

	allowed, _, err := limiter.Allow(context.Background(), "pokeapi.test")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Record(context.Background(), "pokeapi.test"))

	allowed, wait, err := limiter.Allow(context.Background(), "pokeapi.test")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, time.Minute, wait)

	clock = clock.Add(2 * time.Minute)
	allowed, _, err = limiter.Allow(context.Background(), "pokeapi.test")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRateLimiterAcquireConsumesBudget(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store:  &memoryRateStore{},
		Limits: map[string]RateLimit{"pokeapi.test": {Requests: 2}},
		Clock:  func() time.Time { return clock },
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Acquire(ctx, "pokeapi.test")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	clock = clock.Add(15 * time.Second)
	allowed, wait, err := limiter.Acquire(ctx, "pokeapi.test")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 45*time.Second, wait)
}

func TestRateLimiterAcquireUnderContention(t *testing.T) {
	limiter := &RateLimiter{
		Store:  &memoryRateStore{},
		Limits: map[string]RateLimit{"pokeapi.test": {Requests: 10}},
	}

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _, err := limiter.Acquire(context.Background(), "pokeapi.test")
			if err == nil && allowed {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), granted.Load())
}

func TestRateLimiterBackoff(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: &memoryRateStore{},
		Clock: func() time.Time { return now },
	}
	ctx := context.Background()

	require.NoError(t, limiter.Record429(ctx, "pokeapi.test", 30*time.Second))
	require.NoError(t, limiter.Record429(ctx, "pokeapi.test", 5*time.Second))

	allowed, wait, err := limiter.Allow(ctx, "pokeapi.test")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 30*time.Second, wait, "a shorter Retry-After must not cut an existing backoff")
}

func TestRateLimiterParentDomainLimits(t *testing.T) {
	limiter := &RateLimiter{}

	assert.Equal(t, 100, limiter.limitFor("pokeapi.co").Requests)
	assert.Equal(t, 100, limiter.limitFor("Beta.PokeAPI.co.").Requests)
	assert.Equal(t, 600, limiter.limitFor("localhost").Requests)
	assert.Equal(t, fallbackLimit.Requests, limiter.limitFor("co").Requests)
	assert.Equal(t, fallbackLimit.Requests, limiter.limitFor("example.co").Requests)
	assert.Equal(t, time.Minute, limiter.limitFor("unknown.example").window())
}

func TestRateLimiterOverridesAndMargin(t *testing.T) {
	limiter := &RateLimiter{Store: &memoryRateStore{}}
	limiter.ApplyOverrides(map[string]int{" PokeAPI.co ": 10, "": 5, "bad.example": 0})
	limiter.ApplySafetyMargin(0.9)

	require.Equal(t, 9, limiter.limitFor("pokeapi.co").Requests)
	require.Equal(t, time.Minute, limiter.limitFor("pokeapi.co").window())
	require.NotContains(t, limiter.Limits, "bad.example")
	require.Contains(t, limiter.Limits, "raw.githubusercontent.com")
	require.Equal(t, fallbackLimit.Requests*9/10, limiter.limitFor("unknown.example").Requests)
}

func TestRateLimiterNilIsPermissive(t *testing.T) {
	var limiter *RateLimiter
	allowed, wait, err := limiter.Allow(context.Background(), "pokeapi.co")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, wait)

	allowed, _, err = limiter.Acquire(context.Background(), "pokeapi.co")
	require.NoError(t, err)
	require.True(t, allowed)
	require.NoError(t, limiter.Record(context.Background(), "pokeapi.co"))
}
