//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/core/names"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestOpenMemoryStore(t *testing.T) {
	s := openMemory(t)
	require.Equal(t, "libsql", s.Driver())
	require.True(t, s.Local())
	// Migrate is idempotent.
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.DB.QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, SchemaVersion(), version)
}

func TestOpenFileStoreTunesSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: "file:" + t.TempDir() + "/pokedex.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))

	require.Equal(t, 1, s.DB.Stats().MaxOpenConnections)

	var journal string
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
	require.Contains(t, journal, "wal")

	var busy int
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy))
	require.GreaterOrEqual(t, busy, 1000)

	for _, table := range []string{"detail_cache", "name_cache", "rate_limits"} {
		var n int
		require.NoError(t, s.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n))
		require.Equal(t, 1, n, table)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.Error(t, err)
}

func TestDetailCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	entry, err := s.GetDetail(ctx, "pikachu")
	require.NoError(t, err)
	require.Nil(t, entry)

	body := []byte(`{"id":25,"name":"pikachu"}`)
	require.NoError(t, s.SetDetail(ctx, " Pikachu ", body, 200, time.Hour))

	entry, err = s.GetDetail(ctx, "PIKACHU")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "pikachu", entry.Name)
	require.Equal(t, body, entry.Body)
	require.Equal(t, 200, entry.StatusCode)
	require.Equal(t, 1, entry.Hits)

	entry, err = s.GetDetail(ctx, "pikachu")
	require.NoError(t, err)
	require.Equal(t, 2, entry.Hits)
}

func TestDetailCacheSkipsZeroTTLAndExpired(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.SetDetail(ctx, "eevee", []byte(`{}`), 200, 0))
	entry, err := s.GetDetail(ctx, "eevee")
	require.NoError(t, err)
	require.Nil(t, entry)

	_, err = s.DB.ExecContext(ctx, `INSERT INTO detail_cache (name, body, status_code, fetched_at, expires_at) VALUES ('ditto', '{}', 200, 1, 2)`)
	require.NoError(t, err)
	entry, err = s.GetDetail(ctx, "ditto")
	require.NoError(t, err)
	require.Nil(t, entry)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.DetailEntries)
	require.Equal(t, 1, stats.DetailExpired)

	pruned, err := s.PruneExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

func TestTrimDetailsKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	for i, name := range []string{"bulbasaur", "ivysaur", "venusaur"} {
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO detail_cache (name, body, status_code, fetched_at, expires_at)
			VALUES (?, '{}', 200, ?, ?)
		`, name, 100+i, time.Now().Add(time.Hour).Unix())
		require.NoError(t, err)
	}

	removed, err := s.TrimDetails(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	entry, err := s.GetDetail(ctx, "bulbasaur")
	require.NoError(t, err)
	require.Nil(t, entry)
	entry, err = s.GetDetail(ctx, "venusaur")
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestNameListCache(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	var _ names.ListCache = s

	list, err := s.GetNameList(ctx, names.DefaultListURL)
	require.NoError(t, err)
	require.Nil(t, list)

	require.NoError(t, s.SetNameList(ctx, names.DefaultListURL, []string{"bulbasaur", "pikachu"}, time.Hour))
	list, err = s.GetNameList(ctx, names.DefaultListURL)
	require.NoError(t, err)
	require.Equal(t, []string{"bulbasaur", "pikachu"}, list)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.NameLists)
	require.Equal(t, 2, stats.NameCount)

	cleared, err := s.ClearCache(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)
}

func TestRateLimitPersistence(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	state, err := s.GetRateLimit(ctx, "pokeapi.co")
	require.NoError(t, err)
	require.Nil(t, state)

	backoff := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateRateLimit(ctx, "pokeapi.co", &core.RateLimitState{
		RequestCount: 3,
		WindowStart:  time.Now().UTC().Truncate(time.Second),
		BackoffUntil: &backoff,
	}))

	state, err = s.GetRateLimit(ctx, "pokeapi.co")
	require.NoError(t, err)
	require.Equal(t, 3, state.RequestCount)
	require.NotNil(t, state.BackoffUntil)
	require.True(t, backoff.Equal(*state.BackoffUntil))
	require.Nil(t, state.Last429At)

	entries, err := s.ListRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "pokeapi.co", entries[0].Host)

	removed, err := s.ResetRateLimits(ctx, RateLimitQuery{Suffix: ".co"})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}

func TestRateLimitSuffixMatchesSubdomainsOnly(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	window := &core.RateLimitState{RequestCount: 1, WindowStart: time.Now().UTC()}
	for _, host := range []string{"pokeapi.co", "Beta.PokeAPI.co", "notpokeapi.co"} {
		require.NoError(t, s.UpdateRateLimit(ctx, host, window))
	}

	entries, err := s.ListRateLimits(ctx, RateLimitQuery{Suffix: "pokeapi.co"})
	require.NoError(t, err)
	hosts := make([]string, 0, len(entries))
	for _, e := range entries {
		hosts = append(hosts, e.Host)
	}
	require.Equal(t, []string{"beta.pokeapi.co", "pokeapi.co"}, hosts)

	removed, err := s.ResetRateLimits(ctx, RateLimitQuery{Suffix: "pokeapi.co"})
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	rest, err := s.ListRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "notpokeapi.co", rest[0].Host)
}

func TestRateLimiterOverStore(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	limiter := &engine.RateLimiter{Store: s, Limits: map[string]engine.RateLimit{"pokeapi.co": {Requests: 1}}}
	allowed, _, err := limiter.Acquire(ctx, "beta.pokeapi.co")
	require.NoError(t, err)
	require.True(t, allowed)

	state, err := s.GetRateLimit(ctx, "beta.pokeapi.co")
	require.NoError(t, err)
	require.Equal(t, 1, state.RequestCount)

	allowed, wait, err := limiter.Allow(ctx, "beta.pokeapi.co")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Positive(t, wait)
}
