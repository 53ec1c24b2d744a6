//go:build cgo

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexplorer/pokedex/internal/config"
	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/detail"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
	"github.com/pokedexplorer/pokedex/internal/core/names"
	"github.com/pokedexplorer/pokedex/internal/core/store"
	"github.com/pokedexplorer/pokedex/internal/observability"
	"github.com/pokedexplorer/pokedex/internal/server"
	"github.com/pokedexplorer/pokedex/internal/server/handlers"
)

// fakeUpstream serves a tiny slice of the public detail API.
func fakeUpstream(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/v2/pokemon", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"count":3,"results":[{"name":"bulbasaur"},{"name":"pikachu"},{"name":"pichu"}]}`)
	})
	r.Get("/api/v2/pokemon/{name}", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		name := chi.URLParam(req, "name")
		if name != "pikachu" {
			http.NotFound(w, req)
			return
		}
		_, _ = io.WriteString(w, `{"id":25,"name":"pikachu","height":4,"weight":60,
			"types":[{"slot":1,"type":{"name":"electric"}}],
			"stats":[{"base_stat":90,"stat":{"name":"speed"}}],
			"cries":{"latest":"https://example.test/25.ogg"}}`)
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func openTempStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, config.StoreConfig{Driver: "libsql", Path: filepath.Join(t.TempDir(), "pokedex.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestProxyCachesAndServesLookups(t *testing.T) {
	require.NoError(t, observability.InitServerLogger("test", observability.ServerLogOptions{Level: "info"}))

	var calls atomic.Int32
	upstream := fakeUpstream(t, &calls)
	db := openTempStore(t)

	limiter := &engine.RateLimiter{Store: db}
	proxy := server.New(server.Options{
		Host: "127.0.0.1",
		Pokemon: &handlers.Pokemon{
			Upstream:   &detail.Client{BaseURL: upstream.URL, PathPrefix: "/api/v2/pokemon", Limiter: limiter},
			Cache:      db,
			TTL:        time.Hour,
			MaxEntries: 10,
			Names:      &names.HTTPSource{URL: upstream.URL + "/api/v2/pokemon"},
		},
	})
	ts := httptest.NewServer(proxy.Handler())
	t.Cleanup(ts.Close)

	client := &detail.Client{BaseURL: ts.URL, PathPrefix: "/api/pokemon"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec, err := client.Fetch(ctx, " Pikachu ")
		require.NoError(t, err)
		assert.Equal(t, 25, rec.ID)
		assert.True(t, rec.HasSound())
	}
	assert.EqualValues(t, 1, calls.Load(), "later lookups are served from the store")

	resp, err := http.Get(ts.URL + "/api/pokemon/pikachu")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "HIT", resp.Header.Get(handlers.CacheHeader))

	_, err = client.Fetch(ctx, "missingno")
	kind, msg := core.Classify(err)
	assert.Equal(t, core.FailureNotFound, kind)
	assert.Equal(t, core.MsgNotFound, msg)

	_, err = client.Fetch(ctx, "missingno")
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "not-found responses are never cached")

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DetailEntries)

	windows, err := db.ListRateLimits(ctx, store.RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.True(t, strings.HasPrefix(upstream.URL, "http://"+windows[0].Host), "window is keyed by upstream host")
}

func TestProxyNameListFeedsSessionSuggestions(t *testing.T) {
	require.NoError(t, observability.InitServerLogger("test", observability.ServerLogOptions{Level: "info"}))

	var calls atomic.Int32
	upstream := fakeUpstream(t, &calls)

	proxy := server.New(server.Options{
		Host: "127.0.0.1",
		Pokemon: &handlers.Pokemon{
			Upstream: &detail.Client{BaseURL: upstream.URL, PathPrefix: "/api/v2/pokemon"},
			Names:    &names.HTTPSource{URL: upstream.URL + "/api/v2/pokemon"},
		},
	})
	ts := httptest.NewServer(proxy.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/pokemon")
	require.NoError(t, err)
	var payload names.ListPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NoError(t, resp.Body.Close())
	require.Len(t, payload.Results, 3)

	session := engine.NewSession(context.Background(), engine.SessionConfig{
		Fetcher: &detail.Client{BaseURL: ts.URL, PathPrefix: "/api/pokemon"},
	})
	session.LoadNames(names.NewIndex(nil), &names.HTTPSource{URL: ts.URL + "/api/pokemon"})
	session.Wait()

	state := session.InputChange("Pi")
	assert.Equal(t, []string{"pikachu", "pichu"}, state.Suggestions)

	session.MoveHighlight(1)
	session.Enter()
	session.Wait()

	state = session.State()
	require.NotNil(t, state.Record, fmt.Sprintf("request: %+v", state.Request))
	assert.Equal(t, "pikachu", state.Record.Name)
	assert.Equal(t, "pikachu", state.QueryText)
}
