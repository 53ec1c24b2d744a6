package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/detail"
	"github.com/pokedexplorer/pokedex/internal/core/names"
	"github.com/pokedexplorer/pokedex/internal/core/store"
	apperrors "github.com/pokedexplorer/pokedex/internal/errors"
	"github.com/pokedexplorer/pokedex/internal/metrics"
)

// CacheHeader reports whether a detail body came from the cache.
const CacheHeader = "X-Cache"

// DetailSource returns the raw upstream detail document for a name.
type DetailSource interface {
	FetchRaw(ctx context.Context, name string) ([]byte, error)
}

// DetailCache stores raw detail documents.
type DetailCache interface {
	GetDetail(ctx context.Context, name string) (*store.DetailEntry, error)
	SetDetail(ctx context.Context, name string, body []byte, statusCode int, ttl time.Duration) error
	TrimDetails(ctx context.Context, keep int) (int64, error)
}

// Pokemon serves the detail proxy and the name list.
type Pokemon struct {
	Upstream   DetailSource
	Cache      DetailCache
	TTL        time.Duration
	MaxEntries int
	Names      names.Source
	Logger     core.Logger

	group singleflight.Group
}

type fetched struct {
	body []byte
}

// Detail handles GET /api/pokemon/{name}. Fresh cache entries are served
// without touching the upstream; concurrent misses for one name share a
// single upstream request.
func (p *Pokemon) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "name")
	name := detail.Normalize(raw)
	if name == "" {
		respondLookupError(w, r, raw, core.ErrEmptyQuery)
		return
	}

	if body, ok := p.cached(ctx, name); ok {
		writeDetail(w, body, "HIT")
		return
	}

	result, err, _ := p.group.Do(name, func() (any, error) {
		return p.fetch(context.WithoutCancel(ctx), name)
	})
	if err != nil {
		respondLookupError(w, r, name, err)
		return
	}
	writeDetail(w, result.(fetched).body, "MISS")
}

func (p *Pokemon) cached(ctx context.Context, name string) ([]byte, bool) {
	if p.Cache == nil {
		return nil, false
	}
	entry, err := p.Cache.GetDetail(ctx, name)
	if err != nil {
		p.logger().Warn("detail cache read failed", zap.String("name", name), zap.Error(err))
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	metrics.RecordCacheLookup(entry != nil)
	if entry == nil {
		return nil, false
	}
	return entry.Body, true
}

func (p *Pokemon) fetch(ctx context.Context, name string) (fetched, error) {
	if p.Upstream == nil {
		return fetched{}, &core.FetchError{Kind: core.FailureTransport, Name: name}
	}

	started := time.Now()
	body, err := p.Upstream.FetchRaw(ctx, name)
	kind, _ := core.Classify(err)
	outcome := "success"
	if err != nil {
		outcome = kind.String()
	}
	metrics.RecordUpstreamFetch(outcome, time.Since(started))
	if err != nil {
		return fetched{}, err
	}

	p.store(ctx, name, body)
	return fetched{body: body}, nil
}

func (p *Pokemon) store(ctx context.Context, name string, body []byte) {
	if p.Cache == nil || p.TTL <= 0 {
		return
	}
	if err := p.Cache.SetDetail(ctx, name, body, http.StatusOK, p.TTL); err != nil {
		p.logger().Warn("detail cache write failed", zap.String("name", name), zap.Error(err))
		return
	}
	evicted, err := p.Cache.TrimDetails(ctx, p.MaxEntries)
	if err != nil {
		p.logger().Warn("detail cache trim failed", zap.Error(err))
		return
	}
	metrics.RecordCacheEvictions(evicted)
}

// List handles GET /api/pokemon with the same shape as the upstream list.
func (p *Pokemon) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if p.Names == nil {
		respondWithError(w, r, apperrors.NewUnavailableError("name list is not configured"))
		return
	}

	list, err := p.Names.FetchNames(ctx)
	if err != nil {
		respondWithError(w, r, apperrors.WrapExternalService(ctx, err, "name list unavailable"))
		return
	}
	metrics.SetNameListSize(len(list))

	payload := names.ListPayload{Count: len(list), Results: make([]names.ListEntry, 0, len(list))}
	for _, name := range list {
		payload.Results = append(payload.Results, names.ListEntry{Name: name, URL: "/api/pokemon/" + name})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}

func (p *Pokemon) logger() core.Logger {
	if p.Logger == nil {
		return core.NopLogger()
	}
	return p.Logger
}

func writeDetail(w http.ResponseWriter, body []byte, cache string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(CacheHeader, cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
