package names

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// ListCache persists a name list snapshot.
type ListCache interface {
	GetNameList(ctx context.Context, source string) ([]string, error)
	SetNameList(ctx context.Context, source string, names []string, ttl time.Duration) error
}

// CachedSource serves the list from a ListCache while it is fresh and falls
// back to Upstream otherwise. Cache errors are logged and ignored.
type CachedSource struct {
	Cache    ListCache
	Upstream Source
	Key      string
	TTL      time.Duration
	Logger   core.Logger
}

// FetchNames implements Source.
func (c *CachedSource) FetchNames(ctx context.Context) ([]string, error) {
	logger := c.Logger
	if logger == nil {
		logger = core.NopLogger()
	}

	if c.Cache != nil {
		cached, err := c.Cache.GetNameList(ctx, c.Key)
		if err != nil {
			logger.Warn("name cache read failed", zap.Error(err))
		} else if len(cached) > 0 {
			logger.Debug("name list served from cache", zap.Int("count", len(cached)))
			return cached, nil
		}
	}

	list, err := c.Upstream.FetchNames(ctx)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil && c.TTL > 0 {
		if err := c.Cache.SetNameList(ctx, c.Key, Normalize(list), c.TTL); err != nil {
			logger.Warn("name cache write failed", zap.Error(err))
		}
	}
	return list, nil
}
