// Package names holds the in-memory list of known creature names used for
// autocomplete and random picks.
package names

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// Source produces the full name list.
type Source interface {
	FetchNames(ctx context.Context) ([]string, error)
}

// Index is the ordered set of names. It is loaded at most once and is safe for
// concurrent use; lookups before or after a failed load see an empty index.
type Index struct {
	Logger core.Logger

	once   sync.Once
	mu     sync.RWMutex
	names  []string
	loaded bool
}

// NewIndex returns an empty index.
func NewIndex(logger core.Logger) *Index {
	return &Index{Logger: logger}
}

// Load fetches the list from source the first time it is called. Later calls
// return immediately. Failures are logged and leave the index empty; they are
// never retried.
func (i *Index) Load(ctx context.Context, source Source) {
	i.once.Do(func() {
		if source == nil {
			i.logger().Warn("name list source not configured")
			return
		}

		list, err := source.FetchNames(ctx)
		if err != nil {
			i.logger().Warn("name list unavailable, autocomplete disabled", zap.Error(err))
			return
		}

		i.set(list)
		i.logger().Debug("name list loaded", zap.Int("count", i.Len()))
	})
}

// Names returns a snapshot of the index in source order.
func (i *Index) Names() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]string, len(i.names))
	copy(out, i.names)
	return out
}

// Len returns the number of names.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.names)
}

// Loaded reports whether a load succeeded.
func (i *Index) Loaded() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.loaded
}

func (i *Index) set(list []string) {
	clean := Normalize(list)
	i.mu.Lock()
	i.names = clean
	i.loaded = true
	i.mu.Unlock()
}

func (i *Index) logger() core.Logger {
	if i.Logger == nil {
		return core.NopLogger()
	}
	return i.Logger
}

// Normalize lower-cases and trims names, drops blanks and keeps the first
// occurrence of duplicates.
func Normalize(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, raw := range list {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ErrEmptyList is returned by sources that received a list with no names.
var ErrEmptyList = errors.New("name list is empty")
