package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DetailEntry is one cached upstream detail body.
type DetailEntry struct {
	Name       string
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
	ExpiresAt  time.Time
	Hits       int
}

// CacheStats summarizes the cache tables.
type CacheStats struct {
	DetailEntries int
	DetailExpired int
	DetailBytes   int64
	DetailHits    int64
	NameLists     int
	NameCount     int
	Oldest        *time.Time
	Newest        *time.Time
}

// GetDetail returns the cached body for name if it has not expired. A miss is
// (nil, nil).
func (s *Store) GetDetail(ctx context.Context, name string) (*DetailEntry, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	key := cacheKey(name)
	if key == "" {
		return nil, errors.New("cache name is required")
	}

	var (
		body      string
		status    int
		fetchedAt int64
		expiresAt int64
		hits      int
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT body, status_code, fetched_at, expires_at, hits
		FROM detail_cache
		WHERE name = ? AND expires_at > ?
	`, key, time.Now().UTC().Unix())
	if err := row.Scan(&body, &status, &fetchedAt, &expiresAt, &hits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached detail: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE detail_cache SET hits = hits + 1 WHERE name = ?`, key); err != nil {
		return nil, fmt.Errorf("record cache hit: %w", err)
	}

	return &DetailEntry{
		Name:       key,
		Body:       []byte(body),
		StatusCode: status,
		FetchedAt:  time.Unix(fetchedAt, 0).UTC(),
		ExpiresAt:  time.Unix(expiresAt, 0).UTC(),
		Hits:       hits + 1,
	}, nil
}

// SetDetail stores body for name with a TTL. A non-positive TTL disables
// caching.
func (s *Store) SetDetail(ctx context.Context, name string, body []byte, statusCode int, ttl time.Duration) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if ttl <= 0 || len(body) == 0 {
		return nil
	}

	key := cacheKey(name)
	if key == "" {
		return errors.New("cache name is required")
	}

	now := time.Now().UTC()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO detail_cache (name, body, status_code, fetched_at, expires_at, hits)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			status_code = excluded.status_code,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, key, string(body), statusCode, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached detail: %w", err)
	}
	return nil
}

// TrimDetails removes the oldest entries until at most keep remain. keep <= 0
// means unbounded.
func (s *Store) TrimDetails(ctx context.Context, keep int) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	if keep <= 0 {
		return 0, nil
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM detail_cache
		WHERE name IN (
			SELECT name FROM detail_cache
			ORDER BY fetched_at DESC, name
			LIMIT -1 OFFSET ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim detail cache: %w", err)
	}
	return result.RowsAffected()
}

// PruneExpired deletes expired detail and name list entries.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC().Unix()
	var total int64
	for _, table := range []string{"detail_cache", "name_cache"} {
		result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, table), now)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		total += affected
	}
	return total, nil
}

// ClearCache deletes every cached detail and name list.
func (s *Store) ClearCache(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, table := range []string{"detail_cache", "name_cache"} {
		result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
		if err != nil {
			return total, fmt.Errorf("clear %s: %w", table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("clear %s: %w", table, err)
		}
		total += affected
	}
	return total, nil
}

// Stats reports cache sizes.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	var (
		stats  CacheStats
		oldest sql.NullInt64
		newest sql.NullInt64
	)
	now := time.Now().UTC().Unix()
	row := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(LENGTH(body)), 0),
			COALESCE(SUM(hits), 0),
			MIN(fetched_at),
			MAX(fetched_at)
		FROM detail_cache
	`, now)
	if err := row.Scan(&stats.DetailEntries, &stats.DetailExpired, &stats.DetailBytes, &stats.DetailHits, &oldest, &newest); err != nil {
		return nil, fmt.Errorf("detail cache stats: %w", err)
	}
	stats.Oldest = unixPtr(oldest)
	stats.Newest = unixPtr(newest)

	row = s.DB.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(count), 0) FROM name_cache`)
	if err := row.Scan(&stats.NameLists, &stats.NameCount); err != nil {
		return nil, fmt.Errorf("name cache stats: %w", err)
	}
	return &stats, nil
}

// GetNameList returns the stored name list for source if it has not expired.
// A miss is (nil, nil).
func (s *Store) GetNameList(ctx context.Context, source string) ([]string, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("name list source is required")
	}

	var payload string
	row := s.DB.QueryRowContext(ctx, `
		SELECT names FROM name_cache WHERE source = ? AND expires_at > ?
	`, source, time.Now().UTC().Unix())
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached names: %w", err)
	}

	var list []string
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, fmt.Errorf("decode cached names: %w", err)
	}
	return list, nil
}

// SetNameList stores a name list snapshot for source.
func (s *Store) SetNameList(ctx context.Context, source string, names []string, ttl time.Duration) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if ttl <= 0 || len(names) == 0 {
		return nil
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return errors.New("name list source is required")
	}

	payload, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode cached names: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO name_cache (source, names, count, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			names = excluded.names,
			count = excluded.count,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, source, string(payload), len(names), now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached names: %w", err)
	}
	return nil
}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func unixPtr(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := time.Unix(value.Int64, 0).UTC()
	return &t
}
