package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// GetRateLimit returns the stored request window for host, or nil when the
// host has no window yet.
func (s *Store) GetRateLimit(ctx context.Context, host string) (*core.RateLimitState, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	if host = hostKey(host); host == "" {
		return nil, errors.New("host is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT host, request_count, window_start, backoff_until, last_429_at
		FROM rate_limits
		WHERE host = ?
	`, host)

	entry, err := scanRateLimit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}
	return &entry.State, nil
}

// UpdateRateLimit persists the request window for host.
func (s *Store) UpdateRateLimit(ctx context.Context, host string, state *core.RateLimitState) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	if host = hostKey(host); host == "" {
		return errors.New("host is required")
	}
	if state == nil {
		return errors.New("rate limit state is required")
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (host, request_count, window_start, backoff_until, last_429_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			request_count = excluded.request_count,
			window_start = excluded.window_start,
			backoff_until = excluded.backoff_until,
			last_429_at = excluded.last_429_at
	`, host, state.RequestCount, state.WindowStart.UTC().Unix(), nullUnix(state.BackoffUntil), nullUnix(state.Last429At))
	if err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}
	return nil
}

// RateLimitEntry pairs a host with its stored window.
type RateLimitEntry struct {
	Host  string
	State core.RateLimitState
}

// RateLimitQuery selects rows for the rate-limit list and reset commands.
// Host matches one host exactly. Suffix matches a domain and every subdomain
// of it, so "pokeapi.co" selects "beta.pokeapi.co" but not "notpokeapi.co".
type RateLimitQuery struct {
	All    bool
	Host   string
	Suffix string
}

func (q RateLimitQuery) Validate() error {
	if q.All || hostKey(q.Host) != "" || hostKey(q.Suffix) != "" {
		return nil
	}
	return errors.New("must specify --all, --host, or --suffix")
}

func (q RateLimitQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	switch {
	case q.All:
		return "", nil, nil
	case hostKey(q.Host) != "":
		return "WHERE host = ?", []any{hostKey(q.Host)}, nil
	}
	domain := strings.TrimLeft(hostKey(q.Suffix), ".")
	return `WHERE host = ? OR host LIKE ? ESCAPE '\'`, []any{domain, "%." + likeEscaper.Replace(domain)}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func hostKey(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// ListRateLimits returns the matching windows ordered by host.
func (s *Store) ListRateLimits(ctx context.Context, q RateLimitQuery) ([]RateLimitEntry, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT host, request_count, window_start, backoff_until, last_429_at
		FROM rate_limits `+where+`
		ORDER BY host`, args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var entries []RateLimitEntry
	for rows.Next() {
		entry, err := scanRateLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate limit: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ResetRateLimits deletes the matching windows and reports how many went.
func (s *Store) ResetRateLimits(ctx context.Context, q RateLimitQuery) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, "DELETE FROM rate_limits "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRateLimit(row rowScanner) (RateLimitEntry, error) {
	var (
		entry        RateLimitEntry
		windowStart  int64
		backoffUntil sql.NullInt64
		last429At    sql.NullInt64
	)
	if err := row.Scan(&entry.Host, &entry.State.RequestCount, &windowStart, &backoffUntil, &last429At); err != nil {
		return RateLimitEntry{}, err
	}
	entry.State.WindowStart = time.Unix(windowStart, 0).UTC()
	entry.State.BackoffUntil = unixPtr(backoffUntil)
	entry.State.Last429At = unixPtr(last429At)
	return entry, nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}
