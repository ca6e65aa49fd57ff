// Package repo provides the matchlog repository over ClickHouse
package repo

import (
	"context"
	"fmt"
	"strings"

	"shelfmatch/internal/platform/store"
	"shelfmatch/internal/services/matchlog/domain"

	"github.com/google/uuid"
)

// matchEventsTable is the fully qualified events table
const matchEventsTable = "shelfmatch.match_events"

// Storage defines the matchlog repository
type Storage interface {
	EnsureSchema(ctx context.Context) error
	InsertEvents(ctx context.Context, xs []domain.Event) error
	Recent(ctx context.Context, backend string, skip, limit int) ([]domain.Event, error)
	Count(ctx context.Context, backend string, onlySuccess bool) (uint64, error)
	Stats(ctx context.Context, w domain.Window) (domain.Stats, error)
}

// NewCH constructs the repository over the ClickHouse seam
func NewCH(ch store.Clickhouse) Storage { return &chStore{ch: ch} }

type chStore struct{ ch store.Clickhouse }

// EnsureSchema creates the database and events table when missing. Batch
// inserts append values in DDL column order; keep the two in sync
func (s *chStore) EnsureSchema(ctx context.Context) error {
	if err := s.ch.Exec(ctx, `CREATE DATABASE IF NOT EXISTS shelfmatch`); err != nil {
		return err
	}
	return s.ch.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+matchEventsTable+` (
			id                 UUID,
			created_at         DateTime64(3, 'UTC'),
			backend            LowCardinality(String),
			language           LowCardinality(String),
			raw_text           String,
			normalized_text    String,
			success            UInt8,
			strategy           LowCardinality(String),
			confidence         Float64,
			product_id         String,
			matched_alias      String,
			candidates_checked UInt32,
			elapsed_ms         Float64
		)
		ENGINE = MergeTree
		PARTITION BY toYYYYMM(created_at)
		ORDER BY (backend, created_at)
		TTL toDateTime(created_at) + INTERVAL 90 DAY`)
}

// InsertEvents writes a batch in one native insert
func (s *chStore) InsertEvents(ctx context.Context, xs []domain.Event) error {
	if len(xs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(xs))
	for _, ev := range xs {
		id, err := uuid.Parse(ev.ID)
		if err != nil {
			return fmt.Errorf("matchlog: event id %q: %w", ev.ID, err)
		}
		checked := ev.Checked
		if checked < 0 {
			checked = 0
		}
		rows = append(rows, []any{
			id,
			ev.CreatedAt.UTC(),
			ev.Backend,
			ev.Language,
			ev.RawText,
			ev.Normalized,
			boolToUInt8(ev.Success),
			ev.Strategy,
			ev.Confidence,
			ev.ProductID,
			ev.Alias,
			uint32(checked),
			ev.ElapsedMs,
		})
	}
	return s.ch.Insert(ctx, matchEventsTable, rows)
}

// Recent returns the newest events, optionally filtered to one backend
func (s *chStore) Recent(ctx context.Context, backend string, skip, limit int) ([]domain.Event, error) {
	sql := `
		SELECT toString(id), created_at, backend, language, raw_text,
		       normalized_text, success, strategy, confidence, product_id,
		       matched_alias, candidates_checked, elapsed_ms
		FROM ` + matchEventsTable
	var args []any
	if backend != "" {
		sql += `
		WHERE backend = ?`
		args = append(args, backend)
	}
	sql += `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.ch.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Event, 0, limit)
	for rows.Next() {
		var (
			ev      domain.Event
			success uint8
			checked uint32
		)
		if err := rows.Scan(
			&ev.ID, &ev.CreatedAt, &ev.Backend, &ev.Language, &ev.RawText,
			&ev.Normalized, &success, &ev.Strategy, &ev.Confidence, &ev.ProductID,
			&ev.Alias, &checked, &ev.ElapsedMs,
		); err != nil {
			return nil, err
		}
		ev.Success = success != 0
		ev.Checked = int(checked)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Count returns how many events are on record, optionally for one backend
// and optionally successes only
func (s *chStore) Count(ctx context.Context, backend string, onlySuccess bool) (uint64, error) {
	sql := `SELECT toUInt64(count()) FROM ` + matchEventsTable
	var (
		conds []string
		args  []any
	)
	if backend != "" {
		conds = append(conds, "backend = ?")
		args = append(args, backend)
	}
	if onlySuccess {
		conds = append(conds, "success = 1")
	}
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}

	rows, err := s.ch.Query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n uint64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// Stats aggregates outcomes over a window
func (s *chStore) Stats(ctx context.Context, w domain.Window) (domain.Stats, error) {
	st := domain.Stats{ByStrategy: map[string]uint64{}}

	totals, err := s.ch.Query(ctx, `
		SELECT toUInt64(count()), toUInt64(countIf(success = 1))
		FROM `+matchEventsTable+`
		WHERE created_at >= ? AND created_at < ?`,
		w.Since.UTC(), w.Until.UTC(),
	)
	if err != nil {
		return st, err
	}
	if totals.Next() {
		if err := totals.Scan(&st.Total, &st.Matched); err != nil {
			totals.Close()
			return st, err
		}
	}
	if err := totals.Err(); err != nil {
		totals.Close()
		return st, err
	}
	totals.Close()
	st.Missed = st.Total - st.Matched

	byStrat, err := s.ch.Query(ctx, `
		SELECT strategy, toUInt64(count())
		FROM `+matchEventsTable+`
		WHERE success = 1 AND created_at >= ? AND created_at < ?
		GROUP BY strategy
		ORDER BY strategy`,
		w.Since.UTC(), w.Until.UTC(),
	)
	if err != nil {
		return st, err
	}
	defer byStrat.Close()
	for byStrat.Next() {
		var (
			name string
			n    uint64
		)
		if err := byStrat.Scan(&name, &n); err != nil {
			return st, err
		}
		st.ByStrategy[name] = n
	}
	return st, byStrat.Err()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
