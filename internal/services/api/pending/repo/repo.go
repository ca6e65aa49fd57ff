// Package repo provides the Postgres pending queue repository
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"shelfmatch/internal/core/match"
	"shelfmatch/internal/modkit/repokit"
	perr "shelfmatch/internal/platform/errors"
	"shelfmatch/internal/services/api/pending/domain"
)

// Repo is the pending queue persistence surface used by the service layer
type Repo interface {
	// EnsureSchema creates the pending_queries table and its indexes if absent
	EnsureSchema(ctx context.Context) error

	// Insert stores a freshly created query
	Insert(ctx context.Context, q domain.Query) error

	// List returns queries for one status, newest first
	List(ctx context.Context, status string, skip, limit int) ([]domain.Query, error)

	// Count returns the total for one status
	Count(ctx context.Context, status string) (int64, error)

	// CountsFor breaks one backend's queue down by status
	CountsFor(ctx context.Context, backend string) (domain.Counts, error)

	// GetForUpdate claims the row for the duration of the surrounding
	// transaction. Unknown ids return NotFound
	GetForUpdate(ctx context.Context, id string) (domain.Query, error)

	// SetStatus finalizes a claimed row
	SetStatus(ctx context.Context, id, status string, at time.Time) error

	// Delete removes the row and reports whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// HasIgnored reports whether the backend already dismissed this exact
	// normalized text
	HasIgnored(ctx context.Context, backend, normalizedText string) (bool, error)
}

type (
	// PG is a Postgres implementation of the pending repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// EnsureSchema creates the table and indexes. All statements are idempotent
// so repeated boots are harmless
func (r *queries) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS pending_queries (
			id              uuid PRIMARY KEY,
			original_text   text NOT NULL,
			normalized_text text NOT NULL,
			backend         text NOT NULL,
			threshold       double precision NOT NULL,
			candidates      jsonb NOT NULL DEFAULT '[]'::jsonb,
			status          text NOT NULL DEFAULT 'pending',
			created_at      timestamptz NOT NULL DEFAULT now(),
			resolved_at     timestamptz
		)
	`
	if _, err := r.q.Exec(ctx, ddl); err != nil {
		return perr.FromPostgres(err, "create pending_queries")
	}
	if _, err := r.q.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS pending_queries_status_created_idx
		ON pending_queries (status, created_at DESC)
	`); err != nil {
		return perr.FromPostgres(err, "create pending_queries status index")
	}
	// Serves the repeat-failure suppression lookup on the match path
	_, err := r.q.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS pending_queries_ignored_lookup_idx
		ON pending_queries (backend, normalized_text)
		WHERE status = 'ignored'
	`)
	return perr.FromPostgres(err, "create pending_queries ignored index")
}

// Insert stores a freshly created query. The candidate snapshot is frozen
// here; nothing rewrites it later
func (r *queries) Insert(ctx context.Context, q domain.Query) error {
	cands, err := json.Marshal(q.Candidates)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "encode candidate snapshot")
	}
	const sql = `
		INSERT INTO pending_queries (
			id, original_text, normalized_text, backend, threshold, candidates, status, created_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6::jsonb, $7, $8)
	`
	_, err = r.q.Exec(ctx, sql,
		q.ID, q.OriginalText, q.NormalizedText, q.Backend, q.Threshold, string(cands), q.Status, q.CreatedAt,
	)
	return perr.FromPostgresWithField(err, "insert pending query")
}

const selectCols = `
	id::text, original_text, normalized_text, backend, threshold,
	candidates::text, status, created_at, resolved_at
`

func scanQuery(row repokit.Row) (domain.Query, error) {
	var (
		q     domain.Query
		cands string
	)
	if err := row.Scan(
		&q.ID, &q.OriginalText, &q.NormalizedText, &q.Backend, &q.Threshold,
		&cands, &q.Status, &q.CreatedAt, &q.ResolvedAt,
	); err != nil {
		return domain.Query{}, err
	}
	if err := json.Unmarshal([]byte(cands), &q.Candidates); err != nil {
		return domain.Query{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "decode candidate snapshot for %s", q.ID)
	}
	if q.Candidates == nil {
		q.Candidates = []match.Candidate{}
	}
	return q, nil
}

// List returns one page for a status, newest first
func (r *queries) List(ctx context.Context, status string, skip, limit int) ([]domain.Query, error) {
	const sql = `
		SELECT ` + selectCols + `
		FROM pending_queries
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.q.Query(ctx, sql, status, limit, skip)
	if err != nil {
		return nil, perr.FromPostgres(err, "list pending queries")
	}
	defer rows.Close()

	out := make([]domain.Query, 0, limit)
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Count returns the total for one status
func (r *queries) Count(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM pending_queries WHERE status = $1`, status).Scan(&n)
	return n, perr.FromPostgres(err, "count pending queries")
}

// CountsFor breaks one backend's queue down by status
func (r *queries) CountsFor(ctx context.Context, backend string) (domain.Counts, error) {
	const sql = `
		SELECT
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'resolved'),
			count(*) FILTER (WHERE status = 'ignored')
		FROM pending_queries
		WHERE backend = $1
	`
	var c domain.Counts
	err := r.q.QueryRow(ctx, sql, backend).Scan(&c.Pending, &c.Resolved, &c.Ignored)
	return c, perr.FromPostgres(err, "count pending queries by status")
}

// GetForUpdate claims the row. The lock is what serializes concurrent
// resolves on the same id; callers must run inside a transaction
func (r *queries) GetForUpdate(ctx context.Context, id string) (domain.Query, error) {
	const sql = `
		SELECT ` + selectCols + `
		FROM pending_queries
		WHERE id = $1::uuid
		FOR UPDATE
	`
	q, err := scanQuery(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Query{}, perr.NotFoundf("pending query %s not found", id)
		}
		return domain.Query{}, perr.FromPostgres(err, "claim pending query")
	}
	return q, nil
}

// SetStatus finalizes a claimed row
func (r *queries) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	const sql = `UPDATE pending_queries SET status = $2, resolved_at = $3 WHERE id = $1::uuid`
	_, err := r.q.Exec(ctx, sql, id, status, at)
	return perr.FromPostgres(err, "finalize pending query")
}

// Delete removes the row and reports whether it existed
func (r *queries) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM pending_queries WHERE id = $1::uuid`, id)
	if err != nil {
		return false, perr.FromPostgres(err, "delete pending query")
	}
	return tag.RowsAffected() > 0, nil
}

// HasIgnored reports whether the backend already dismissed this exact
// normalized text
func (r *queries) HasIgnored(ctx context.Context, backend, normalizedText string) (bool, error) {
	const sql = `
		SELECT EXISTS (
			SELECT 1 FROM pending_queries
			WHERE backend = $1 AND normalized_text = $2 AND status = 'ignored'
		)
	`
	var ok bool
	err := r.q.QueryRow(ctx, sql, backend, normalizedText).Scan(&ok)
	return ok, perr.FromPostgres(err, "check ignored queries")
}
