// Package service implements the pending queue manager
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"shelfmatch/internal/core/match"
	"shelfmatch/internal/modkit/repokit"
	perr "shelfmatch/internal/platform/errors"

	bdomain "shelfmatch/internal/services/api/backends/domain"
	"shelfmatch/internal/services/api/pending/domain"
	prepo "shelfmatch/internal/services/api/pending/repo"
)

// Service is the concrete implementation of domain.ServicePort
type Service interface {
	domain.ServicePort
}

// Config controls listing bounds
type Config struct {
	// DefaultLimit applies when the caller sends no limit; defaults to 50
	DefaultLimit int

	// HardLimit caps any requested page size; defaults to 200
	HardLimit int
}

// Svc implements the pending queue manager
type Svc struct {
	db       repokit.TxRunner
	binder   repokit.Binder[prepo.Repo]
	repo     prepo.Repo
	backends bdomain.ResolverPort
	cfg      Config
}

// New constructs the service
func New(db repokit.TxRunner, binder repokit.Binder[prepo.Repo], backends bdomain.ResolverPort, cfg Config) *Svc {
	if db == nil {
		panic("pending.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("pending.Service requires a non nil repo Binder")
	}
	if backends == nil {
		panic("pending.Service requires a non nil backend resolver")
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.HardLimit <= 0 {
		cfg.HardLimit = 200
	}
	return &Svc{
		db:       db,
		binder:   binder,
		repo:     binder.Bind(db),
		backends: backends,
		cfg:      cfg,
	}
}

// Create opens a fresh record for a failed match. Repeated failures of the
// same text open new records on purpose; the queue is an audit trail, not a
// dedupe set
func (s *Svc) Create(ctx context.Context, in domain.CreateInput) (domain.Query, error) {
	q := domain.Query{
		ID:             uuid.NewString(),
		OriginalText:   in.OriginalText,
		NormalizedText: in.NormalizedText,
		Backend:        in.Backend,
		Threshold:      in.Threshold,
		Candidates:     in.Candidates,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if q.Candidates == nil {
		q.Candidates = []match.Candidate{}
	}
	if err := s.repo.Insert(ctx, q); err != nil {
		return domain.Query{}, err
	}
	return q, nil
}

// List pages the queue newest first. An empty status means pending
func (s *Svc) List(ctx context.Context, in domain.ListInput) (domain.ListResponse, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = domain.StatusPending
	}
	if !domain.KnownStatus(status) {
		return domain.ListResponse{}, perr.InvalidArgf("unknown status %q", in.Status)
	}

	skip := in.Skip
	if skip < 0 {
		skip = 0
	}
	limit := in.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.HardLimit {
		limit = s.cfg.HardLimit
	}

	data, err := s.repo.List(ctx, status, skip, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}
	count, err := s.repo.Count(ctx, status)
	if err != nil {
		return domain.ListResponse{}, err
	}
	if data == nil {
		data = []domain.Query{}
	}
	return domain.ListResponse{Data: data, Count: count}, nil
}

// Resolve applies a human verdict exactly once. The row lock taken by
// GetForUpdate serializes concurrent resolves on the same id: whoever loses
// the race sees a non pending status and gets a conflict, with zero adapter
// writes on their behalf
func (s *Svc) Resolve(ctx context.Context, in domain.ResolveInput) (domain.Query, error) {
	var out domain.Query
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.binder.Bind(q)

		row, err := repo.GetForUpdate(ctx, in.PendingQueryID)
		if err != nil {
			return err
		}
		if row.Status != domain.StatusPending {
			return perr.Newf(perr.ErrorCodeConflict, "pending query %s already %s", row.ID, row.Status)
		}

		switch in.Action {
		case domain.ActionAssign:
			if err := s.assign(ctx, row, in); err != nil {
				return err
			}
			row.Status = domain.StatusResolved
		case domain.ActionIgnore:
			row.Status = domain.StatusIgnored
		default:
			return perr.Newf(perr.ErrorCodeValidation, "unknown action %q", in.Action)
		}

		now := time.Now().UTC()
		if err := repo.SetStatus(ctx, row.ID, row.Status, now); err != nil {
			return err
		}
		row.ResolvedAt = &now
		out = row
		return nil
	})
	if err != nil {
		return domain.Query{}, err
	}
	return out, nil
}

// assign writes the learned alias to the owning backend. It runs while the
// row lock is held: a failed alias write aborts the transaction and the
// query stays pending
func (s *Svc) assign(ctx context.Context, row domain.Query, in domain.ResolveInput) error {
	if strings.TrimSpace(in.ProductID) == "" {
		return perr.New(perr.ErrorCodeValidation, "product_id is required when action is assign")
	}
	b, ok := s.backends.Get(row.Backend)
	if !ok {
		return perr.Newf(perr.ErrorCodeUnavailable, "backend %q is no longer configured", row.Backend)
	}

	alias := strings.TrimSpace(in.CustomAlias)
	if alias == "" {
		alias = row.NormalizedText
	}
	if err := b.Adapter.AddAlias(ctx, in.ProductID, alias); err != nil {
		// A missing product is the caller's mistake; anything else means the
		// backend could not take the write right now
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return err
		}
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "backend %q alias write failed", row.Backend)
	}
	return nil
}

// Delete removes a query regardless of status and never touches the adapter
func (s *Svc) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return perr.NotFoundf("pending query %s not found", id)
	}
	return nil
}

// HasIgnored reports whether this exact normalized text was already
// dismissed for the backend
func (s *Svc) HasIgnored(ctx context.Context, backend, normalizedText string) (bool, error) {
	return s.repo.HasIgnored(ctx, backend, normalizedText)
}

// CountsFor breaks the backend's queue down by status
func (s *Svc) CountsFor(ctx context.Context, backend string) (domain.Counts, error) {
	return s.repo.CountsFor(ctx, backend)
}
