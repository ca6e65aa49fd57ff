// Package service provides the matchlog service implementation
package service

import (
	"context"
	"time"

	"shelfmatch/internal/services/matchlog/domain"
	"shelfmatch/internal/services/matchlog/repo"

	"github.com/google/uuid"
)

// Config for the matchlog service
type Config struct {
	HardLimit int
}

// Service implements domain.RecorderPort and domain.QueryPort directly
// against the CH repo
type Service struct {
	Storage repo.Storage
	Cfg     Config
}

// New constructs a matchlog service with a required storage
func New(storage repo.Storage, cfg Config) *Service {
	if cfg.HardLimit <= 0 {
		cfg.HardLimit = 100
	}
	return &Service{Storage: storage, Cfg: cfg}
}

// Record implements domain.RecorderPort. Zero ID and CreatedAt are filled in
func (s *Service) Record(ctx context.Context, ev domain.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return s.Storage.InsertEvents(ctx, []domain.Event{ev})
}

// Recent implements domain.QueryPort
func (s *Service) Recent(ctx context.Context, backend string, skip, limit int) ([]domain.Event, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > s.Cfg.HardLimit {
		limit = s.Cfg.HardLimit
	}
	return s.Storage.Recent(ctx, backend, skip, limit)
}

// Count implements domain.QueryPort
func (s *Service) Count(ctx context.Context, backend string, onlySuccess bool) (uint64, error) {
	return s.Storage.Count(ctx, backend, onlySuccess)
}

// Stats implements domain.QueryPort. A zero Until means now; a zero Since
// means everything on record
func (s *Service) Stats(ctx context.Context, w domain.Window) (domain.Stats, error) {
	if w.Until.IsZero() {
		w.Until = time.Now().UTC()
	}
	if w.Since.IsZero() {
		w.Since = time.Unix(0, 0).UTC()
	}
	return s.Storage.Stats(ctx, w)
}
