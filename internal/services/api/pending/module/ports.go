package module

import (
	"context"

	"shelfmatch/internal/services/api/pending/domain"
	psvc "shelfmatch/internal/services/api/pending/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// adaptPendingPort exposes service methods as module ports for cross-module usage
type adaptPendingPort struct{ svc psvc.Service }

func (a adaptPendingPort) Create(ctx context.Context, in domain.CreateInput) (domain.Query, error) {
	return a.svc.Create(ctx, in)
}

func (a adaptPendingPort) List(ctx context.Context, in domain.ListInput) (domain.ListResponse, error) {
	return a.svc.List(ctx, in)
}

func (a adaptPendingPort) Resolve(ctx context.Context, in domain.ResolveInput) (domain.Query, error) {
	return a.svc.Resolve(ctx, in)
}

func (a adaptPendingPort) Delete(ctx context.Context, id string) error {
	return a.svc.Delete(ctx, id)
}

func (a adaptPendingPort) HasIgnored(ctx context.Context, backend, normalizedText string) (bool, error) {
	return a.svc.HasIgnored(ctx, backend, normalizedText)
}

func (a adaptPendingPort) CountsFor(ctx context.Context, backend string) (domain.Counts, error) {
	return a.svc.CountsFor(ctx, backend)
}
