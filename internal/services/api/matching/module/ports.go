package module

import (
	"context"

	"shelfmatch/internal/services/api/matching/domain"
	msvc "shelfmatch/internal/services/api/matching/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// adaptMatchingPort exposes service methods as module ports for cross-module usage
type adaptMatchingPort struct{ svc msvc.Service }

func (a adaptMatchingPort) Match(ctx context.Context, in domain.MatchInput) (domain.MatchResult, error) {
	return a.svc.Match(ctx, in)
}

func (a adaptMatchingPort) Settings() domain.Settings { return a.svc.Settings() }

func (a adaptMatchingPort) Languages() []string { return a.svc.Languages() }

func (a adaptMatchingPort) Stats(ctx context.Context, backend string) (domain.BackendStats, error) {
	return a.svc.Stats(ctx, backend)
}

func (a adaptMatchingPort) Logs(ctx context.Context, in domain.LogsInput) (domain.LogsResponse, error) {
	return a.svc.Logs(ctx, in)
}

func (a adaptMatchingPort) Info() domain.MatcherInfo { return a.svc.Info() }
