package domain

import "context"

// ServicePort is the pending queue surface consumed by the HTTP layer and by
// the matching module
type ServicePort interface {
	// Create opens a fresh record for a failed match. Repeated failures of
	// the same text open new records; there is no upsert
	Create(ctx context.Context, in CreateInput) (Query, error)

	// List pages the queue newest first, filtered by status
	List(ctx context.Context, in ListInput) (ListResponse, error)

	// Resolve applies a human verdict exactly once. A query that already
	// left pending reports a conflict and triggers no adapter write
	Resolve(ctx context.Context, in ResolveInput) (Query, error)

	// Delete removes a query regardless of status
	Delete(ctx context.Context, id string) error

	// HasIgnored reports whether this exact normalized text was already
	// dismissed for the backend
	HasIgnored(ctx context.Context, backend, normalizedText string) (bool, error)

	// CountsFor breaks the backend's queue down by status
	CountsFor(ctx context.Context, backend string) (Counts, error)
}
