package domain

import "context"

// RecorderPort writes match events
type RecorderPort interface {
	Record(ctx context.Context, ev Event) error
}

// QueryPort reads events back for ops surfaces
type QueryPort interface {
	Recent(ctx context.Context, backend string, skip, limit int) ([]Event, error)
	Count(ctx context.Context, backend string, onlySuccess bool) (uint64, error)
	Stats(ctx context.Context, w Window) (Stats, error)
}
