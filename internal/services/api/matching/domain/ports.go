package domain

import "context"

// ServicePort is the matching contract exposed to HTTP and sibling modules
type ServicePort interface {
	// Match runs the strategy chain for one piece of free text against the
	// named backend's live catalog
	Match(ctx context.Context, in MatchInput) (MatchResult, error)

	// Settings reports the global matcher configuration
	Settings() Settings

	// Languages lists the language packs loaded at boot
	Languages() []string

	// Stats summarizes one backend's matching state
	Stats(ctx context.Context, backend string) (BackendStats, error)

	// Logs pages through recorded match attempts, newest first
	Logs(ctx context.Context, in LogsInput) (LogsResponse, error)
}

// MatcherInfo describes the running matcher for ops surfaces
type MatcherInfo struct {
	Strategies       []string `json:"strategies"`
	Languages        []string `json:"languages"`
	EmbedSource      string   `json:"embed_source"`
	DefaultThreshold float64  `json:"default_threshold"`
	MaxCandidates    int      `json:"max_candidates"`
}

// InfoPort exposes the runtime matcher description
type InfoPort interface {
	Info() MatcherInfo
}
