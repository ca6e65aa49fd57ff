package module

import (
	"time"

	"shelfmatch/internal/core/match"
	"shelfmatch/internal/platform/config"
)

// Options carries the matcher boot configuration
type Options struct {
	DefaultThreshold float64
	MaxCandidates    int
	Strategies       []string
	EmbedSource      string
	EmbedURL         string
	EmbedTimeout     time.Duration
	MaxPool          int
}

// FromConfig reads the MATCH_* namespace. Jaccard is compiled in but off by
// default; enable it with MATCH_STRATEGIES=semantic,fuzzy,jaccard. MaxPool
// zero means the alias pool is never truncated
func FromConfig(cfg config.Conf) Options {
	mc := cfg.Prefix("MATCH_")
	return Options{
		DefaultThreshold: mc.MayFloat64("DEFAULT_THRESHOLD", 0.8),
		MaxCandidates:    mc.MayInt("MAX_CANDIDATES", 5),
		Strategies:       mc.MayCSV("STRATEGIES", []string{match.StrategySemantic, match.StrategyFuzzy}),
		EmbedSource:      mc.MayString("EMBED_SOURCE", "lexicon"),
		EmbedURL:         mc.MayString("EMBED_URL", ""),
		EmbedTimeout:     mc.MayDuration("EMBED_TIMEOUT", 5*time.Second),
		MaxPool:          mc.MayInt("MAX_POOL", 0),
	}
}
