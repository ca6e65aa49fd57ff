// Package service orchestrates one match request end to end: normalize the
// text, flatten the backend catalog into an alias pool, run the strategy
// chain, record the attempt, and open a review record when nothing passed
package service

import (
	"context"
	"time"

	"shelfmatch/internal/adapters/source"
	"shelfmatch/internal/core/match"
	"shelfmatch/internal/core/normalize"
	perr "shelfmatch/internal/platform/errors"
	"shelfmatch/internal/platform/logger"
	bdomain "shelfmatch/internal/services/api/backends/domain"
	"shelfmatch/internal/services/api/matching/domain"
	pdomain "shelfmatch/internal/services/api/pending/domain"
	mldomain "shelfmatch/internal/services/matchlog/domain"
)

// Service is the full surface the HTTP layer mounts
type Service interface {
	domain.ServicePort
	domain.InfoPort
}

// EventLog is the slice of the match event store the matcher touches.
// A nil EventLog turns recording into a no-op and the log surfaces into 503s
type EventLog interface {
	mldomain.RecorderPort
	mldomain.QueryPort
}

// Config carries the boot-resolved matcher settings
type Config struct {
	// DefaultThreshold applies when a request carries none
	DefaultThreshold float64

	// MaxCandidates caps the candidate list on every response
	MaxCandidates int

	// MaxPool caps the flattened alias pool per request, 0 means unlimited
	MaxPool int

	// EmbedSource names the embedding provider, for the info surface only
	EmbedSource string
}

// Deps are the collaborators the matcher orchestrates. Events may be nil
// when no event store is configured; everything else is required
type Deps struct {
	Backends  bdomain.ResolverPort
	Pending   pdomain.ServicePort
	Norm      *normalize.Normalizer
	Pipeline  *match.Pipeline
	Languages []string
	Events    EventLog
}

// Svc implements Service
type Svc struct {
	d   Deps
	cfg Config
}

// New constructs the service. Missing required collaborators are a boot
// defect, not a runtime condition
func New(d Deps, cfg Config) *Svc {
	if d.Backends == nil {
		panic("matching.Service requires a non nil backend resolver")
	}
	if d.Pending == nil {
		panic("matching.Service requires a non nil pending port")
	}
	if d.Norm == nil {
		panic("matching.Service requires a non nil normalizer")
	}
	if d.Pipeline == nil {
		panic("matching.Service requires a non nil pipeline")
	}
	if cfg.DefaultThreshold <= 0 || cfg.DefaultThreshold > 1 {
		cfg.DefaultThreshold = 0.8
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	return &Svc{d: d, cfg: cfg}
}

// Match implements domain.ServicePort. A failed match is a successful
// operation: the error return covers unknown backends, catalog fetch
// failures and review bookkeeping, never the verdict itself
func (s *Svc) Match(ctx context.Context, in domain.MatchInput) (domain.MatchResult, error) {
	b, ok := s.d.Backends.Get(in.Backend)
	if !ok {
		return domain.MatchResult{}, perr.InvalidArgf("unknown backend %q", in.Backend)
	}

	threshold := s.cfg.DefaultThreshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}

	q := s.d.Norm.Normalize(in.Text, b.Language)

	products, err := b.Adapter.ListProducts(ctx)
	if err != nil {
		return domain.MatchResult{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "backend %q catalog fetch failed", b.Name)
	}
	pool := s.buildPool(products, b.Language)

	start := time.Now()
	res := s.d.Pipeline.Run(ctx, q, pool, threshold)
	s.record(ctx, b.Name, q, res, time.Since(start))

	out := domain.MatchResult{
		Success:         res.Success,
		NormalizedInput: q.Text,
		Candidates:      res.Candidates,
	}
	if out.Candidates == nil {
		out.Candidates = []match.Candidate{}
	}
	if in.Debug {
		out.DebugInfo = res.Trace
	}

	createPending := in.CreatePending == nil || *in.CreatePending
	if res.Success || !createPending {
		return out, nil
	}

	// An operator ignored this exact normalized text before; reopening a
	// review record for it would just refill the queue they emptied
	ignored, err := s.d.Pending.HasIgnored(ctx, b.Name, q.Text)
	if err != nil {
		return domain.MatchResult{}, err
	}
	if ignored {
		out.Ignored = true
		return out, nil
	}

	pq, err := s.d.Pending.Create(ctx, pdomain.CreateInput{
		OriginalText:   in.Text,
		NormalizedText: q.Text,
		Backend:        b.Name,
		Threshold:      threshold,
		Candidates:     out.Candidates,
	})
	if err != nil {
		return domain.MatchResult{}, err
	}
	out.PendingQueryID = pq.ID
	return out, nil
}

// Settings implements domain.ServicePort
func (s *Svc) Settings() domain.Settings {
	return domain.Settings{
		DefaultThreshold: s.cfg.DefaultThreshold,
		MaxCandidates:    s.cfg.MaxCandidates,
	}
}

// Languages implements domain.ServicePort
func (s *Svc) Languages() []string { return s.d.Languages }

// Stats implements domain.ServicePort. With the event store off the
// successful-match counter reads zero rather than failing the surface
func (s *Svc) Stats(ctx context.Context, backend string) (domain.BackendStats, error) {
	b, ok := s.d.Backends.Get(backend)
	if !ok {
		return domain.BackendStats{}, perr.InvalidArgf("unknown backend %q", backend)
	}

	products, err := b.Adapter.ListProducts(ctx)
	if err != nil {
		return domain.BackendStats{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "backend %q catalog fetch failed", b.Name)
	}
	counts, err := s.d.Pending.CountsFor(ctx, b.Name)
	if err != nil {
		return domain.BackendStats{}, err
	}

	out := domain.BackendStats{
		TotalProducts:   len(products),
		PendingQueries:  counts.Pending,
		ResolvedQueries: counts.Resolved,
		IgnoredQueries:  counts.Ignored,
	}
	if s.d.Events != nil {
		n, err := s.d.Events.Count(ctx, b.Name, true)
		if err != nil {
			return domain.BackendStats{}, err
		}
		out.SuccessfulMatches = int64(n)
	}
	return out, nil
}

// Logs implements domain.ServicePort
func (s *Svc) Logs(ctx context.Context, in domain.LogsInput) (domain.LogsResponse, error) {
	if s.d.Events == nil {
		return domain.LogsResponse{}, perr.New(perr.ErrorCodeUnavailable, "match event log is not configured")
	}

	filter := ""
	if in.Backend != "" {
		b, ok := s.d.Backends.Get(in.Backend)
		if !ok {
			return domain.LogsResponse{}, perr.InvalidArgf("unknown backend %q", in.Backend)
		}
		filter = b.Name
	}

	evs, err := s.d.Events.Recent(ctx, filter, in.Skip, in.Limit)
	if err != nil {
		return domain.LogsResponse{}, err
	}
	total, err := s.d.Events.Count(ctx, filter, false)
	if err != nil {
		return domain.LogsResponse{}, err
	}

	out := domain.LogsResponse{Data: make([]domain.LogEntry, 0, len(evs)), Count: int64(total)}
	for _, ev := range evs {
		out.Data = append(out.Data, domain.LogEntry{
			ID:             ev.ID,
			CreatedAt:      ev.CreatedAt,
			Backend:        ev.Backend,
			Language:       ev.Language,
			OriginalText:   ev.RawText,
			NormalizedText: ev.Normalized,
			Success:        ev.Success,
			Strategy:       ev.Strategy,
			Confidence:     ev.Confidence,
			ProductID:      ev.ProductID,
			MatchedAlias:   ev.Alias,
			ElapsedMs:      ev.ElapsedMs,
		})
	}
	return out, nil
}

// Info implements domain.InfoPort
func (s *Svc) Info() domain.MatcherInfo {
	return domain.MatcherInfo{
		Strategies:       s.d.Pipeline.Strategies(),
		Languages:        s.d.Languages,
		EmbedSource:      s.cfg.EmbedSource,
		DefaultThreshold: s.cfg.DefaultThreshold,
		MaxCandidates:    s.cfg.MaxCandidates,
	}
}

// buildPool flattens the catalog into per-alias entries, each normalized
// under the backend's language rules. Aliases that normalize to nothing
// (pure stopwords, bare quantities) can never score and are skipped
func (s *Svc) buildPool(products []source.ExternalProduct, lang string) []match.AliasRef {
	var out []match.AliasRef
	for _, p := range products {
		for _, alias := range p.Aliases {
			nq := s.d.Norm.Normalize(alias, lang)
			if nq.Text == "" {
				continue
			}
			out = append(out, match.AliasRef{ProductID: p.ID, Alias: alias, Tokens: nq.Tokens})
			if s.cfg.MaxPool > 0 && len(out) >= s.cfg.MaxPool {
				return out
			}
		}
	}
	return out
}

// record is best effort: a broken event sink must never fail the match
func (s *Svc) record(ctx context.Context, backend string, q normalize.Query, res match.Result, elapsed time.Duration) {
	if s.d.Events == nil {
		return
	}
	ev := mldomain.Event{
		Backend:    backend,
		Language:   q.Language,
		RawText:    q.RawText,
		Normalized: q.Text,
		Success:    res.Success,
		Strategy:   res.Strategy,
		ElapsedMs:  float64(elapsed.Microseconds()) / 1000.0,
	}
	for _, tr := range res.Trace {
		ev.Checked += tr.CandidatesChecked
	}
	if len(res.Candidates) > 0 {
		ev.Confidence = res.Candidates[0].Confidence
		ev.ProductID = res.Candidates[0].ProductID
		ev.Alias = res.Candidates[0].Alias
	}
	if err := s.d.Events.Record(ctx, ev); err != nil {
		logger.C(ctx).Warn().Err(err).Str("backend", backend).Msg("matching: event record failed")
	}
}
