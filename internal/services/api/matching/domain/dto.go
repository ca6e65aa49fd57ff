// Package domain holds the matching API wire types and ports
package domain

import (
	"time"

	"shelfmatch/internal/core/match"
)

// MatchInput is one free-text match request. Threshold overrides the
// configured default for this request only; CreatePending defaults to true
// when omitted
type MatchInput struct {
	Text          string   `json:"text"                     validate:"required,min=1,max=255" example:"gusanitos sabor fresa 1 pz"`
	Backend       string   `json:"backend"                  validate:"required,min=1,max=50"  example:"demo"`
	Threshold     *float64 `json:"threshold,omitempty"      validate:"omitempty,gte=0,lte=1"  example:"0.8"`
	CreatePending *bool    `json:"create_pending,omitempty" example:"true"`
	Debug         bool     `json:"debug,omitempty"          example:"false"`
}

// MatchResult is the pipeline verdict for one request. PendingQueryID is set
// only when the match failed and a review record was opened; Ignored marks
// failures suppressed because the same normalized text was ignored before
type MatchResult struct {
	Success         bool               `json:"success"`
	NormalizedInput string             `json:"normalized_input"`
	Candidates      []match.Candidate  `json:"candidates"`
	Ignored         bool               `json:"ignored"`
	PendingQueryID  string             `json:"pending_query_id,omitempty"`
	DebugInfo       []match.TraceEntry `json:"debug_info,omitempty"`
}

// Settings is the global matcher configuration surface
type Settings struct {
	DefaultThreshold float64 `json:"default_threshold" example:"0.8"`
	MaxCandidates    int     `json:"max_candidates"    example:"5"`
}

// BackendStats summarizes one backend's matching state: live catalog size,
// successful matches on record, and the review queue split by status
type BackendStats struct {
	TotalProducts     int   `json:"total_products"     example:"15"`
	SuccessfulMatches int64 `json:"successful_matches" example:"240"`
	PendingQueries    int64 `json:"pending_queries"    example:"3"`
	ResolvedQueries   int64 `json:"resolved_queries"   example:"12"`
	IgnoredQueries    int64 `json:"ignored_queries"    example:"1"`
}

// LogEntry is one recorded match attempt
type LogEntry struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Backend        string    `json:"backend"`
	Language       string    `json:"language"`
	OriginalText   string    `json:"original_text"`
	NormalizedText string    `json:"normalized_text"`
	Success        bool      `json:"success"`
	Strategy       string    `json:"strategy,omitempty"`
	Confidence     float64   `json:"confidence"`
	ProductID      string    `json:"matched_product_id,omitempty"`
	MatchedAlias   string    `json:"matched_alias,omitempty"`
	ElapsedMs      float64   `json:"elapsed_ms"`
}

// LogsInput carries the log paging parameters. Backend narrows to one
// backend when set
type LogsInput struct {
	Backend string `validate:"omitempty,min=1,max=50"`
	Skip    int    `validate:"gte=0"`
	Limit   int    `validate:"gte=0"`
}

// LogsResponse is one page of match events. Count is the total on record
// for the filter, not the page size
type LogsResponse struct {
	Data  []LogEntry `json:"data"`
	Count int64      `json:"count" example:"128"`
}
