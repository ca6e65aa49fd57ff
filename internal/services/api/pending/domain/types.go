// Package domain holds the pending query types and ports
package domain

import (
	"time"

	"shelfmatch/internal/core/match"
)

// Query statuses. Transitions are monotone: a query leaves pending exactly
// once and never comes back
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusIgnored  = "ignored"
)

// Resolve actions
const (
	ActionAssign = "assign"
	ActionIgnore = "ignore"
)

// KnownStatus reports whether s is one of the query statuses
func KnownStatus(s string) bool {
	switch s {
	case StatusPending, StatusResolved, StatusIgnored:
		return true
	}
	return false
}

// Query is one unmatched input waiting for a human verdict. Candidates is a
// frozen snapshot of what the pipeline saw at match time; later catalog
// changes do not rewrite it
type Query struct {
	ID             string            `json:"id"`
	OriginalText   string            `json:"original_text"`
	NormalizedText string            `json:"normalized_text"`
	Backend        string            `json:"backend"`
	Threshold      float64           `json:"threshold"`
	Candidates     []match.Candidate `json:"candidates"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
}

// Counts is the per-backend queue breakdown used by the matching stats
// endpoint
type Counts struct {
	Pending  int64 `json:"pending"`
	Resolved int64 `json:"resolved"`
	Ignored  int64 `json:"ignored"`
}
