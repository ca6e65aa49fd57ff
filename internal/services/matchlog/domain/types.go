// Package domain defines the types and interfaces for the matchlog service
package domain

import "time"

// Event is one recorded match attempt, successful or not
type Event struct {
	ID         string // uuid
	CreatedAt  time.Time
	Backend    string
	Language   string
	RawText    string
	Normalized string
	Success    bool
	Strategy   string  // winning strategy, empty on exhaustion
	Confidence float64 // top candidate confidence, 0 when nothing scored
	ProductID  string  // top candidate product, empty when nothing scored
	Alias      string  // alias the top candidate matched on
	Checked    int     // pool entries scored across all strategies
	ElapsedMs  float64 // end to end pipeline time
}

// Window defines a time range with a start (Since) and end (Until)
type Window struct {
	Since time.Time
	Until time.Time
}

// Stats aggregates match outcomes over a window
type Stats struct {
	Total      uint64
	Matched    uint64
	Missed     uint64
	ByStrategy map[string]uint64
}
