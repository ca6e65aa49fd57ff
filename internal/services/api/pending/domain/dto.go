package domain

import "shelfmatch/internal/core/match"

// CreateInput is the snapshot the matching service hands over when a match
// fails with learning enabled
type CreateInput struct {
	OriginalText   string
	NormalizedText string
	Backend        string
	Threshold      float64
	Candidates     []match.Candidate
}

// ListInput filters and pages the queue listing
type ListInput struct {
	Status string `json:"status" validate:"omitempty,oneof=pending resolved ignored" example:"pending"`
	Skip   int    `json:"skip"   validate:"omitempty,gte=0" example:"0"`
	Limit  int    `json:"limit"  validate:"omitempty,gte=0" example:"50"`
}

// ListResponse is a page of queries plus the total for the status filter
type ListResponse struct {
	Data  []Query `json:"data"`
	Count int64   `json:"count"`
}

// ResolveInput is the human verdict on one pending query
type ResolveInput struct {
	PendingQueryID string `json:"pending_query_id" validate:"required,uuid4" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Action         string `json:"action" validate:"required,oneof=assign ignore" example:"assign"`
	ProductID      string `json:"product_id,omitempty" example:"42"`
	CustomAlias    string `json:"custom_alias,omitempty" example:"gusanos de goma"`
}

// Message is a plain confirmation payload
type Message struct {
	Message string `json:"message" example:"pending query resolved successfully"`
}
