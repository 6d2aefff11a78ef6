package models

import "time"

// LookupRequest carries the facets forwarded to the catalog's coarse lookup:
// free text, location, stay window, and guest count. All other facets are
// local-only refinements and never reach the catalog.
type LookupRequest struct {
	FreeText string    `json:"q,omitempty"`
	Location string    `json:"location,omitempty"`
	CheckIn  time.Time `json:"check_in,omitempty"`
	CheckOut time.Time `json:"check_out,omitempty"`
	Guests   int       `json:"guests,omitempty"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	SortHint string    `json:"sort_hint,omitempty"`
}

// LookupResult is the candidate set returned by one catalog lookup.
// Candidate order encodes the catalog's relevance ranking.
type LookupResult struct {
	Candidates []*PropertyRecord `json:"candidates"`
	TotalCount int               `json:"total_count"`
}
