// Package models defines core data structures for properties, catalog lookups,
// search history, and suggestions.
package models

import (
	"strings"
	"time"
)

// PropertyRecord is a pre-computed property listing as supplied by the catalog.
// The search core treats records as read-only; pricing and availability are
// resolved upstream.
type PropertyRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Capacity       int       `json:"capacity"`
	BasePrice      int       `json:"base_price"`
	Type           string    `json:"type"`
	Amenities      []string  `json:"amenities"`
	Rating         float64   `json:"rating"`
	InstantBook    bool      `json:"instant_book"`
	Superhost      bool      `json:"superhost"`
	PetFriendly    bool      `json:"pet_friendly"`
	WorkFriendly   bool      `json:"work_friendly"`
	Accessible     bool      `json:"accessible"`
	FamilyFriendly bool      `json:"family_friendly"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasAmenity reports whether the record lists the amenity (case-insensitive).
func (p *PropertyRecord) HasAmenity(amenity string) bool {
	for _, a := range p.Amenities {
		if strings.EqualFold(a, amenity) {
			return true
		}
	}
	return false
}

// RankedResult is one entry of an ordered result list. Rank is 0-based and
// stable for equal sort keys.
type RankedResult struct {
	Property *PropertyRecord `json:"property"`
	Rank     int             `json:"rank"`
}
