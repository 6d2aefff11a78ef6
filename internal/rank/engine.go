// Package rank refines an already-fetched candidate set: it applies the
// local facet predicates as a conjunction and orders the survivors by the
// query's sort key. Apply is pure and idempotent, so repeated refinement
// (toggling a checkbox, changing the sort) never needs a new catalog lookup.
package rank

import (
	"sort"
	"strings"

	"github.com/hyperjump/sumika/internal/facet"
	"github.com/hyperjump/sumika/internal/models"
)

// Apply filters candidates by the query's facets and returns the ordered
// result list with 0-based ranks. Candidates are read, never mutated.
// Equal sort keys keep their relative candidate order, so pagination over
// identical queries is reproducible.
func Apply(candidates []*models.PropertyRecord, q facet.Query) []models.RankedResult {
	filtered := make([]*models.PropertyRecord, 0, len(candidates))
	for _, p := range candidates {
		if Matches(p, q) {
			filtered = append(filtered, p)
		}
	}

	if less := comparator(q.Sort()); less != nil {
		sort.SliceStable(filtered, func(i, j int) bool {
			return less(filtered[i], filtered[j])
		})
	}

	results := make([]models.RankedResult, len(filtered))
	for i, p := range filtered {
		results[i] = models.RankedResult{Property: p, Rank: i}
	}
	return results
}

// Matches reports whether a record satisfies every facet predicate. Each
// predicate is vacuously true at its facet's default value.
func Matches(p *models.PropertyRecord, q facet.Query) bool {
	if loc := q.Location(); loc != "" && !matchesLocation(p, loc) {
		return false
	}
	if p.Capacity < q.Guests() {
		return false
	}
	min, max := q.PriceRange()
	if p.BasePrice < min || p.BasePrice > max {
		return false
	}
	if types := q.PropertyTypes(); len(types) > 0 && !containsFold(types, p.Type) {
		return false
	}
	for _, a := range q.Amenities() {
		if !p.HasAmenity(a) {
			return false
		}
	}
	if p.Rating < q.MinRating() {
		return false
	}
	for _, f := range facet.Flags {
		if q.Flag(f) && !hasFeature(p, f) {
			return false
		}
	}
	return true
}

// matchesLocation does a case-insensitive substring match against city,
// state, and title.
func matchesLocation(p *models.PropertyRecord, location string) bool {
	needle := strings.ToLower(location)
	return strings.Contains(strings.ToLower(p.City), needle) ||
		strings.Contains(strings.ToLower(p.State), needle) ||
		strings.Contains(strings.ToLower(p.Title), needle)
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func hasFeature(p *models.PropertyRecord, f facet.Flag) bool {
	switch f {
	case facet.FlagInstantBook:
		return p.InstantBook
	case facet.FlagSuperhost:
		return p.Superhost
	case facet.FlagPetFriendly:
		return p.PetFriendly
	case facet.FlagWorkFriendly:
		return p.WorkFriendly
	case facet.FlagAccessible:
		return p.Accessible
	case facet.FlagFamilyFriendly:
		return p.FamilyFriendly
	}
	return false
}

// comparator returns the less function for a sort key, or nil for relevance:
// the catalog's candidate order already encodes relevance and is preserved.
func comparator(s facet.Sort) func(a, b *models.PropertyRecord) bool {
	switch s {
	case facet.SortPriceAsc:
		return func(a, b *models.PropertyRecord) bool { return a.BasePrice < b.BasePrice }
	case facet.SortPriceDesc:
		return func(a, b *models.PropertyRecord) bool { return a.BasePrice > b.BasePrice }
	case facet.SortRatingDesc:
		return func(a, b *models.PropertyRecord) bool { return a.Rating > b.Rating }
	case facet.SortNewest:
		return func(a, b *models.PropertyRecord) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return nil
	}
}

// Page slices ranked results for the query's page and page size. Out-of-range
// pages yield an empty slice, not an error.
func Page(results []models.RankedResult, q facet.Query) []models.RankedResult {
	start := (q.Page() - 1) * q.PageSize()
	if start >= len(results) {
		return []models.RankedResult{}
	}
	end := start + q.PageSize()
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}
