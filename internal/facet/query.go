// Package facet provides the typed, immutable representation of a property
// search query: free text plus structured constraints. Updates are functional;
// every With* method returns a new Query and leaves the receiver untouched, so
// history, undo, and URL sync always see consistent values.
package facet

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrInvalidDateRange is returned when a check-out date is not strictly after
// the check-in date. The offending update is refused; the prior query is
// returned unchanged alongside the error.
var ErrInvalidDateRange = errors.New("check-out must be after check-in")

// Sort is a supported result ordering.
type Sort string

const (
	SortRelevance  Sort = "relevance"
	SortPriceAsc   Sort = "price_asc"
	SortPriceDesc  Sort = "price_desc"
	SortRatingDesc Sort = "rating_desc"
	SortNewest     Sort = "newest"
)

// Flag is one of the closed set of boolean facets. False means unconstrained,
// true means required.
type Flag string

const (
	FlagInstantBook    Flag = "instantBook"
	FlagSuperhost      Flag = "superhost"
	FlagPetFriendly    Flag = "petFriendly"
	FlagWorkFriendly   Flag = "workFriendly"
	FlagAccessible     Flag = "accessible"
	FlagFamilyFriendly Flag = "familyFriendly"
)

// Flags lists every boolean facet in a fixed order.
var Flags = []Flag{
	FlagInstantBook,
	FlagSuperhost,
	FlagPetFriendly,
	FlagWorkFriendly,
	FlagAccessible,
	FlagFamilyFriendly,
}

// Bounds holds platform-wide limits applied when constructing and updating
// queries. Out-of-range numeric inputs are clamped to these, never rejected.
type Bounds struct {
	MinPrice        int
	MaxPrice        int
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultBounds returns the platform defaults.
func DefaultBounds() Bounds {
	return Bounds{MinPrice: 500, MaxPrice: 50000, DefaultPageSize: 12, MaxPageSize: 60}
}

// Query is the canonical search request. The zero value is not usable; build
// one with New.
type Query struct {
	bounds        Bounds
	freeText      string
	location      string
	checkIn       time.Time
	checkOut      time.Time
	guests        int
	minPrice      int
	maxPrice      int
	propertyTypes []string
	amenities     []string
	flags         flagSet
	minRating     float64
	sort          Sort
	page          int
	pageSize      int
}

type flagSet struct {
	instantBook    bool
	superhost      bool
	petFriendly    bool
	workFriendly   bool
	accessible     bool
	familyFriendly bool
}

// New returns a query with every facet at its unconstrained default:
// the full platform price band, one guest, relevance ordering, page 1.
func New(b Bounds) Query {
	return Query{
		bounds:   b,
		guests:   1,
		minPrice: b.MinPrice,
		maxPrice: b.MaxPrice,
		sort:     SortRelevance,
		page:     1,
		pageSize: b.DefaultPageSize,
	}
}

// Accessors.

func (q Query) FreeText() string       { return q.freeText }
func (q Query) Location() string       { return q.location }
func (q Query) CheckIn() time.Time     { return q.checkIn }
func (q Query) CheckOut() time.Time    { return q.checkOut }
func (q Query) Guests() int            { return q.guests }
func (q Query) PriceRange() (int, int) { return q.minPrice, q.maxPrice }
func (q Query) MinRating() float64     { return q.minRating }
func (q Query) Sort() Sort             { return q.sort }
func (q Query) Page() int              { return q.page }
func (q Query) PageSize() int          { return q.pageSize }
func (q Query) Bounds() Bounds         { return q.bounds }

// PropertyTypes returns a copy of the type constraint set. Empty means no
// type filter (match everything), never "match nothing".
func (q Query) PropertyTypes() []string {
	return append([]string(nil), q.propertyTypes...)
}

// Amenities returns a copy of the amenity constraint set. Non-empty requires
// all listed amenities to be present.
func (q Query) Amenities() []string {
	return append([]string(nil), q.amenities...)
}

// Flag reports whether the given boolean facet is required.
func (q Query) Flag(f Flag) bool {
	switch f {
	case FlagInstantBook:
		return q.flags.instantBook
	case FlagSuperhost:
		return q.flags.superhost
	case FlagPetFriendly:
		return q.flags.petFriendly
	case FlagWorkFriendly:
		return q.flags.workFriendly
	case FlagAccessible:
		return q.flags.accessible
	case FlagFamilyFriendly:
		return q.flags.familyFriendly
	}
	return false
}

// Functional updates.

// WithFreeText returns a copy with the free-text input replaced.
func (q Query) WithFreeText(text string) Query {
	q.freeText = strings.TrimSpace(text)
	return q.copySets()
}

// WithLocation returns a copy with the location constraint replaced.
func (q Query) WithLocation(location string) Query {
	q.location = strings.TrimSpace(location)
	return q.copySets()
}

// WithDates returns a copy with the stay window replaced. A zero time clears
// the corresponding endpoint. When both endpoints are set, check-out must be
// strictly after check-in; otherwise the prior query is returned unchanged
// together with ErrInvalidDateRange.
func (q Query) WithDates(checkIn, checkOut time.Time) (Query, error) {
	if !checkIn.IsZero() && !checkOut.IsZero() && !checkOut.After(checkIn) {
		return q, ErrInvalidDateRange
	}
	q.checkIn = truncateToDay(checkIn)
	q.checkOut = truncateToDay(checkOut)
	return q.copySets(), nil
}

// WithGuests returns a copy with the minimum required capacity replaced.
// Values below 1 are clamped to 1.
func (q Query) WithGuests(guests int) Query {
	if guests < 1 {
		guests = 1
	}
	q.guests = guests
	return q.copySets()
}

// WithPriceRange returns a copy with the inclusive price band replaced.
// An inverted band is swapped and both ends are clamped to platform bounds.
func (q Query) WithPriceRange(min, max int) Query {
	if min > max {
		min, max = max, min
	}
	q.minPrice = clampInt(min, q.bounds.MinPrice, q.bounds.MaxPrice)
	q.maxPrice = clampInt(max, q.bounds.MinPrice, q.bounds.MaxPrice)
	return q.copySets()
}

// WithPropertyTypes returns a copy with the type constraint set replaced.
func (q Query) WithPropertyTypes(types ...string) Query {
	q.propertyTypes = normalizeTokens(types)
	q.amenities = append([]string(nil), q.amenities...)
	return q
}

// WithAmenities returns a copy with the amenity constraint set replaced.
func (q Query) WithAmenities(amenities ...string) Query {
	q.amenities = normalizeTokens(amenities)
	q.propertyTypes = append([]string(nil), q.propertyTypes...)
	return q
}

// WithFlag returns a copy with one boolean facet set. Unknown flags leave the
// query unchanged.
func (q Query) WithFlag(f Flag, on bool) Query {
	switch f {
	case FlagInstantBook:
		q.flags.instantBook = on
	case FlagSuperhost:
		q.flags.superhost = on
	case FlagPetFriendly:
		q.flags.petFriendly = on
	case FlagWorkFriendly:
		q.flags.workFriendly = on
	case FlagAccessible:
		q.flags.accessible = on
	case FlagFamilyFriendly:
		q.flags.familyFriendly = on
	}
	return q.copySets()
}

// WithMinRating returns a copy with the rating floor replaced, clamped to [0, 5].
func (q Query) WithMinRating(rating float64) Query {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	q.minRating = rating
	return q.copySets()
}

// WithSort returns a copy with the sort key replaced. Unknown keys fall back
// to relevance.
func (q Query) WithSort(s Sort) Query {
	switch s {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortRatingDesc, SortNewest:
		q.sort = s
	default:
		q.sort = SortRelevance
	}
	return q.copySets()
}

// WithPage returns a copy on the given page (minimum 1).
func (q Query) WithPage(page int) Query {
	if page < 1 {
		page = 1
	}
	q.page = page
	return q.copySets()
}

// WithPageSize returns a copy with the page size replaced, clamped to
// [1, MaxPageSize].
func (q Query) WithPageSize(size int) Query {
	q.pageSize = clampInt(size, 1, q.bounds.MaxPageSize)
	return q.copySets()
}

// ActiveFacetCount is the number of facets currently constraining results,
// used for "N filters active" badges. Free text, location, dates, and guests
// are not counted; they select candidates rather than refine them.
func (q Query) ActiveFacetCount() int {
	n := 0
	if len(q.propertyTypes) > 0 {
		n++
	}
	if len(q.amenities) > 0 {
		n++
	}
	for _, f := range Flags {
		if q.Flag(f) {
			n++
		}
	}
	if q.minRating > 0 {
		n++
	}
	if q.minPrice != q.bounds.MinPrice || q.maxPrice != q.bounds.MaxPrice {
		n++
	}
	return n
}

// RemoteKey identifies the facets forwarded to the catalog lookup. Two
// queries with equal remote keys can share a candidate set; everything else
// is a local refinement.
type RemoteKey struct {
	FreeText string
	Location string
	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
}

// RemoteKey returns the remote-lookup projection of the query.
func (q Query) RemoteKey() RemoteKey {
	return RemoteKey{
		FreeText: q.freeText,
		Location: q.location,
		CheckIn:  q.checkIn,
		CheckOut: q.checkOut,
		Guests:   q.guests,
	}
}

// Equal reports whether two queries constrain results identically.
func (q Query) Equal(other Query) bool {
	return q.bounds == other.bounds &&
		q.freeText == other.freeText &&
		q.location == other.location &&
		q.checkIn.Equal(other.checkIn) &&
		q.checkOut.Equal(other.checkOut) &&
		q.guests == other.guests &&
		q.minPrice == other.minPrice &&
		q.maxPrice == other.maxPrice &&
		equalTokens(q.propertyTypes, other.propertyTypes) &&
		equalTokens(q.amenities, other.amenities) &&
		q.flags == other.flags &&
		q.minRating == other.minRating &&
		q.sort == other.sort &&
		q.page == other.page &&
		q.pageSize == other.pageSize
}

// copySets detaches the slice-backed sets so the returned value shares no
// storage with the receiver.
func (q Query) copySets() Query {
	q.propertyTypes = append([]string(nil), q.propertyTypes...)
	q.amenities = append([]string(nil), q.amenities...)
	return q
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateToDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeTokens lowercases, trims, dedupes, and sorts a constraint set so
// that set equality is order-independent.
func normalizeTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
