package facet

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Wire keys of the shareable flat key-value representation. The same set is
// read and written by the presentation layer's own navigation mechanism.
const (
	keyFreeText      = "q"
	keyLocation      = "location"
	keyCheckIn       = "checkIn"
	keyCheckOut      = "checkOut"
	keyGuests        = "guests"
	keyMinPrice      = "minPrice"
	keyMaxPrice      = "maxPrice"
	keyPropertyTypes = "propertyTypes"
	keyAmenities     = "amenities"
	keyRating        = "rating"
	keySort          = "sort"
	keyPage          = "page"
	keyPageSize      = "pageSize"
)

const dateLayout = "2006-01-02"

// Values encodes the query as flat key-value pairs. Facets at their default
// value are omitted, so a fresh query encodes to an empty set and shared URLs
// stay short.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.freeText != "" {
		v.Set(keyFreeText, q.freeText)
	}
	if q.location != "" {
		v.Set(keyLocation, q.location)
	}
	if !q.checkIn.IsZero() {
		v.Set(keyCheckIn, q.checkIn.Format(dateLayout))
	}
	if !q.checkOut.IsZero() {
		v.Set(keyCheckOut, q.checkOut.Format(dateLayout))
	}
	if q.guests != 1 {
		v.Set(keyGuests, strconv.Itoa(q.guests))
	}
	if q.minPrice != q.bounds.MinPrice {
		v.Set(keyMinPrice, strconv.Itoa(q.minPrice))
	}
	if q.maxPrice != q.bounds.MaxPrice {
		v.Set(keyMaxPrice, strconv.Itoa(q.maxPrice))
	}
	if len(q.propertyTypes) > 0 {
		v.Set(keyPropertyTypes, strings.Join(q.propertyTypes, ","))
	}
	if len(q.amenities) > 0 {
		v.Set(keyAmenities, strings.Join(q.amenities, ","))
	}
	for _, f := range Flags {
		if q.Flag(f) {
			v.Set(string(f), "true")
		}
	}
	if q.minRating > 0 {
		v.Set(keyRating, strconv.FormatFloat(q.minRating, 'f', -1, 64))
	}
	if q.sort != SortRelevance {
		v.Set(keySort, string(q.sort))
	}
	if q.page != 1 {
		v.Set(keyPage, strconv.Itoa(q.page))
	}
	if q.pageSize != q.bounds.DefaultPageSize {
		v.Set(keyPageSize, strconv.Itoa(q.pageSize))
	}
	return v
}

// Encode returns the canonical query-string form of the query.
func (q Query) Encode() string {
	return q.Values().Encode()
}

// ParseValues decodes flat key-value pairs into a query under the given
// platform bounds. Missing keys keep their defaults; malformed values are
// ignored rather than rejected, matching the clamping behavior of the With*
// updates. ParseValues(q.Values(), b) reproduces q for any query built under b.
func ParseValues(v url.Values, b Bounds) Query {
	q := New(b)
	if s := v.Get(keyFreeText); s != "" {
		q = q.WithFreeText(s)
	}
	if s := v.Get(keyLocation); s != "" {
		q = q.WithLocation(s)
	}
	checkIn := parseDate(v.Get(keyCheckIn))
	checkOut := parseDate(v.Get(keyCheckOut))
	if !checkIn.IsZero() || !checkOut.IsZero() {
		if next, err := q.WithDates(checkIn, checkOut); err == nil {
			q = next
		}
	}
	if n, ok := parseInt(v.Get(keyGuests)); ok {
		q = q.WithGuests(n)
	}
	min, max := q.PriceRange()
	priceSet := false
	if n, ok := parseInt(v.Get(keyMinPrice)); ok {
		min, priceSet = n, true
	}
	if n, ok := parseInt(v.Get(keyMaxPrice)); ok {
		max, priceSet = n, true
	}
	if priceSet {
		q = q.WithPriceRange(min, max)
	}
	if s := v.Get(keyPropertyTypes); s != "" {
		q = q.WithPropertyTypes(strings.Split(s, ",")...)
	}
	if s := v.Get(keyAmenities); s != "" {
		q = q.WithAmenities(strings.Split(s, ",")...)
	}
	for _, f := range Flags {
		if v.Get(string(f)) == "true" {
			q = q.WithFlag(f, true)
		}
	}
	if s := v.Get(keyRating); s != "" {
		if r, err := strconv.ParseFloat(s, 64); err == nil {
			q = q.WithMinRating(r)
		}
	}
	if s := v.Get(keySort); s != "" {
		q = q.WithSort(Sort(s))
	}
	if n, ok := parseInt(v.Get(keyPage)); ok {
		q = q.WithPage(n)
	}
	if n, ok := parseInt(v.Get(keyPageSize)); ok {
		q = q.WithPageSize(n)
	}
	return q
}

// ParseQueryString decodes a raw query string (the shareable URL form).
func ParseQueryString(s string, b Bounds) (Query, error) {
	v, err := url.ParseQuery(s)
	if err != nil {
		return New(b), err
	}
	return ParseValues(v, b), nil
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
