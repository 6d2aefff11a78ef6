// Package cli provides CLI output utilities for Sumika.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/sumika/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// SearchOutput is the result payload rendered by the CLI. It mirrors the
// shape of GET /api/v1/search so server and direct modes print identically.
type SearchOutput struct {
	Results           []models.RankedResult `json:"results"`
	MatchCount        int                   `json:"match_count"`
	TotalCount        int                   `json:"total_count"`
	ActiveFilterCount int                   `json:"active_filter_count"`
	QueryString       string                `json:"query_string"`
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, out *SearchOutput, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case OutputCompact:
		for _, r := range out.Results {
			p := r.Property
			fmt.Fprintf(w, "%d\t%s\t%s, %s\t₹%d\t%.1f\n", r.Rank, p.Title, p.City, p.State, p.BasePrice, p.Rating)
		}
		return nil
	default:
		writeSearchResultsText(w, out)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, out *SearchOutput) {
	fmt.Fprintf(w, "\nShowing %d of %d matching properties (%d of %d total, %d filters active)\n\n",
		len(out.Results), out.MatchCount, out.MatchCount, out.TotalCount, out.ActiveFilterCount)
	if out.QueryString != "" {
		fmt.Fprintf(w, "Shareable query: %s\n\n", out.QueryString)
	}
	for _, r := range out.Results {
		writeOneResult(w, r)
	}
}

func writeOneResult(w io.Writer, r models.RankedResult) {
	p := r.Property
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | %s\n", r.Rank, p.Title)
	fmt.Fprintf(w, "%s, %s | %s | sleeps %d | ₹%d/night | %.1f★\n",
		p.City, p.State, p.Type, p.Capacity, p.BasePrice, p.Rating)
	if len(p.Amenities) > 0 {
		fmt.Fprintf(w, "Amenities: %s\n", Truncate(strings.Join(p.Amenities, ", "), 120))
	}
	fmt.Fprintln(w)
}

// WriteSuggestions writes suggestion entries to w, one per line.
func WriteSuggestions(w io.Writer, entries []models.SuggestionEntry, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-30s %s\n", e.Text, e.Category)
	}
	return nil
}

// WriteHistory writes history entries to w, newest first as given.
func WriteHistory(w io.Writer, entries []models.SearchHistoryEntry, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Text)
	}
	return nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
