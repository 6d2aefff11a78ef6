package models

import "time"

// SearchHistoryEntry is one remembered query string.
type SearchHistoryEntry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
