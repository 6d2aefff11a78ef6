// Package suggest ranks a fixed pool of named entities (destinations,
// property types, experiences) against a partial query string.
package suggest

import (
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/sumika/internal/models"
)

// defaultCount is how many entries an empty query yields.
const defaultCount = 3

// Engine filters and orders the suggestion pool. It never creates or deletes
// entries; the pool is replaced wholesale on reload.
type Engine struct {
	mu   sync.RWMutex
	pool []models.SuggestionEntry
}

// NewEngine creates an engine over the given candidate pool.
func NewEngine(pool []models.SuggestionEntry) *Engine {
	return &Engine{pool: append([]models.SuggestionEntry(nil), pool...)}
}

// SetPool replaces the candidate pool (used by the data-file watcher).
func (e *Engine) SetPool(pool []models.SuggestionEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pool = append([]models.SuggestionEntry(nil), pool...)
}

// Size returns the number of pool entries.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pool)
}

// Suggest returns suggestions for a partial query. An empty query yields the
// top entries by popularity, ties kept in pool order. A non-empty query
// yields every case-insensitive substring match, in pool order; matches are
// not re-sorted by popularity.
func (e *Engine) Suggest(freeText string) []models.SuggestionEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	freeText = strings.TrimSpace(freeText)
	if freeText == "" {
		top := append([]models.SuggestionEntry(nil), e.pool...)
		sort.SliceStable(top, func(i, j int) bool {
			return top[i].Popularity > top[j].Popularity
		})
		if len(top) > defaultCount {
			top = top[:defaultCount]
		}
		return top
	}

	needle := strings.ToLower(freeText)
	matches := make([]models.SuggestionEntry, 0)
	for _, entry := range e.pool {
		if strings.Contains(strings.ToLower(entry.Text), needle) {
			matches = append(matches, entry)
		}
	}
	return matches
}
