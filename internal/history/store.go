package history

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/sumika/internal/models"
	"go.uber.org/zap"
)

const (
	maxRecent = 5
	maxSaved  = 10
)

// Store maintains the recent and saved query lists. Recent keeps the five
// newest searches, most recent first, with exact-text dedupe (re-adding moves
// an entry to the front). Saved keeps up to ten entries in save order with
// FIFO eviction. Every mutation is persisted; persistence failures degrade
// the store to in-memory operation for the rest of the session and are never
// surfaced to callers.
type Store struct {
	mu       sync.RWMutex
	recent   []models.SearchHistoryEntry
	saved    []models.SearchHistoryEntry
	storage  Storage
	logger   *zap.Logger
	now      func() time.Time
	degraded bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for persistence warnings.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the timestamp source. Used in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store over the given durable storage.
func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load populates both lists from durable storage. Absent keys yield empty
// lists; read failures degrade the store to session-only operation.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = s.loadList(ctx, KeyRecent)
	s.saved = s.loadList(ctx, KeySaved)
}

func (s *Store) loadList(ctx context.Context, key string) []models.SearchHistoryEntry {
	data, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Warn("history load failed, continuing in memory",
			zap.String("key", key), zap.Error(err))
		s.degraded = true
		return nil
	}
	if data == nil {
		return nil
	}
	var entries []models.SearchHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("history payload unreadable, starting empty",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	return entries
}

// RecordSearch notes an executed search. Blank text is a no-op. An existing
// entry with the same text moves to the front with a fresh timestamp.
func (s *Store) RecordSearch(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = removeText(s.recent, text)
	s.recent = append([]models.SearchHistoryEntry{{Text: text, Timestamp: s.now()}}, s.recent...)
	if len(s.recent) > maxRecent {
		s.recent = s.recent[:maxRecent]
	}
	s.persist(ctx, KeyRecent, s.recent)
}

// SaveSearch stores a search for later. Blank text and exact duplicates are
// no-ops; when the list exceeds capacity the oldest entry is evicted.
func (s *Store) SaveSearch(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.saved {
		if e.Text == text {
			return
		}
	}
	s.saved = append(s.saved, models.SearchHistoryEntry{Text: text, Timestamp: s.now()})
	if len(s.saved) > maxSaved {
		s.saved = s.saved[len(s.saved)-maxSaved:]
	}
	s.persist(ctx, KeySaved, s.saved)
}

// ClearRecent removes all recent entries.
func (s *Store) ClearRecent(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = nil
	s.persist(ctx, KeyRecent, nil)
}

// ClearSaved removes all saved entries.
func (s *Store) ClearSaved(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = nil
	s.persist(ctx, KeySaved, nil)
}

// Recent returns a copy of the recent list, most recent first.
func (s *Store) Recent() []models.SearchHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SearchHistoryEntry(nil), s.recent...)
}

// Saved returns a copy of the saved list in save order.
func (s *Store) Saved() []models.SearchHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SearchHistoryEntry(nil), s.saved...)
}

// persist writes a list to durable storage. After the first failure the
// backend is not retried for the rest of the session.
func (s *Store) persist(ctx context.Context, key string, entries []models.SearchHistoryEntry) {
	if s.degraded {
		return
	}
	if entries == nil {
		entries = []models.SearchHistoryEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn("history encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, key, data); err != nil {
		s.logger.Warn("history persist failed, continuing in memory",
			zap.String("key", key), zap.Error(err))
		s.degraded = true
	}
}

func removeText(entries []models.SearchHistoryEntry, text string) []models.SearchHistoryEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Text != text {
			out = append(out, e)
		}
	}
	return out
}
