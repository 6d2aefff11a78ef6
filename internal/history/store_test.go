package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStorage errors on every operation after the trip point.
type failingStorage struct {
	inner    *MemoryStorage
	failGets bool
	failSets bool
	sets     int
}

func (f *failingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets {
		return nil, errors.New("storage unavailable")
	}
	return f.inner.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	if f.failSets {
		return errors.New("quota exceeded")
	}
	return f.inner.Set(ctx, key, value)
}

func (f *failingStorage) Delete(ctx context.Context, key string) error {
	return f.inner.Delete(ctx, key)
}

func (f *failingStorage) Close() error { return nil }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewMemoryStorage())
}

func TestRecordSearch_MostRecentFirstWithDedupe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, text := range []string{"goa", "manali", "jaipur", "udaipur", "kerala"} {
		s.RecordSearch(ctx, text)
	}
	s.RecordSearch(ctx, "goa")

	recent := s.Recent()
	require.Len(t, recent, 5)
	assert.Equal(t, "goa", recent[0].Text)
	// "goa" moved to front, no duplicate left behind.
	for _, e := range recent[1:] {
		assert.NotEqual(t, "goa", e.Text)
	}
}

func TestRecordSearch_CapacityFive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 20; i++ {
		s.RecordSearch(ctx, fmt.Sprintf("query-%d", i))
	}
	recent := s.Recent()
	require.Len(t, recent, 5)
	assert.Equal(t, "query-19", recent[0].Text)
	assert.Equal(t, "query-15", recent[4].Text)
}

func TestRecordSearch_BlankIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.RecordSearch(ctx, "")
	s.RecordSearch(ctx, "   ")
	assert.Empty(t, s.Recent())
}

func TestSaveSearch_FIFOEvictionAndDedupe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 12; i++ {
		s.SaveSearch(ctx, fmt.Sprintf("saved-%d", i))
	}
	saved := s.Saved()
	require.Len(t, saved, 10)
	// Oldest two evicted; order of the rest preserved.
	assert.Equal(t, "saved-2", saved[0].Text)
	assert.Equal(t, "saved-11", saved[9].Text)

	s.SaveSearch(ctx, "saved-5")
	assert.Len(t, s.Saved(), 10)
}

func TestSaveSearch_BlankIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.SaveSearch(ctx, " ")
	assert.Empty(t, s.Saved())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.RecordSearch(ctx, "goa")
	s.SaveSearch(ctx, "manali")
	s.ClearRecent(ctx)
	s.ClearSaved(ctx)
	assert.Empty(t, s.Recent())
	assert.Empty(t, s.Saved())
}

func TestLoad_RoundTripsThroughStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	s := NewStore(storage)
	s.RecordSearch(ctx, "goa")
	s.RecordSearch(ctx, "manali")
	s.SaveSearch(ctx, "beach villa")

	// A second store over the same storage sees the persisted lists.
	s2 := NewStore(storage)
	s2.Load(ctx)
	recent := s2.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "manali", recent[0].Text)
	saved := s2.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "beach villa", saved[0].Text)
}

func TestLoad_AbsentDataYieldsEmptyLists(t *testing.T) {
	s := NewStore(NewMemoryStorage())
	s.Load(context.Background())
	assert.Empty(t, s.Recent())
	assert.Empty(t, s.Saved())
}

func TestPersistenceFailure_DegradesToMemoryOnly(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{inner: NewMemoryStorage(), failSets: true}
	s := NewStore(storage)

	// Mutations keep working; nothing propagates to the caller.
	s.RecordSearch(ctx, "goa")
	s.RecordSearch(ctx, "manali")
	s.SaveSearch(ctx, "beach villa")
	assert.Len(t, s.Recent(), 2)
	assert.Len(t, s.Saved(), 1)

	// The backend is not retried after the first failure.
	assert.Equal(t, 1, storage.sets)
}

func TestLoadFailure_DegradesToMemoryOnly(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{inner: NewMemoryStorage(), failGets: true}
	s := NewStore(storage)
	s.Load(ctx)
	s.RecordSearch(ctx, "goa")
	assert.Len(t, s.Recent(), 1)
	assert.Equal(t, 0, storage.sets)
}

func TestTimestampsUseClock(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s := NewStore(NewMemoryStorage(), WithClock(func() time.Time { return fixed }))
	s.RecordSearch(ctx, "goa")
	require.Len(t, s.Recent(), 1)
	assert.Equal(t, fixed, s.Recent()[0].Timestamp)
}
