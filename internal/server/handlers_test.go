package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/sumika/internal/analytics"
	"github.com/hyperjump/sumika/internal/catalog"
	"github.com/hyperjump/sumika/internal/config"
	"github.com/hyperjump/sumika/internal/facet"
	"github.com/hyperjump/sumika/internal/history"
	"github.com/hyperjump/sumika/internal/models"
	"github.com/hyperjump/sumika/internal/session"
	"github.com/hyperjump/sumika/internal/suggest"
	"go.uber.org/zap"
)

func testProperties() []*models.PropertyRecord {
	return []*models.PropertyRecord{
		{ID: "p1", Title: "Sea Breeze Villa", City: "Calangute", State: "Goa", Capacity: 6,
			BasePrice: 9000, Type: "villa", Amenities: []string{"wifi", "pool"}, Rating: 4.7},
		{ID: "p2", Title: "Pine Lodge", City: "Manali", State: "Himachal Pradesh", Capacity: 4,
			BasePrice: 4500, Type: "cottage", Amenities: []string{"wifi"}, Rating: 4.2},
		{ID: "p3", Title: "Heritage Haveli", City: "Jaipur", State: "Rajasthan", Capacity: 8,
			BasePrice: 7000, Type: "haveli", Amenities: []string{"pool"}, Rating: 4.9},
	}
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	idx, err := catalog.NewIndexFromRecords(testProperties())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	hist := history.NewStore(history.NewMemoryStorage())
	sug := suggest.NewEngine(suggest.DefaultPool())
	srv := NewServer(idx, sug, hist, analytics.NopTracker{}, facet.DefaultBounds(),
		&config.ServerConfig{Host: "localhost", Port: 8080}, zap.NewNop(), nil)
	return srv, srv.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandleSearch(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/search?amenities=pool", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out searchResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.MatchCount != 2 {
		t.Errorf("match_count: got %d, want 2", out.MatchCount)
	}
	if out.ActiveFilterCount != 1 {
		t.Errorf("active_filter_count: got %d, want 1", out.ActiveFilterCount)
	}
	for _, r := range out.Results {
		if !r.Property.HasAmenity("pool") {
			t.Errorf("result %s lacks required amenity", r.Property.ID)
		}
	}
}

func TestHandleSearch_RecordsHistory(t *testing.T) {
	srv, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/search?q=goa", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	recent := srv.history.Recent()
	if len(recent) != 1 || recent[0].Text != "goa" {
		t.Errorf("recent history: got %v", recent)
	}
}

func TestHandleSuggest(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/suggest?q=goa", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Suggestions []models.SuggestionEntry `json:"suggestions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Suggestions) == 0 {
		t.Error("expected suggestions for 'goa'")
	}
}

func TestHandleSuggest_EmptyQueryReturnsTopThree(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/suggest", nil)
	var out struct {
		Suggestions []models.SuggestionEntry `json:"suggestions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Suggestions) != 3 {
		t.Errorf("expected 3 default suggestions, got %d", len(out.Suggestions))
	}
}

func TestHistoryEndpoints(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/history/saved", map[string]string{"text": "goa villas"})
	if w.Code != http.StatusCreated {
		t.Fatalf("save status: got %d, body: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/history/saved", nil)
	var out struct {
		Entries []models.SearchHistoryEntry `json:"entries"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Entries) != 1 || out.Entries[0].Text != "goa villas" {
		t.Errorf("saved entries: got %v", out.Entries)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/v1/history/saved", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status: got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/v1/history/saved", nil)
	out.Entries = nil
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Entries) != 0 {
		t.Errorf("after clear: got %v", out.Entries)
	}
}

func TestHandleHistorySave_RequiresText(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/history/saved", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", map[string]string{"q": ""})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status: got %d, body: %s", w.Code, w.Body.String())
	}
	var created sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("expected a session id")
	}

	snap := waitSessionReady(t, router, created.ID)
	if snap.MatchCount != 3 {
		t.Errorf("match_count: got %d, want 3", snap.MatchCount)
	}

	// Narrow the query; the refinement is local and immediate.
	w = doJSON(t, router, http.MethodPut, "/api/v1/sessions/"+created.ID+"/query",
		map[string]string{"query": "amenities=pool&sort=price_desc"})
	if w.Code != http.StatusOK {
		t.Fatalf("query status: got %d, body: %s", w.Code, w.Body.String())
	}
	snap = waitSessionReady(t, router, created.ID)
	if snap.MatchCount != 2 {
		t.Errorf("after filter match_count: got %d, want 2", snap.MatchCount)
	}
	if len(snap.Results) != 2 || snap.Results[0].Property.ID != "p1" {
		t.Errorf("expected price_desc order [p1 p3], got %v", snap.Results)
	}
	if snap.ActiveFilterCount != 1 {
		t.Errorf("active_filter_count: got %d, want 1", snap.ActiveFilterCount)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("after delete: got %d, want 404", w.Code)
	}
}

func waitSessionReady(t *testing.T, router http.Handler, id string) session.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get session: got %d", w.Code)
		}
		var resp sessionResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Snapshot.State == session.StateReady {
			return resp.Snapshot
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for session to become ready")
	return session.Snapshot{}
}

func TestSessionNotFound(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Sessions           int `json:"sessions"`
		CatalogSize        int `json:"catalog_size"`
		SuggestionPoolSize int `json:"suggestion_pool_size"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.CatalogSize != 3 {
		t.Errorf("catalog_size: got %d, want 3", out.CatalogSize)
	}
	if out.SuggestionPoolSize < 1 {
		t.Errorf("suggestion_pool_size: got %d", out.SuggestionPoolSize)
	}
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestSessionManager_SweepExpiresIdleSessions(t *testing.T) {
	m := newSessionManager(time.Minute, zap.NewNop())
	base := time.Now()
	m.now = func() time.Time { return base }

	idx, err := catalog.NewIndexFromRecords(testProperties())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctl := session.NewController(idx, facet.New(facet.DefaultBounds()))
	id := m.Create(ctl)

	m.now = func() time.Time { return base.Add(30 * time.Second) }
	if dropped := m.sweep(); dropped != 0 {
		t.Errorf("fresh session swept: %d", dropped)
	}
	if _, ok := m.Get(id); !ok {
		t.Fatal("session should still exist")
	}

	// Get refreshed lastAccess to +30s; expire well past the TTL.
	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if dropped := m.sweep(); dropped != 1 {
		t.Errorf("expected 1 swept session, got %d", dropped)
	}
	if _, ok := m.Get(id); ok {
		t.Error("session should be expired")
	}
}
