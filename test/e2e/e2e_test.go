package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/sumika/internal/analytics"
	"github.com/hyperjump/sumika/internal/catalog"
	"github.com/hyperjump/sumika/internal/config"
	"github.com/hyperjump/sumika/internal/facet"
	"github.com/hyperjump/sumika/internal/history"
	"github.com/hyperjump/sumika/internal/models"
	"github.com/hyperjump/sumika/internal/server"
	"github.com/hyperjump/sumika/internal/session"
	"github.com/hyperjump/sumika/internal/suggest"
	"go.uber.org/zap"
)

const corpusSize = 60

type searchResult struct {
	Results           []models.RankedResult `json:"results"`
	MatchCount        int                   `json:"match_count"`
	TotalCount        int                   `json:"total_count"`
	ActiveFilterCount int                   `json:"active_filter_count"`
	QueryString       string                `json:"query_string"`
}

type sessionResult struct {
	ID       string           `json:"id"`
	Snapshot session.Snapshot `json:"snapshot"`
}

func startStack(t *testing.T) (*httptest.Server, []*models.PropertyRecord) {
	t.Helper()
	records := buildCorpus(corpusSize)
	idx, err := catalog.NewIndexFromRecords(records)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	storage, err := history.NewSQLiteStorage(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = storage.Close() })
	hist := history.NewStore(storage)

	srv := server.NewServer(idx, suggest.NewEngine(suggest.DefaultPool()), hist,
		analytics.NopTracker{}, facet.DefaultBounds(),
		&config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop(), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, records
}

func getSearch(t *testing.T, ts *httptest.Server, query string) searchResult {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/v1/search?" + query)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search %q: status %d", query, resp.StatusCode)
	}
	var out searchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestE2E_FilteredSearchMatchesCorpus(t *testing.T) {
	ts, records := startStack(t)

	out := getSearch(t, ts, "amenities=pool&guests=4&pageSize=60")
	want := countWhere(records, func(p *models.PropertyRecord) bool {
		return p.HasAmenity("pool") && p.Capacity >= 4
	})
	if out.MatchCount != want {
		t.Errorf("match_count: got %d, want %d", out.MatchCount, want)
	}
	if out.ActiveFilterCount != 1 {
		t.Errorf("active_filter_count: got %d, want 1 (guests is not a filter)", out.ActiveFilterCount)
	}
	for _, r := range out.Results {
		if !r.Property.HasAmenity("pool") || r.Property.Capacity < 4 {
			t.Errorf("non-matching result %s", r.Property.ID)
		}
	}
}

func TestE2E_PriceSortAndPaging(t *testing.T) {
	ts, _ := startStack(t)

	pageSize := 10
	seen := map[string]bool{}
	lastPrice := -1
	for page := 1; page <= 3; page++ {
		out := getSearch(t, ts, fmt.Sprintf("sort=price_asc&page=%d&pageSize=%d", page, pageSize))
		if out.MatchCount != corpusSize {
			t.Fatalf("match_count: got %d, want %d", out.MatchCount, corpusSize)
		}
		if len(out.Results) != pageSize {
			t.Fatalf("page %d: got %d results, want %d", page, len(out.Results), pageSize)
		}
		for _, r := range out.Results {
			if seen[r.Property.ID] {
				t.Errorf("duplicate %s across pages", r.Property.ID)
			}
			seen[r.Property.ID] = true
			if r.Property.BasePrice < lastPrice {
				t.Errorf("price order violated at %s: %d < %d", r.Property.ID, r.Property.BasePrice, lastPrice)
			}
			lastPrice = r.Property.BasePrice
		}
	}
}

func TestE2E_LocationNarrowsAtLookup(t *testing.T) {
	ts, records := startStack(t)

	out := getSearch(t, ts, "location=goa&pageSize=60")
	want := countWhere(records, func(p *models.PropertyRecord) bool { return p.State == "Goa" })
	if out.MatchCount != want {
		t.Errorf("location=goa match_count: got %d, want %d", out.MatchCount, want)
	}
}

func TestE2E_SearchRecordsHistoryWithDedupe(t *testing.T) {
	ts, _ := startStack(t)

	for _, q := range []string{"q=goa", "q=manali", "q=goa"} {
		_ = getSearch(t, ts, q)
	}

	resp, err := http.Get(ts.URL + "/api/v1/history/recent")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Entries []models.SearchHistoryEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Entries) != 2 {
		t.Fatalf("recent entries: got %d, want 2 (goa deduped)", len(out.Entries))
	}
	if out.Entries[0].Text != "goa" || out.Entries[1].Text != "manali" {
		t.Errorf("recent order: got %v, want [goa manali]", out.Entries)
	}
}

func TestE2E_Suggest(t *testing.T) {
	ts, _ := startStack(t)

	resp, err := http.Get(ts.URL + "/api/v1/suggest?q=goa")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Suggestions []models.SuggestionEntry `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Suggestions) == 0 {
		t.Error("expected suggestions for 'goa'")
	}
}

func TestE2E_SessionQueryReplace(t *testing.T) {
	ts, records := startStack(t)

	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json",
		bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatal(err)
	}
	var created sessionResult
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if created.ID == "" {
		t.Fatal("expected a session id")
	}

	waitReady(t, ts, created.ID)

	body := []byte(`{"query":"amenities=wifi&sort=rating_desc&pageSize=60"}`)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/sessions/"+created.ID+"/query",
		bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query replace: status %d", resp.StatusCode)
	}

	snap := waitReady(t, ts, created.ID)
	want := countWhere(records, func(p *models.PropertyRecord) bool { return p.HasAmenity("wifi") })
	if snap.MatchCount != want {
		t.Errorf("wifi match_count: got %d, want %d", snap.MatchCount, want)
	}
	lastRating := 6.0
	for _, r := range snap.Results {
		if r.Property.Rating > lastRating {
			t.Errorf("rating order violated at %s", r.Property.ID)
		}
		lastRating = r.Property.Rating
	}
}

func waitReady(t *testing.T, ts *httptest.Server, id string) session.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/api/v1/sessions/" + id)
		if err != nil {
			t.Fatal(err)
		}
		var out sessionResult
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if out.Snapshot.State == session.StateReady {
			return out.Snapshot
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for session")
	return session.Snapshot{}
}
