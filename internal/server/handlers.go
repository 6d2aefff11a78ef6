package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/sumika/internal/analytics"
	"github.com/hyperjump/sumika/internal/facet"
	"github.com/hyperjump/sumika/internal/models"
	"github.com/hyperjump/sumika/internal/rank"
	"github.com/hyperjump/sumika/internal/session"
	"go.uber.org/zap"
)

// searchResponse is the stateless one-shot search payload.
type searchResponse struct {
	Results           []models.RankedResult `json:"results"`
	MatchCount        int                   `json:"match_count"`
	TotalCount        int                   `json:"total_count"`
	ActiveFilterCount int                   `json:"active_filter_count"`
	QueryString       string                `json:"query_string"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := facet.ParseValues(r.URL.Query(), s.bounds)
	s.logger.Debug("search request", zap.String("query", q.Encode()))

	res, err := s.catalog.Search(r.Context(), models.LookupRequest{
		FreeText: q.FreeText(),
		Location: q.Location(),
		CheckIn:  q.CheckIn(),
		CheckOut: q.CheckOut(),
		Guests:   q.Guests(),
		Page:     1,
		SortHint: string(q.Sort()),
	})
	if err != nil {
		s.logger.Error("catalog lookup failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	ranked := rank.Apply(res.Candidates, q)
	page := rank.Page(ranked, q)
	if page == nil {
		page = []models.RankedResult{}
	}

	if s.history != nil {
		s.history.RecordSearch(r.Context(), q.FreeText())
	}
	s.tracker.TrackSearch(r.Context(), analytics.SearchEvent{
		Query:       q.FreeText(),
		QueryString: q.Encode(),
		ResultCount: len(ranked),
	})

	s.respondJSON(w, http.StatusOK, searchResponse{
		Results:           page,
		MatchCount:        len(ranked),
		TotalCount:        res.TotalCount,
		ActiveFilterCount: q.ActiveFacetCount(),
		QueryString:       q.Encode(),
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	entries := s.suggest.Suggest(text)
	if entries == nil {
		entries = []models.SuggestionEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": entries})
}

func (s *Server) handleHistoryRecent(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": s.history.Recent()})
}

func (s *Server) handleHistorySaved(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": s.history.Saved()})
}

func (s *Server) handleHistorySave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.history.SaveSearch(r.Context(), req.Text)
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"entries": s.history.Saved()})
}

func (s *Server) handleHistoryClearRecent(w http.ResponseWriter, r *http.Request) {
	s.history.ClearRecent(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHistoryClearSaved(w http.ResponseWriter, r *http.Request) {
	s.history.ClearSaved(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type sessionResponse struct {
	ID       string           `json:"id"`
	Snapshot session.Snapshot `json:"snapshot"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if r.Body != nil {
		// An empty body means the platform default query.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	q, err := facet.ParseQueryString(req.Query, s.bounds)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid query string")
		return
	}

	opts := []session.Option{session.WithTracker(s.tracker), session.WithLogger(s.logger)}
	if s.history != nil {
		opts = append(opts, session.WithHistory(s.history))
	}
	ctl := session.NewController(s.catalog, q, opts...)
	// Sessions outlive the creating request.
	ctl.Start(s.baseCtx)
	id := s.sessions.Create(ctl)
	s.logger.Debug("session created", zap.String("id", id), zap.String("query", q.Encode()))
	s.respondJSON(w, http.StatusCreated, sessionResponse{ID: id, Snapshot: ctl.Snapshot()})
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctl, ok := s.sessions.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{ID: id, Snapshot: ctl.Snapshot()})
}

func (s *Server) handleSessionQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctl, ok := s.sessions.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := facet.ParseQueryString(req.Query, s.bounds)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid query string")
		return
	}
	ctl.SetQuery(q)
	s.respondJSON(w, http.StatusOK, sessionResponse{ID: id, Snapshot: ctl.Snapshot()})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sized is implemented by catalog backends that know how many properties
// they hold (the local index does; the HTTP proxy does not).
type sized interface {
	Size() int
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"sessions": s.sessions.Len(),
	}
	if c, ok := s.catalog.(sized); ok {
		resp["catalog_size"] = c.Size()
	}
	if s.suggest != nil {
		resp["suggestion_pool_size"] = s.suggest.Size()
	}
	if s.history != nil {
		resp["recent_history_size"] = len(s.history.Recent())
		resp["saved_history_size"] = len(s.history.Saved())
	}
	if s.fullCfg != nil {
		resp["config"] = map[string]interface{}{
			"catalog_mode":      s.fullCfg.Catalog.Mode,
			"min_price":         s.fullCfg.Search.MinPrice,
			"max_price":         s.fullCfg.Search.MaxPrice,
			"default_page_size": s.fullCfg.Search.DefaultPageSize,
			"max_page_size":     s.fullCfg.Search.MaxPageSize,
			"history_path":      s.fullCfg.Storage.HistoryPath,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
