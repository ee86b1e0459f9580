package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/DeafMist/ai-news-radar/backend/internal/app"
	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/recency"
)

const maxBodyBytes = 1 << 16

type server struct {
	log *slog.Logger
	svc *app.Service
	now func() time.Time
}

func newRouter(srv *server, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Get("/news", srv.handleNews)
	r.Put("/news/criteria", srv.handleCriteria)
	r.Post("/news/refresh", srv.handleRefresh)
	r.Handle("/metrics", metricsHandler)

	return otelhttp.NewHandler(r, "api")
}

type errorResponse struct {
	Error string `json:"error"`
}

type criteriaResponse struct {
	Mode       recency.Mode `json:"mode"`
	MaxDaysAgo int          `json:"max_days_ago,omitempty"`
	Start      string       `json:"start,omitempty"`
	End        string       `json:"end,omitempty"`
}

type itemResponse struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	URL      string          `json:"url"`
	Source   string          `json:"source"`
	Date     string          `json:"date"`
	Category models.Category `json:"category"`
	Abstract string          `json:"abstract"`
	DaysAgo  int             `json:"days_ago"`
	AgeLabel string          `json:"age_label"`
}

type newsResponse struct {
	Query      string           `json:"query"`
	Outcome    models.Outcome   `json:"outcome,omitempty"`
	LastUpdate *time.Time       `json:"last_update,omitempty"`
	Refreshing bool             `json:"refreshing"`
	Applied    *bool            `json:"applied,omitempty"`
	Criteria   criteriaResponse `json:"criteria"`
	Total      int              `json:"total"`
	Items      []itemResponse   `json:"items"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.svc.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"has_result": st.HasResult(),
		"refreshing": st.InFlight > 0,
	})
}

// handleNews renders the current result. Query parameters override the stored
// selection for this request only.
func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	criteria, override, err := parseCriteria(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	now := s.now()
	view := s.svc.View(now)
	if override {
		view = s.svc.ViewWith(criteria, now)
	}
	writeJSON(w, http.StatusOK, toResponse(view))
}

type criteriaRequest struct {
	Period *int   `json:"period"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func (s *server) handleCriteria(w http.ResponseWriter, r *http.Request) {
	var req criteriaRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sel := s.svc.State().Selection
	switch {
	case req.Start != "" || req.End != "":
		start, err := recency.ParseDate(req.Start)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("start: %v", err)})
			return
		}
		end, err := recency.ParseDate(req.End)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("end: %v", err)})
			return
		}
		sel.CustomRange, sel.Start, sel.End = true, start, end
	case req.Period != nil:
		sel = app.Selection{Period: *req.Period}
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "either period or start and end are required"})
		return
	}

	if err := s.svc.Select(sel); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.log.Info("criteria updated", slog.Int("period", sel.Period), slog.Bool("custom_range", sel.CustomRange))
	writeJSON(w, http.StatusOK, toResponse(s.svc.View(s.now())))
}

type refreshRequest struct {
	Query string `json:"query"`
}

// handleRefresh runs a search and waits for it. Failures degrade to the
// fallback batch, so the status is always 200.
func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	_, applied := s.svc.Refresh(r.Context(), req.Query)
	resp := toResponse(s.svc.View(s.now()))
	resp.Applied = &applied
	writeJSON(w, http.StatusOK, resp)
}

func toResponse(v app.View) newsResponse {
	resp := newsResponse{
		Query:      v.Query,
		Outcome:    v.Outcome,
		Refreshing: v.Refreshing,
		Criteria:   toCriteriaResponse(v.Criteria),
		Total:      len(v.Items),
		Items:      make([]itemResponse, 0, len(v.Items)),
	}
	if !v.LastUpdate.IsZero() {
		last := v.LastUpdate.UTC()
		resp.LastUpdate = &last
	}
	for _, it := range v.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID:       it.ID,
			Title:    it.Title,
			URL:      it.URL,
			Source:   it.Source,
			Date:     recency.FormatDate(it.Date),
			Category: it.Category,
			Abstract: it.Abstract,
			DaysAgo:  it.DaysAgo,
			AgeLabel: recency.Label(it.DaysAgo),
		})
	}
	return resp
}

func toCriteriaResponse(c recency.Criteria) criteriaResponse {
	out := criteriaResponse{Mode: c.Mode, MaxDaysAgo: c.MaxDaysAgo}
	if c.Mode == recency.ModeRange {
		out.Start = recency.FormatDate(c.Start)
		out.End = recency.FormatDate(c.End)
	}
	return out
}

// parseCriteria reads ?period= or ?start=&end=. The flag is false when neither is set.
func parseCriteria(q url.Values) (recency.Criteria, bool, error) {
	rawStart := strings.TrimSpace(q.Get("start"))
	rawEnd := strings.TrimSpace(q.Get("end"))
	if rawStart != "" || rawEnd != "" {
		start, err := parseOptionalDate(rawStart)
		if err != nil {
			return recency.Criteria{}, false, fmt.Errorf("start: %w", err)
		}
		end, err := parseOptionalDate(rawEnd)
		if err != nil {
			return recency.Criteria{}, false, fmt.Errorf("end: %w", err)
		}
		return recency.Range(start, end), true, nil
	}

	rawPeriod := strings.TrimSpace(q.Get("period"))
	if rawPeriod == "" {
		return recency.Criteria{}, false, nil
	}
	period, err := strconv.Atoi(rawPeriod)
	if err != nil {
		return recency.Criteria{}, false, fmt.Errorf("period: %w", err)
	}
	return recency.Rolling(period), true, nil
}

// parseOptionalDate leaves a blank bound unset; recency treats the range as incomplete.
func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return recency.ParseDate(raw)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
