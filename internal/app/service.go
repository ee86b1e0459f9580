package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/recency"
)

// Runner executes one search run.
type Runner interface {
	Run(ctx context.Context, query string, now time.Time) models.SearchResult
}

// View is the filtered, freshly stamped content shown to readers.
type View struct {
	Query      string
	Outcome    models.Outcome
	LastUpdate time.Time
	Criteria   recency.Criteria
	Items      []models.NewsItem
	Refreshing bool
}

// Service triggers runs and renders views over a Store.
type Service struct {
	runner Runner
	store  *Store
	now    func() time.Time
	log    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires runner to store.
func NewService(runner Runner, store *Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{runner: runner, store: store, now: time.Now, log: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh runs a search for query, or for the current query when query is blank.
// A non-blank query becomes the current query. The returned flag is false when a
// newer run settled first and this result was discarded.
// The result is shared by every reader, so cancelling ctx does not abort the run;
// the runner's own timeout bounds it.
func (s *Service) Refresh(ctx context.Context, query string) (models.SearchResult, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = s.store.Snapshot().Query
	} else {
		s.store.SetQuery(query)
	}

	token := s.store.Begin()
	result := s.runner.Run(context.WithoutCancel(ctx), query, s.now())
	applied := s.store.Settle(token, result)
	if !applied {
		s.log.Info("discarding stale result", slog.Uint64("token", token), slog.String("query", query))
	}
	return result, applied
}

// Select stores a new filter selection.
func (s *Service) Select(sel Selection) error {
	if sel.Period < 0 {
		return fmt.Errorf("period must not be negative")
	}
	if sel.CustomRange && !sel.Criteria().RangeActive() {
		return fmt.Errorf("custom range needs start and end with start <= end")
	}
	s.store.SetSelection(sel)
	return nil
}

// State returns a snapshot of the application state.
func (s *Service) State() State {
	return s.store.Snapshot()
}

// View renders the current result with the stored selection.
func (s *Service) View(now time.Time) View {
	st := s.store.Snapshot()
	return render(st, st.Selection.Criteria(), now)
}

// ViewWith renders the current result with c instead of the stored selection.
func (s *Service) ViewWith(c recency.Criteria, now time.Time) View {
	return render(s.store.Snapshot(), c, now)
}

func render(st State, c recency.Criteria, now time.Time) View {
	c = c.Effective()
	query := st.Result.Query
	if query == "" {
		query = st.Query
	}
	return View{
		Query:      query,
		Outcome:    st.Result.Outcome,
		LastUpdate: st.Result.CompletedAt,
		Criteria:   c,
		Items:      recency.Stamp(recency.Apply(st.Result.Items, c, now), now),
		Refreshing: st.InFlight > 0,
	}
}
