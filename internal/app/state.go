// Package app holds the reader-facing state: query, filter selection and the current result.
package app

import (
	"sync"
	"time"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/recency"
)

// Selection is the filter chosen by the reader.
type Selection struct {
	Period      int
	CustomRange bool
	Start       time.Time
	End         time.Time
}

// Criteria converts the selection for recency.Apply.
// A custom range is used only when it is complete and ordered; otherwise the period applies.
func (s Selection) Criteria() recency.Criteria {
	if s.CustomRange {
		if c := recency.Range(s.Start, s.End); c.RangeActive() {
			return c
		}
	}
	return recency.Rolling(s.Period)
}

// State is a snapshot of the application.
type State struct {
	Query     string
	Selection Selection
	Result    models.SearchResult
	// Token identifies the run whose result is current; 0 before the first settle.
	Token    uint64
	InFlight int
}

// HasResult reports whether any run has settled.
func (s State) HasResult() bool { return s.Token > 0 }

// Store guards the current State and issues run tokens.
type Store struct {
	mu    sync.Mutex
	state State
	next  uint64
}

// NewStore creates a Store seeded with initial.
func NewStore(initial State) *Store {
	initial.Token = 0
	initial.InFlight = 0
	return &Store{state: initial}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Result.Items = append([]models.NewsItem(nil), s.state.Result.Items...)
	return st
}

// Begin issues a token for a new run. Tokens strictly increase.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.state.InFlight++
	return s.next
}

// Settle installs r if token is newer than the token of the current result.
// It reports whether r was installed; results of older runs are discarded.
func (s *Store) Settle(token uint64, r models.SearchResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.InFlight > 0 {
		s.state.InFlight--
	}
	if token <= s.state.Token {
		return false
	}
	s.state.Result = r
	s.state.Token = token
	return true
}

// SetQuery replaces the current query.
func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Query = q
}

// SetSelection replaces the current filter selection.
func (s *Store) SetSelection(sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Selection = sel
}
