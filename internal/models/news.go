package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Category is the normalized topical bucket of a news item.
type Category string

const (
	CategoryGenerativeAI  Category = "Generative AI"
	CategoryRobotics      Category = "Robotics"
	CategoryMarkets       Category = "Markets"
	CategoryEvents        Category = "Events"
	CategorySecurity      Category = "Security"
	CategoryTrends        Category = "Trends"
	CategoryReports       Category = "Reports"
	CategoryAGI           Category = "AGI"
	CategoryInnovation    Category = "Innovation"
	CategoryPolicy        Category = "Policy"
	CategoryPrivacy       Category = "Privacy"
	CategoryUncategorized Category = "Uncategorized"

	// CategorySystem is reserved for items authored by the service itself.
	CategorySystem Category = "System"
)

// Categories lists the buckets the search API is asked to choose from.
var Categories = []Category{
	CategoryGenerativeAI,
	CategoryRobotics,
	CategoryMarkets,
	CategoryEvents,
	CategorySecurity,
	CategoryTrends,
	CategoryReports,
	CategoryAGI,
	CategoryInnovation,
	CategoryPolicy,
	CategoryPrivacy,
}

// NoLink is the url placeholder for items without a link.
const NoLink = "#"

// NewsItem represents one validated news record.
type NewsItem struct {
	ID       string
	Title    string
	URL      string
	Source   string
	Date     time.Time
	Category Category
	Abstract string
	// DaysAgo is derived from Date and the instant of the last stamp.
	DaysAgo int
}

// HasLink reports whether the item points to a real article.
func (n NewsItem) HasLink() bool {
	return n.URL != "" && n.URL != NoLink
}

type newsItemJSON struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Source   string   `json:"source"`
	Date     string   `json:"date"`
	Category Category `json:"category"`
	Abstract string   `json:"abstract"`
	DaysAgo  int      `json:"days_ago"`
}

// MarshalJSON writes Date as YYYY-MM-DD.
func (n NewsItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(newsItemJSON{
		ID:       n.ID,
		Title:    n.Title,
		URL:      n.URL,
		Source:   n.Source,
		Date:     n.Date.Format(DateLayout),
		Category: n.Category,
		Abstract: n.Abstract,
		DaysAgo:  n.DaysAgo,
	})
}

// UnmarshalJSON reads the format produced by MarshalJSON.
func (n *NewsItem) UnmarshalJSON(data []byte) error {
	var raw newsItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw.Date, err)
	}
	*n = NewsItem{
		ID:       raw.ID,
		Title:    raw.Title,
		URL:      raw.URL,
		Source:   raw.Source,
		Date:     date,
		Category: raw.Category,
		Abstract: raw.Abstract,
		DaysAgo:  raw.DaysAgo,
	}
	return nil
}

// Outcome tells how a pipeline run settled.
type Outcome string

const (
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeFallbackApplied Outcome = "fallback_applied"
)

// SearchResult is the ordered output of one pipeline run.
type SearchResult struct {
	Query       string     `json:"query"`
	Outcome     Outcome    `json:"outcome"`
	Items       []NewsItem `json:"items"`
	CompletedAt time.Time  `json:"completed_at"`
}

// FallbackUsed reports whether the items come from the fallback batch.
func (r SearchResult) FallbackUsed() bool {
	return r.Outcome == OutcomeFallbackApplied
}
