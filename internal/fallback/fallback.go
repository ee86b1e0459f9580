// Package fallback provides the static batch shown when live results are unavailable.
package fallback

import (
	"time"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/recency"
)

// Source is the publisher name on every fallback item.
const Source = "News Radar"

// News returns the fallback batch dated on now's calendar day.
func News(now time.Time) []models.NewsItem {
	today := recency.Day(now)
	items := []models.NewsItem{
		{
			ID:       "1",
			Title:    "Live news search unavailable - demo mode",
			URL:      models.NoLink,
			Source:   Source,
			Date:     today,
			Category: models.CategorySystem,
			Abstract: "The news radar is running but could not load live results from the search service. " +
				"This placeholder confirms the service is up; refresh later to try the search again.",
		},
		{
			ID:       "2",
			Title:    "Welcome to the AI news radar",
			URL:      models.NoLink,
			Source:   Source,
			Date:     today,
			Category: models.CategorySystem,
			Abstract: "This radar searches for the most recent news about the configured topic and lets you filter it by age or date range. " +
				"Live items appear here as soon as the search service responds with valid results.",
		},
	}
	return recency.Stamp(items, now)
}
