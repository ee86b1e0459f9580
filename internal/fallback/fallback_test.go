package fallback_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/ai-news-radar/backend/internal/fallback"
	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/recency"
)

func TestNews(t *testing.T) {
	now := time.Date(2025, 4, 2, 17, 45, 0, 0, time.UTC)
	items := fallback.News(now)

	require.NotEmpty(t, items)
	seen := map[string]bool{}
	for _, it := range items {
		require.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
		require.NotEmpty(t, it.Title)
		require.NotEmpty(t, it.Abstract)
		require.Equal(t, fallback.Source, it.Source)
		require.Equal(t, models.NoLink, it.URL)
		require.False(t, it.HasLink())
		require.Equal(t, models.CategorySystem, it.Category)
		require.Equal(t, "2025-04-02", recency.FormatDate(it.Date))
		require.Equal(t, 0, it.DaysAgo)
	}
}

func TestNewsIsPureFunctionOfNow(t *testing.T) {
	now := time.Date(2025, 4, 2, 1, 0, 0, 0, time.UTC)
	require.Equal(t, fallback.News(now), fallback.News(now))

	later := fallback.News(now.AddDate(0, 0, 1))
	require.Equal(t, "2025-04-03", recency.FormatDate(later[0].Date))
}

func TestNewsSurvivesRollingTodayFilter(t *testing.T) {
	now := time.Date(2025, 4, 2, 23, 59, 0, 0, time.UTC)
	items := fallback.News(now)
	require.Equal(t, items, recency.Apply(items, recency.Rolling(0), now))
}
