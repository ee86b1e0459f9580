// Package recency derives the age of news items and filters them by age or date range.
package recency

import (
	"fmt"
	"strings"
	"time"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
)

const day = 24 * time.Hour

var dateFormats = []string{
	models.DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AgeInDays returns the number of calendar days between the UTC days of date and now.
// Dates after now count as positive ages so clock skew never yields a negative value.
func AgeInDays(date, now time.Time) int {
	diff := Day(now).Sub(Day(date))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / day)
}

// ParseDate reads a calendar date. Timestamps are accepted and truncated to their UTC day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, f := range dateFormats {
		if ts, err := time.Parse(f, raw); err == nil {
			return Day(ts), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return Day(t).Format(models.DateLayout)
}

// Label renders an age for display.
func Label(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// Stamp returns a copy of items with DaysAgo recomputed against now.
func Stamp(items []models.NewsItem, now time.Time) []models.NewsItem {
	out := make([]models.NewsItem, len(items))
	for i, item := range items {
		item.DaysAgo = AgeInDays(item.Date, now)
		out[i] = item
	}
	return out
}
