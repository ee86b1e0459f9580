package recency

import (
	"time"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
)

// Mode selects how Criteria are applied.
type Mode string

const (
	ModeRolling Mode = "rolling"
	ModeRange   Mode = "range"
)

// DefaultWindowDays is the rolling window used when criteria are unusable.
const DefaultWindowDays = 7

// Presets are the rolling windows offered to readers.
var Presets = []int{1, 3, 7, 14, 30}

// Criteria describe which items stay visible.
// Zero Start or End means the bound is absent.
type Criteria struct {
	Mode       Mode      `json:"mode"`
	MaxDaysAgo int       `json:"max_days_ago,omitempty"`
	Start      time.Time `json:"start,omitzero"`
	End        time.Time `json:"end,omitzero"`
}

// Rolling keeps items at most maxDaysAgo days old.
func Rolling(maxDaysAgo int) Criteria {
	return Criteria{Mode: ModeRolling, MaxDaysAgo: maxDaysAgo}
}

// Range keeps items dated within [start, end], both inclusive.
func Range(start, end time.Time) Criteria {
	return Criteria{Mode: ModeRange, Start: start, End: end}
}

// RangeActive reports whether c is a complete, ordered range.
func (c Criteria) RangeActive() bool {
	if c.Mode != ModeRange || c.Start.IsZero() || c.End.IsZero() {
		return false
	}
	return !Day(c.Start).After(Day(c.End))
}

// Effective resolves c to the criteria Apply actually uses.
// Incomplete or inverted ranges and negative windows become Rolling(DefaultWindowDays).
func (c Criteria) Effective() Criteria {
	switch c.Mode {
	case ModeRange:
		if c.RangeActive() {
			return Range(Day(c.Start), Day(c.End))
		}
		return Rolling(DefaultWindowDays)
	case ModeRolling:
		if c.MaxDaysAgo < 0 {
			return Rolling(DefaultWindowDays)
		}
		return Rolling(c.MaxDaysAgo)
	default:
		return Rolling(DefaultWindowDays)
	}
}

// Apply returns the items matching c, in input order. items is not modified.
func Apply(items []models.NewsItem, c Criteria, now time.Time) []models.NewsItem {
	c = c.Effective()
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if c.match(item, now) {
			out = append(out, item)
		}
	}
	return out
}

func (c Criteria) match(item models.NewsItem, now time.Time) bool {
	if c.Mode == ModeRange {
		d := Day(item.Date)
		return !d.Before(c.Start) && !d.After(c.End)
	}
	return AgeInDays(item.Date, now) <= c.MaxDaysAgo
}
