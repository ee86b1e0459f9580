package processing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/recency"
)

// NewsField is the top-level key holding the records.
const NewsField = "news"

// Validation is the outcome of a successful Validate call.
type Validation struct {
	Items   []models.NewsItem
	Dropped []RecordError
}

// Validate decodes payload and converts each record into a NewsItem.
// Records failing a check are dropped; the call fails only when the payload
// cannot be decoded, has no news array, or leaves no valid records.
// Dates later than now are rejected.
func Validate(payload string, now time.Time) (Validation, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return Validation{}, &ValidationError{Err: fmt.Errorf("%w: %v", ErrMalformedJSON, err)}
	}

	raw, ok := envelope[NewsField]
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 || raw[0] != '[' {
		return Validation{}, &ValidationError{Err: ErrMissingNewsArray}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return Validation{}, &ValidationError{Err: fmt.Errorf("%w: %v", ErrMalformedJSON, err)}
	}

	out := Validation{Items: make([]models.NewsItem, 0, len(records))}
	ids := make(map[string]struct{}, len(records))
	for i, rec := range records {
		item, rerr := validateRecord(i, rec, now)
		if rerr != nil {
			out.Dropped = append(out.Dropped, *rerr)
			continue
		}
		item.ID = uniqueID(ids, item.ID, i)
		out.Items = append(out.Items, item)
	}

	if len(out.Items) == 0 {
		return Validation{}, &ValidationError{Err: ErrAllRecordsInvalid, Dropped: out.Dropped}
	}
	return out, nil
}

func validateRecord(index int, raw json.RawMessage, now time.Time) (models.NewsItem, *RecordError) {
	fail := func(field, reason string) (models.NewsItem, *RecordError) {
		return models.NewsItem{}, &RecordError{Index: index, Field: field, Reason: reason}
	}

	var rec map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return fail("", "not an object")
	}

	fields := make(map[string]string, 6)
	for _, name := range []string{"title", "url", "source", "date", "category", "abstract"} {
		v, present := rec[name]
		if !present {
			return fail(name, "missing")
		}
		s, isString := v.(string)
		if !isString {
			return fail(name, fmt.Sprintf("expected string, got %T", v))
		}
		fields[name] = s
	}

	item := models.NewsItem{
		ID:       recordID(rec["id"], index),
		Title:    CleanText(fields["title"]),
		URL:      NormalizeURL(fields["url"]),
		Source:   CleanText(fields["source"]),
		Category: NormalizeCategory(fields["category"]),
		Abstract: CleanText(fields["abstract"]),
	}

	switch {
	case item.Title == "":
		return fail("title", "empty")
	case item.Source == "":
		return fail("source", "empty")
	case item.Abstract == "":
		return fail("abstract", "empty")
	}

	date, err := recency.ParseDate(fields["date"])
	if err != nil {
		return fail("date", err.Error())
	}
	if date.After(now) {
		return fail("date", "in the future")
	}
	item.Date = date

	return item, nil
}

// recordID turns a numeric or string id into a token, defaulting to the 1-based position.
func recordID(v any, index int) string {
	switch id := v.(type) {
	case json.Number:
		return id.String()
	case string:
		if s := strings.TrimSpace(id); s != "" {
			return s
		}
	}
	return strconv.Itoa(index + 1)
}

// uniqueID keeps ids unique within a batch by suffixing repeats with the
// record position. Records themselves are never merged.
func uniqueID(seen map[string]struct{}, id string, index int) string {
	candidate := id
	for n := index + 1; ; n++ {
		if _, dup := seen[candidate]; !dup {
			seen[candidate] = struct{}{}
			return candidate
		}
		candidate = id + "-" + strconv.Itoa(n)
	}
}
