package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/ai-news-radar/backend/internal/dedupe"
	"github.com/DeafMist/ai-news-radar/backend/internal/events"
	"github.com/DeafMist/ai-news-radar/backend/internal/models"
)

type stubRunner struct {
	query string
	now   time.Time
}

func (s *stubRunner) Run(_ context.Context, query string, now time.Time) models.SearchResult {
	s.query, s.now = query, now
	return models.SearchResult{Query: query, Outcome: models.OutcomeSucceeded, CompletedAt: now}
}

type published struct {
	requestID string
	result    models.SearchResult
}

type stubPublisher struct {
	got []published
	err error
}

func (s *stubPublisher) PublishResult(_ context.Context, requestID string, result models.SearchResult) error {
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, published{requestID: requestID, result: result})
	return nil
}

type flakyWriter struct {
	failures int
	calls    int
	msgs     []kafka.Message
}

func (w *flakyWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastBackoff(t *testing.T) {
	orig := dlqBackoff
	dlqBackoff = func(int) time.Duration { return time.Millisecond }
	t.Cleanup(func() { dlqBackoff = orig })
}

func newCache() *dedupe.Cache {
	return dedupe.NewCache(100, time.Hour)
}

func queryMessage(t *testing.T, q events.QueryMessage) kafka.Message {
	t.Helper()
	data, err := json.Marshal(q)
	require.NoError(t, err)
	return kafka.Message{Value: data, Partition: 2, Offset: 41}
}

func TestProcessMessagePublishesResult(t *testing.T) {
	runner := &stubRunner{}
	pub := &stubPublisher{}
	msg := queryMessage(t, events.QueryMessage{RequestID: "req-1", Query: "  AI chips ", Now: "2025-01-15T10:00:00Z"})

	require.NoError(t, processMessage(context.Background(), discard(), runner, pub, newCache(), msg))

	require.Equal(t, "AI chips", runner.query)
	require.True(t, runner.now.Equal(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)))
	require.Len(t, pub.got, 1)
	require.Equal(t, "req-1", pub.got[0].requestID)
	require.Equal(t, "AI chips", pub.got[0].result.Query)
}

func TestProcessMessageDefaultsRequestIDAndNow(t *testing.T) {
	runner := &stubRunner{}
	pub := &stubPublisher{}
	before := time.Now().UTC()

	require.NoError(t, processMessage(context.Background(), discard(), runner, pub, newCache(), queryMessage(t, events.QueryMessage{Query: "robots"})))

	require.Len(t, pub.got, 1)
	require.Len(t, pub.got[0].requestID, 36)
	require.False(t, runner.now.Before(before))
}

func TestProcessMessageRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not json", value: "query=ai"},
		{name: "empty query", value: `{"request_id":"r","query":"  "}`},
		{name: "bad now", value: `{"query":"ai","now":"tomorrow"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &stubPublisher{}
			err := processMessage(context.Background(), discard(), &stubRunner{}, pub, newCache(), kafka.Message{Value: []byte(tt.value)})
			require.Error(t, err)
			require.Empty(t, pub.got)
		})
	}
}

func TestProcessMessageSkipsAnsweredRequest(t *testing.T) {
	runner := &stubRunner{}
	pub := &stubPublisher{}
	cache := newCache()
	msg := queryMessage(t, events.QueryMessage{RequestID: "req-9", Query: "ai"})

	require.NoError(t, processMessage(context.Background(), discard(), runner, pub, cache, msg))
	require.NoError(t, processMessage(context.Background(), discard(), runner, pub, cache, msg))
	require.Len(t, pub.got, 1)

	anonymous := queryMessage(t, events.QueryMessage{Query: "ai"})
	require.NoError(t, processMessage(context.Background(), discard(), runner, pub, cache, anonymous))
	require.NoError(t, processMessage(context.Background(), discard(), runner, pub, cache, anonymous))
	require.Len(t, pub.got, 3)
}

func TestProcessMessagePublishErrorIsRetryable(t *testing.T) {
	pub := &stubPublisher{err: errors.New("leader not available")}
	cache := newCache()
	msg := queryMessage(t, events.QueryMessage{RequestID: "req-3", Query: "ai"})

	require.ErrorContains(t, processMessage(context.Background(), discard(), &stubRunner{}, pub, cache, msg), "publish result")
	require.False(t, cache.Seen("req-3"))
}

func TestProcessMessagePublishError(t *testing.T) {
	pub := &stubPublisher{err: errors.New("leader not available")}
	err := processMessage(context.Background(), discard(), &stubRunner{}, pub, newCache(), queryMessage(t, events.QueryMessage{Query: "ai"}))
	require.ErrorContains(t, err, "publish result")
}

func TestSendToDLQRetriesWithHeaders(t *testing.T) {
	fastBackoff(t)

	w := &flakyWriter{failures: 2}
	msg := kafka.Message{Key: []byte("k"), Value: []byte("bad"), Partition: 3, Offset: 7, Headers: []kafka.Header{{Key: "trace", Value: []byte("x")}}}

	require.True(t, sendToDLQ(context.Background(), discard(), w, msg, errors.New("empty query")))
	require.Equal(t, 3, w.calls)
	require.Len(t, w.msgs, 1)

	headers := map[string]string{}
	for _, h := range w.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "x", headers["trace"])
	require.Equal(t, "3", headers["original_partition"])
	require.Equal(t, "7", headers["original_offset"])
	require.Equal(t, "empty query", headers["error"])
	require.NotEmpty(t, headers["timestamp"])
	require.Len(t, msg.Headers, 1)
}

func TestSendToDLQGivesUp(t *testing.T) {
	fastBackoff(t)

	w := &flakyWriter{failures: dlqAttempts}
	require.False(t, sendToDLQ(context.Background(), discard(), w, kafka.Message{}, errors.New("x")))
	require.Equal(t, dlqAttempts, w.calls)
}

func TestSendToDLQStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &flakyWriter{failures: dlqAttempts}
	require.False(t, sendToDLQ(ctx, discard(), w, kafka.Message{}, errors.New("x")))
	require.Equal(t, 1, w.calls)
}

func TestParseTimestamp(t *testing.T) {
	ts := parseTimestamp("2024-02-03T04:05:06+02:00")
	require.False(t, ts.IsZero())
	require.Equal(t, time.UTC, ts.Location())
	require.Equal(t, 2, ts.Hour())

	legacy := parseTimestamp("2024-02-03 04:05:06")
	require.False(t, legacy.IsZero())
	require.Equal(t, 4, legacy.Hour())

	require.True(t, parseTimestamp("invalid").IsZero())
	require.True(t, parseTimestamp("").IsZero())
}
