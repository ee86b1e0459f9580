package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/ai-news-radar/backend/internal/events"
	"github.com/DeafMist/ai-news-radar/backend/internal/fallback"
	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/pipeline"
)

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func TestRunSettledPublishesEvent(t *testing.T) {
	w := &stubWriter{}
	pub := events.NewPublisher(w, nil)
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	pub.RunSettled(context.Background(), pipeline.Report{
		Query:    "AI policy",
		Outcome:  models.OutcomeFallbackApplied,
		Kind:     pipeline.KindNoJSONFound,
		Err:      errors.New("extract json: no json object found"),
		Items:    2,
		Started:  started,
		Duration: 1500 * time.Millisecond,
	})
	pub.Wait()

	require.Len(t, w.msgs, 1)
	var ev events.RunEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.Equal(t, string(w.msgs[0].Key), ev.ID)
	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	require.Equal(t, "AI policy", ev.Query)
	require.Equal(t, models.OutcomeFallbackApplied, ev.Outcome)
	require.Equal(t, pipeline.KindNoJSONFound, ev.Kind)
	require.Equal(t, "extract json: no json object found", ev.Error)
	require.Equal(t, 2, ev.Items)
	require.Equal(t, started, ev.StartedAt)
	require.Equal(t, int64(1500), ev.DurationMS)
}

func TestRunSettledSwallowsWriteErrors(t *testing.T) {
	pub := events.NewPublisher(&stubWriter{err: errors.New("broker down")}, nil)
	require.NotPanics(t, func() {
		pub.RunSettled(context.Background(), pipeline.Report{Outcome: models.OutcomeSucceeded})
		pub.Wait()
	})
}

// blockingWriter holds every write until release is closed.
type blockingWriter struct {
	release chan struct{}
	stubWriter
}

func (b *blockingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.stubWriter.WriteMessages(ctx, msgs...)
}

func TestRunSettledDoesNotWaitForBroker(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	pub := events.NewPublisher(w, nil)

	returned := make(chan struct{})
	go func() {
		pub.RunSettled(context.Background(), pipeline.Report{Query: "q", Outcome: models.OutcomeSucceeded})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("RunSettled blocked on the writer")
	}

	close(w.release)
	pub.Wait()
	require.Len(t, w.msgs, 1)
}

func TestRunSettledOutlivesCallerContext(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	pub := events.NewPublisher(w, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pub.RunSettled(ctx, pipeline.Report{Query: "q", Outcome: models.OutcomeSucceeded})
	cancel()

	close(w.release)
	pub.Wait()
	require.Len(t, w.msgs, 1)
}

func TestPublishResult(t *testing.T) {
	w := &stubWriter{}
	pub := events.NewPublisher(w, nil)
	now := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	res := models.SearchResult{Query: "q", Outcome: models.OutcomeFallbackApplied, Items: fallback.News(now), CompletedAt: now}

	require.NoError(t, pub.PublishResult(context.Background(), "req-1", res))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "req-1", string(w.msgs[0].Key))

	var msg events.ResultMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	require.Equal(t, "req-1", msg.RequestID)
	require.Equal(t, res, msg.Result)

	failing := events.NewPublisher(&stubWriter{err: errors.New("nope")}, nil)
	require.ErrorContains(t, failing.PublishResult(context.Background(), "req-2", res), "write message")
}

func TestNewWriterFlushesPromptly(t *testing.T) {
	w := events.NewWriter([]string{"localhost:9092"}, "news_runs")
	t.Cleanup(func() { _ = w.Close() })

	require.Equal(t, "news_runs", w.Topic)
	require.Positive(t, w.BatchTimeout)
	require.LessOrEqual(t, w.BatchTimeout, 50*time.Millisecond)
}
