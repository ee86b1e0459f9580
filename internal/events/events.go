// Package events publishes search runs and worker results to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/pipeline"
)

const (
	publishTimeout = 5 * time.Second
	// batchTimeout bounds how long a single message waits for a batch to fill.
	batchTimeout = 10 * time.Millisecond
)

// Writer is the subset of *kafka.Writer used here.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// RunEvent is the wire form of a settled pipeline run.
type RunEvent struct {
	ID         string         `json:"id"`
	Query      string         `json:"query"`
	Outcome    models.Outcome `json:"outcome"`
	Kind       string         `json:"kind,omitempty"`
	Error      string         `json:"error,omitempty"`
	Items      int            `json:"items"`
	Dropped    int            `json:"dropped"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
}

// QueryMessage asks the worker to run a search.
type QueryMessage struct {
	RequestID string `json:"request_id"`
	Query     string `json:"query"`
	// Now optionally fixes the evaluation instant (RFC3339).
	Now string `json:"now,omitempty"`
}

// ResultMessage carries the result of a QueryMessage.
type ResultMessage struct {
	RequestID string              `json:"request_id"`
	Result    models.SearchResult `json:"result"`
}

// NewWriter builds a Kafka writer for topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: batchTimeout,
	})
}

// Publisher serializes events onto a Writer.
type Publisher struct {
	w   Writer
	log *slog.Logger
	wg  sync.WaitGroup
}

// NewPublisher creates a Publisher writing to w.
func NewPublisher(w Writer, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{w: w, log: logger}
}

// RunSettled implements pipeline.Observer. The event is written in the
// background; publish errors are logged, never returned.
func (p *Publisher) RunSettled(ctx context.Context, r pipeline.Report) {
	ev := RunEvent{
		ID:         uuid.NewString(),
		Query:      r.Query,
		Outcome:    r.Outcome,
		Kind:       r.Kind,
		Items:      r.Items,
		Dropped:    r.Dropped,
		StartedAt:  r.Started.UTC(),
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}

	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := p.publish(ctx, ev.ID, ev); err != nil {
			p.log.Warn("publish run event", slog.Any("err", err), slog.String("event_id", ev.ID))
		}
	}()
}

// Wait blocks until every run event handed to RunSettled has been written or dropped.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// PublishResult writes the result for requestID, keyed by the request id.
func (p *Publisher) PublishResult(ctx context.Context, requestID string, result models.SearchResult) error {
	return p.publish(ctx, requestID, ResultMessage{RequestID: requestID, Result: result})
}

func (p *Publisher) publish(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
