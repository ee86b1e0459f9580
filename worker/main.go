package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/ai-news-radar/backend/internal/anthropic"
	"github.com/DeafMist/ai-news-radar/backend/internal/config"
	"github.com/DeafMist/ai-news-radar/backend/internal/dedupe"
	"github.com/DeafMist/ai-news-radar/backend/internal/events"
	"github.com/DeafMist/ai-news-radar/backend/internal/logger"
	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/pipeline"
)

const dlqAttempts = 5

type queryRunner interface {
	Run(ctx context.Context, query string, now time.Time) models.SearchResult
}

type resultPublisher interface {
	PublishResult(ctx context.Context, requestID string, result models.SearchResult) error
}

// dlqBackoff is the wait before DLQ attempt n+1.
var dlqBackoff = func(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	client := anthropic.New(anthropic.Config{
		BaseURL:   cfg.APIURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Version:   cfg.APIVersion,
		MaxTokens: cfg.MaxTokens,
		RateEvery: cfg.RateInterval,
		RateBurst: cfg.RateBurst,
	}, nil, log)
	runner := pipeline.New(client, log, pipeline.WithTimeout(cfg.Timeout))
	answered := dedupe.NewCache(cfg.RequestCacheSize, cfg.RequestTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.QueryTopic,
		GroupID:        cfg.ConsumerGroup,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	resultWriter := events.NewWriter(cfg.KafkaBrokers, cfg.ResultTopic)
	defer resultWriter.Close()
	publisher := events.NewPublisher(resultWriter, log)

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.DLQTopic(),
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.QueryTopic),
		slog.String("result_topic", cfg.ResultTopic),
		slog.String("group", cfg.ConsumerGroup),
		slog.String("dlq_topic", cfg.DLQTopic()),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, runner, publisher, answered, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			// Only commit once the DLQ holds the message; otherwise it is reprocessed on restart.
			if !sendToDLQ(ctx, log, dlqWriter, msg, err) {
				if ctx.Err() != nil {
					log.Info("context canceled during DLQ retry")
					return
				}
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage runs the search named by msg and publishes its result.
// Search failures still publish the fallback result; only bad input and
// publish errors are returned. A request id already in answered is skipped.
func processMessage(ctx context.Context, log *slog.Logger, runner queryRunner, pub resultPublisher, answered *dedupe.Cache, msg kafka.Message) error {
	var payload events.QueryMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return fmt.Errorf("decode query message: %w", err)
	}

	query := strings.TrimSpace(payload.Query)
	if query == "" {
		return errors.New("empty query")
	}

	now := time.Now().UTC()
	if raw := strings.TrimSpace(payload.Now); raw != "" {
		ts := parseTimestamp(raw)
		if ts.IsZero() {
			return fmt.Errorf("invalid now %q", raw)
		}
		now = ts
	}

	requestID := strings.TrimSpace(payload.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	} else if answered.Seen(requestID) {
		log.Debug("request already answered", slog.String("request_id", requestID))
		return nil
	}

	result := runner.Run(ctx, query, now)
	if err := pub.PublishResult(ctx, requestID, result); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	answered.Mark(requestID)

	log.Info("published result",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.String("outcome", string(result.Outcome)),
		slog.Int("items", len(result.Items)),
	)
	return nil
}

// sendToDLQ writes msg with error context to the DLQ, retrying with exponential backoff.
func sendToDLQ(ctx context.Context, log *slog.Logger, w events.Writer, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range dlqAttempts {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := dlqBackoff(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts.UTC()
		}
	}

	return time.Time{}
}
