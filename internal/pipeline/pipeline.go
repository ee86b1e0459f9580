// Package pipeline turns a query into a list of news items, falling back to a static batch on any failure.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DeafMist/ai-news-radar/backend/internal/fallback"
	"github.com/DeafMist/ai-news-radar/backend/internal/models"
	"github.com/DeafMist/ai-news-radar/backend/internal/processing"
	"github.com/DeafMist/ai-news-radar/backend/internal/recency"
)

// DefaultTimeout bounds the outbound search request.
const DefaultTimeout = 30 * time.Second

var tracer = otel.Tracer("internal/pipeline")

// Searcher sends query to the external search service and returns its raw reply.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Observer is notified once per settled run.
// Implementations must not block for long; the result is returned after all observers ran.
type Observer interface {
	RunSettled(ctx context.Context, r Report)
}

// Report describes a settled run for diagnostics.
type Report struct {
	Query    string
	Outcome  models.Outcome
	Kind     string
	Err      error
	Items    int
	Dropped  int
	Started  time.Time
	Duration time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithObserver registers o for every run.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// Pipeline runs search, extraction, validation and age stamping.
type Pipeline struct {
	searcher  Searcher
	timeout   time.Duration
	observers []Observer
	log       *slog.Logger
}

// New creates a Pipeline backed by searcher.
func New(searcher Searcher, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Pipeline{searcher: searcher, timeout: DefaultTimeout, log: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one search for query, evaluated at now. It never fails:
// any error along the way yields the fallback batch instead.
func (p *Pipeline) Run(ctx context.Context, query string, now time.Time) models.SearchResult {
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("news.query", query)))
	defer span.End()

	started := time.Now()
	validation, err := p.fetch(ctx, query, now)

	result := models.SearchResult{Query: query, CompletedAt: now}
	report := Report{Query: query, Err: err, Kind: FailureKind(err), Started: started, Dropped: len(validation.Dropped)}

	if err != nil {
		span.SetStatus(codes.Error, report.Kind)
		p.log.Warn("search failed, applying fallback",
			slog.String("query", query),
			slog.String("kind", report.Kind),
			slog.Any("err", err),
		)
		result.Outcome = models.OutcomeFallbackApplied
		result.Items = fallback.News(now)
	} else {
		result.Outcome = models.OutcomeSucceeded
		result.Items = recency.Stamp(validation.Items, now)
		p.log.Info("search succeeded",
			slog.String("query", query),
			slog.Int("items", len(result.Items)),
			slog.Int("dropped", len(validation.Dropped)),
		)
	}

	span.SetAttributes(
		attribute.String("news.outcome", string(result.Outcome)),
		attribute.Int("news.items", len(result.Items)),
	)

	report.Outcome = result.Outcome
	report.Items = len(result.Items)
	report.Duration = time.Since(started)
	for _, o := range p.observers {
		o.RunSettled(ctx, report)
	}

	return result
}

func (p *Pipeline) fetch(ctx context.Context, query string, now time.Time) (processing.Validation, error) {
	var raw string
	err := stage(ctx, "pipeline.search", func(ctx context.Context) error {
		searchCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		text, err := p.searcher.Search(searchCtx, query)
		if err != nil {
			return &TransportError{Err: err}
		}
		raw = text
		return nil
	})
	if err != nil {
		return processing.Validation{}, err
	}

	var payload string
	err = stage(ctx, "pipeline.extract", func(context.Context) error {
		var err error
		payload, err = processing.ExtractJSON(raw)
		return err
	})
	if err != nil {
		return processing.Validation{}, err
	}

	var validation processing.Validation
	err = stage(ctx, "pipeline.validate", func(context.Context) error {
		var err error
		validation, err = processing.Validate(payload, now)
		return err
	})
	if err != nil {
		var valErr *processing.ValidationError
		if errors.As(err, &valErr) {
			validation.Dropped = valErr.Dropped
		}
		return validation, err
	}

	for _, d := range validation.Dropped {
		p.log.Debug("record dropped",
			slog.Int("index", d.Index),
			slog.String("field", d.Field),
			slog.String("reason", d.Reason),
		)
	}
	return validation, nil
}

// stage runs f inside a child span and records its error.
func stage(ctx context.Context, name string, f func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	err := f(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
