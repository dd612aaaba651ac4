// Package bulk implements the rate-limited, batch-parallel enrichment
// engine (C8): Prepare groups parsed rows into batches, Dispatch runs
// them under a concurrency cap with staggered starts and a shared
// token-bucket limiter, and Collect pairs results back to records
// strictly by position. The batching/stagger/semaphore machinery itself
// has no counterpart in the Python original's bulk_upload.py (which only
// parses rows); it follows this system's own derived-delay formula,
// using golang.org/x/time/rate and golang.org/x/sync/semaphore the way
// the teacher already uses rate.Limiter for token-bucket throttling.
package bulk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/vli777/feedback-analyzer/internal/models"
)

// Analyzer is the subset of the LLM analyzer the engine needs.
type Analyzer interface {
	AnalyzeBatch(ctx context.Context, texts []string) ([]models.Analysis, error)
}

// RecordAppender is the subset of the record store the engine needs.
type RecordAppender interface {
	AppendMany(records []models.FeedbackRecord) error
}

// Options configures one Run call.
type Options struct {
	RateLimitRPM   float64
	BatchSize      int
	MaxConcurrency int
}

// ItemResult names a successfully persisted record for the response
// envelope.
type ItemResult struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
}

// FailureResult names a row that did not make it into the record store.
type FailureResult struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Result is the full bulk response envelope.
type Result struct {
	Total          int             `json:"total"`
	Success        []ItemResult    `json:"success"`
	Failed         []FailureResult `json:"failed"`
	Batches        int             `json:"batches"`
	RateLimitRPM   float64         `json:"rateLimitRpm"`
	BatchSize      int             `json:"batchSize"`
	MaxConcurrency int             `json:"maxConcurrency"`
	DelaySeconds   float64         `json:"delaySeconds"`
}

type preparedItem struct {
	index     int
	text      string
	userID    string
	createdAt time.Time
	id        string
}

type preparedBatch struct {
	number int
	items  []preparedItem
}

type batchOutcome struct {
	batch    preparedBatch
	analyses []models.Analysis
	err      error
}

// Engine runs the three-phase bulk enrichment pipeline.
type Engine struct {
	analyzer Analyzer
	records  RecordAppender
}

// New returns an Engine wired to analyzer and records.
func New(analyzer Analyzer, records RecordAppender) *Engine {
	return &Engine{analyzer: analyzer, records: records}
}

// Run executes Prepare, Dispatch, and Collect over rows and persists the
// resulting records in a single AppendMany call.
func (e *Engine) Run(ctx context.Context, rows []map[string]any, opts Options) (Result, error) {
	delaySeconds := deriveDelaySeconds(opts.RateLimitRPM)

	batches, prepFailures := prepare(rows, opts.BatchSize)

	outcomes := e.dispatch(ctx, batches, opts, delaySeconds)

	records, success, failed := collect(outcomes)
	failed = append(prepFailures, failed...)

	if len(records) > 0 {
		if err := e.records.AppendMany(records); err != nil {
			return Result{}, fmt.Errorf("persisting bulk records: %w", err)
		}
	}

	return Result{
		Total:          len(success) + len(failed),
		Success:        success,
		Failed:         failed,
		Batches:        len(batches),
		RateLimitRPM:   opts.RateLimitRPM,
		BatchSize:      opts.BatchSize,
		MaxConcurrency: opts.MaxConcurrency,
		DelaySeconds:   delaySeconds,
	}, nil
}

func deriveDelaySeconds(rpm float64) float64 {
	if rpm > 0 {
		d := 60.0 / rpm
		if d < 0.1 {
			return 0.1
		}
		return d
	}
	return 2.0
}

// prepare is Phase 1: assign a global index to every row, extract text,
// userId (accepting aliases), and createdAt, and seal rows into batches
// of batchSize. Rows with empty text become prep failures instead of
// batch members.
func prepare(rows []map[string]any, batchSize int) ([]preparedBatch, []FailureResult) {
	var batches []preparedBatch
	var prepFailures []FailureResult
	var current []preparedItem

	sealCurrent := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, preparedBatch{number: len(batches), items: current})
		current = nil
	}

	for i, row := range rows {
		text := strings.TrimSpace(asString(row["text"]))
		if text == "" {
			prepFailures = append(prepFailures, FailureResult{Index: i, Reason: "Missing text"})
			continue
		}

		userID := firstNonEmpty(asString(row["userId"]), asString(row["user_id"]), asString(row["user"]))
		createdAt := parseCreatedAt(row["createdAt"], row["created_at"])
		id := asString(row["id"])
		if id == "" {
			id = uuid.NewString()
		}

		current = append(current, preparedItem{
			index:     i,
			text:      text,
			userID:    userID,
			createdAt: createdAt,
			id:        id,
		})

		if len(current) >= batchSize {
			sealCurrent()
		}
	}
	sealCurrent()

	return batches, prepFailures
}

// dispatch is Phase 2: run one task per batch concurrently under a
// semaphore and shared rate limiter, each staggered by
// delaySeconds * batchNumber before acquiring its semaphore slot.
func (e *Engine) dispatch(ctx context.Context, batches []preparedBatch, opts Options, delaySeconds float64) []batchOutcome {
	outcomes := make([]batchOutcome, len(batches))
	if len(batches) == 0 {
		return outcomes
	}

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))
	limit := rate.Limit(opts.RateLimitRPM / 60.0)
	if opts.RateLimitRPM <= 0 {
		limit = rate.Every(time.Duration(delaySeconds * float64(time.Second)))
	}
	limiter := rate.NewLimiter(limit, 1)

	done := make(chan struct{})
	for i, batch := range batches {
		go func(i int, batch preparedBatch) {
			defer func() { done <- struct{}{} }()

			stagger := time.Duration(delaySeconds * float64(batch.number) * float64(time.Second))
			select {
			case <-time.After(stagger):
			case <-ctx.Done():
				outcomes[i] = batchOutcome{batch: batch, err: ctx.Err()}
				return
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = batchOutcome{batch: batch, err: err}
				return
			}
			defer sem.Release(1)

			if err := limiter.Wait(ctx); err != nil {
				outcomes[i] = batchOutcome{batch: batch, err: err}
				return
			}

			texts := make([]string, len(batch.items))
			for j, item := range batch.items {
				texts[j] = item.text
			}

			analyses, err := e.analyzer.AnalyzeBatch(ctx, texts)
			outcomes[i] = batchOutcome{batch: batch, analyses: analyses, err: err}
		}(i, batch)
	}

	for range batches {
		<-done
	}
	return outcomes
}

// collect is Phase 3: pair each batch's metadata with its analyses
// strictly by position (metadata[i] <-> analyses[i]), never by value
// lookup, per the positional-pairing decision.
func collect(outcomes []batchOutcome) ([]models.FeedbackRecord, []ItemResult, []FailureResult) {
	var records []models.FeedbackRecord
	var success []ItemResult
	var failed []FailureResult

	for _, outcome := range outcomes {
		if outcome.err != nil {
			for _, item := range outcome.batch.items {
				failed = append(failed, FailureResult{
					Index:  item.index,
					Reason: fmt.Sprintf("Batch error: %v", outcome.err),
				})
			}
			continue
		}

		for i, item := range outcome.batch.items {
			analysis := outcome.analyses[i]
			record := models.FeedbackRecord{
				ID:             item.id,
				Text:           item.text,
				UserID:         item.userID,
				Sentiment:      analysis.Sentiment,
				KeyTopics:      analysis.KeyTopics,
				ActionRequired: analysis.ActionRequired,
				Summary:        analysis.Summary,
				CreatedAt:      item.createdAt,
			}
			records = append(records, record)
			success = append(success, ItemResult{Index: item.index, ID: item.id})
		}
	}

	return records, success, failed
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseCreatedAt(values ...any) time.Time {
	for _, v := range values {
		s := strings.TrimSpace(asString(v))
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
