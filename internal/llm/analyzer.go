package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vli777/feedback-analyzer/internal/errs"
	"github.com/vli777/feedback-analyzer/internal/models"
)

// fallbackAnalysis is returned whenever Analyze cannot obtain a usable
// result from the predictor.
func fallbackAnalysis(cause error) models.Analysis {
	return models.Analysis{
		Sentiment:      models.SentimentNeutral,
		KeyTopics:      []string{"error"},
		ActionRequired: true,
		Summary:        fmt.Sprintf("Error analyzing feedback: %v", cause),
	}
}

// rawAnalysis mirrors the JSON shape the model is asked to emit.
type rawAnalysis struct {
	Sentiment      string   `json:"sentiment"`
	KeyTopics      []string `json:"key_topics"`
	ActionRequired bool     `json:"action_required"`
	Summary        string   `json:"summary"`
}

// Analyzer wraps a Predictor with the prompt shape, post-processing, and
// batch semantics the pipeline requires.
type Analyzer struct {
	predictor Predictor
}

// NewAnalyzer returns an Analyzer backed by predictor.
func NewAnalyzer(predictor Predictor) *Analyzer {
	return &Analyzer{predictor: predictor}
}

func singlePrompt(text string) string {
	return fmt.Sprintf(`You are analyzing user feedback.

Return ONLY valid JSON with exactly this structure:

{
  "sentiment": "positive" | "neutral" | "negative",
  "key_topics": ["topic1", "topic2"],
  "action_required": boolean,
  "summary": "short summary of at least 5-7 words"
}

Feedback:
"""%s"""`, text)
}

func batchPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`You are analyzing %d pieces of user feedback.

Return ONLY a valid JSON array with exactly %d objects, one per feedback
item below, in order, each shaped like:

{
  "sentiment": "positive" | "neutral" | "negative",
  "key_topics": ["topic1", "topic2"],
  "action_required": boolean,
  "summary": "short summary of at least 5-7 words"
}

Feedback items:
`, len(texts), len(texts)))
	for i, text := range texts {
		b.WriteString(fmt.Sprintf("%d. %q\n", i+1, text))
	}
	return b.String()
}

func normalizePostProcess(raw rawAnalysis) models.Analysis {
	topics := make([]string, 0, len(raw.KeyTopics))
	for _, t := range raw.KeyTopics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			topics = append(topics, t)
		}
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		summary = "No summary provided."
	}

	return models.Analysis{
		Sentiment:      models.NormalizeSentiment(raw.Sentiment),
		KeyTopics:      topics,
		ActionRequired: raw.ActionRequired,
		Summary:        summary,
	}
}

// Analyze produces a single Analysis for text. On any predictor or
// decode failure it returns the fallback Analysis rather than an error —
// a single item's failure never propagates to the caller.
func (a *Analyzer) Analyze(ctx context.Context, text string) models.Analysis {
	output, err := a.predictor.Predict(ctx, singlePrompt(text))
	if err != nil {
		return fallbackAnalysis(err)
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &raw); err != nil {
		return fallbackAnalysis(err)
	}

	return normalizePostProcess(raw)
}

// AnalyzeBatch produces one Analysis per entry in texts, preserving
// order. texts must be non-empty. A single-item batch delegates to
// Analyze. If the model's returned array length does not match
// len(texts), AnalyzeBatch fails outright with a ModelError so the
// caller can mark the entire batch as failed.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, texts []string) ([]models.Analysis, error) {
	if len(texts) == 0 {
		return nil, &errs.InputError{Op: "AnalyzeBatch", Msg: "texts must be non-empty"}
	}
	if len(texts) == 1 {
		return []models.Analysis{a.Analyze(ctx, texts[0])}, nil
	}

	output, err := a.predictor.Predict(ctx, batchPrompt(texts))
	if err != nil {
		return nil, &errs.ModelError{Op: "AnalyzeBatch", Err: err}
	}

	var raws []rawAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &raws); err != nil {
		return nil, &errs.ModelError{Op: "AnalyzeBatch", Err: err}
	}
	if len(raws) != len(texts) {
		return nil, &errs.ModelError{
			Op:  "AnalyzeBatch",
			Err: fmt.Errorf("expected %d analyses, got %d", len(texts), len(raws)),
		}
	}

	out := make([]models.Analysis, len(raws))
	for i, raw := range raws {
		out[i] = normalizePostProcess(raw)
	}
	return out, nil
}
