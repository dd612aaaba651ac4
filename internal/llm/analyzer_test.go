package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakePredictor pattern-matches the prompt to decide whether it's a
// single-item or batch request, the same trick the Python original's
// test fixtures use (detecting "1. " and "2. " markers).
type fakePredictor struct {
	batchOutput string
	err         error
}

func (f *fakePredictor) Predict(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "1. ") && strings.Contains(prompt, "2. ") {
		return f.batchOutput, nil
	}
	return `{"sentiment":"positive","key_topics":["Support","  "],"action_required":false,"summary":"Great job"}`, nil
}

func TestAnalyze_NormalizesTopicsAndSentiment(t *testing.T) {
	a := NewAnalyzer(&fakePredictor{})
	result := a.Analyze(context.Background(), "loved it")

	if result.Sentiment != "positive" {
		t.Errorf("expected positive sentiment, got %s", result.Sentiment)
	}
	if len(result.KeyTopics) != 1 || result.KeyTopics[0] != "support" {
		t.Errorf("expected normalized topics [support], got %v", result.KeyTopics)
	}
	if result.Summary != "Great job" {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
}

func TestAnalyze_PredictorErrorYieldsFallback(t *testing.T) {
	a := NewAnalyzer(&fakePredictor{err: fmt.Errorf("vendor unreachable")})
	result := a.Analyze(context.Background(), "anything")

	if result.Sentiment != "neutral" {
		t.Errorf("expected neutral fallback sentiment, got %s", result.Sentiment)
	}
	if len(result.KeyTopics) != 1 || result.KeyTopics[0] != "error" {
		t.Errorf("expected fallback topics [error], got %v", result.KeyTopics)
	}
	if !result.ActionRequired {
		t.Errorf("expected fallback actionRequired=true")
	}
	if !strings.Contains(result.Summary, "vendor unreachable") {
		t.Errorf("expected summary to carry error message, got %q", result.Summary)
	}
}

func TestAnalyze_EmptySummaryReplaced(t *testing.T) {
	a := NewAnalyzer(&stubPredictor{output: `{"sentiment":"neutral","key_topics":[],"action_required":false,"summary":""}`})
	result := a.Analyze(context.Background(), "x")
	if result.Summary != "No summary provided." {
		t.Errorf("expected placeholder summary, got %q", result.Summary)
	}
}

type stubPredictor struct {
	output string
}

func (s *stubPredictor) Predict(ctx context.Context, prompt string) (string, error) {
	return s.output, nil
}

func TestAnalyzeBatch_SingleItemDelegatesToAnalyze(t *testing.T) {
	a := NewAnalyzer(&fakePredictor{})
	results, err := a.AnalyzeBatch(context.Background(), []string{"solo item"})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestAnalyzeBatch_MatchesLength(t *testing.T) {
	a := NewAnalyzer(&fakePredictor{
		batchOutput: `[
			{"sentiment":"positive","key_topics":["a"],"action_required":false,"summary":"ok one"},
			{"sentiment":"negative","key_topics":["b"],"action_required":true,"summary":"ok two"}
		]`,
	})

	results, err := a.AnalyzeBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Sentiment != "positive" || results[1].Sentiment != "negative" {
		t.Errorf("results out of order or mismatched: %+v", results)
	}
}

func TestAnalyzeBatch_LengthMismatchFails(t *testing.T) {
	a := NewAnalyzer(&fakePredictor{
		batchOutput: `[{"sentiment":"positive","key_topics":[],"action_required":false,"summary":"only one"}]`,
	})

	_, err := a.AnalyzeBatch(context.Background(), []string{"one", "two", "three"})
	if err == nil {
		t.Fatal("expected error on length mismatch")
	}
}

func TestAnalyzeBatch_EmptyInputRejected(t *testing.T) {
	a := NewAnalyzer(&fakePredictor{})
	_, err := a.AnalyzeBatch(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for empty texts")
	}
}
