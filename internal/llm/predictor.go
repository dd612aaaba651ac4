// Package llm wraps a structured-output predictor behind a small
// analyzer, exposing single-item and batch analyze operations. Grounded
// on the Python original's analyze_pipeline.py (prompt shape, sentiment
// and topic normalization) and on the LLMClient-style abstraction used by
// ktruedat/llm-feedback-analysis's analyzer service.
package llm

import (
	"context"
)

// Predictor is the external structured-output collaborator: given a
// prompt, it returns a value decodable into the caller's expected shape.
// The production binding talks to a real model vendor; tests inject an
// in-memory fake that pattern-matches the prompt text.
type Predictor interface {
	Predict(ctx context.Context, prompt string) (string, error)
}
