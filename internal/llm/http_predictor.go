package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPPredictor is the production Predictor binding: a single JSON
// request/response round trip against a structured-output model vendor.
// The vendor endpoint, auth, and exact wire schema are deliberately thin
// glue, mirroring the Python original's llm_client.py wrapper around an
// OpenAI-compatible client.
type HTTPPredictor struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Predict issues the request on its own goroutine so that ctx
// cancellation and deadlines are observed even though net/http's client
// call is itself blocking; the result is handed back over a channel.
func (p *HTTPPredictor) Predict(ctx context.Context, prompt string) (string, error) {
	type result struct {
		text string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		text, err := p.doRequest(ctx, prompt)
		resultCh <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-resultCh:
		return r.text, r.err
	}
}

func (p *HTTPPredictor) doRequest(ctx context.Context, prompt string) (string, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(chatRequest{
		Model:       p.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
		TopP:        0.7,
	})
	if err != nil {
		return "", fmt.Errorf("encoding predictor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building predictor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("predictor request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading predictor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("predictor returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding predictor response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("predictor returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
