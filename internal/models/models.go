// Package models holds the shared record, event, and analysis shapes used
// across the store, analyzer, worker pool, and bulk engine.
package models

import "time"

// Sentiment is a closed three-value classification. Unknown input coerces
// to SentimentNeutral rather than failing.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// NormalizeSentiment coerces any value outside the closed set to neutral.
func NormalizeSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// FeedbackRecord is the durable, immutable unit persisted by the record
// store. Identifier uniqueness is not enforced; callers should avoid
// generating duplicates.
type FeedbackRecord struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	UserID         string    `json:"userId,omitempty"`
	Sentiment      Sentiment `json:"sentiment"`
	KeyTopics      []string  `json:"keyTopics"`
	ActionRequired bool      `json:"actionRequired"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Analysis is the transient LLM output: everything a FeedbackRecord needs
// except identity, original text, user, and timestamp.
type Analysis struct {
	Sentiment      Sentiment `json:"sentiment"`
	KeyTopics      []string  `json:"keyTopics"`
	ActionRequired bool      `json:"actionRequired"`
	Summary        string    `json:"summary"`
}

// HistoryItem is the trimmed projection returned by the history endpoint.
type HistoryItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
	Sentiment Sentiment `json:"sentiment"`
}

// ToHistoryItem projects a FeedbackRecord down to its HistoryItem view.
func (r FeedbackRecord) ToHistoryItem() HistoryItem {
	return HistoryItem{
		ID:        r.ID,
		UserID:    r.UserID,
		Summary:   r.Summary,
		CreatedAt: r.CreatedAt,
		Sentiment: r.Sentiment,
	}
}

// EventType enumerates the upstream event kinds.
type EventType string

const (
	EventJobStarted   EventType = "job.started"
	EventItemAnalyzed EventType = "item.analyzed"
	EventJobCompleted EventType = "job.completed"
)

// Event is the upstream wire shape: a job-scoped, monotonically sequenced
// message. Payload fields are type-dependent and left as a raw map so
// unknown fields are tolerated.
type Event struct {
	JobID   string         `json:"jobId"`
	Seq     int64          `json:"seq"`
	Type    EventType      `json:"type"`
	TS      time.Time      `json:"ts"`
	Payload map[string]any `json:"payload,omitempty"`
}

// PayloadString reads a string field from the event payload, returning ""
// if absent or not a string.
func (e Event) PayloadString(key string) string {
	if e.Payload == nil {
		return ""
	}
	v, ok := e.Payload[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// PayloadBool reads a bool field from the event payload.
func (e Event) PayloadBool(key string) bool {
	if e.Payload == nil {
		return false
	}
	v, ok := e.Payload[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// PayloadStringSlice reads a string-slice field from the event payload,
// tolerating the []any shape JSON decoding produces.
func (e Event) PayloadStringSlice(key string) []string {
	if e.Payload == nil {
		return nil
	}
	v, ok := e.Payload[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
