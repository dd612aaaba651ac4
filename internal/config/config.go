// Package config holds the process-wide, env-var driven settings for the
// pipeline. Env-var plumbing is glue, not core logic; this package exists
// because every repo in this lineage has one.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config is the fully-resolved set of runtime knobs, all overridable by
// environment variable and defaulted otherwise.
type Config struct {
	BulkRateLimitRPM   float64
	BulkBatchSize      int
	BulkMaxConcurrency int

	StubWSURL            string
	WSReconnectBaseDelay float64
	WSReconnectMaxDelay  float64
	WSInboundQueueSize   int
	WSWorkerCount        int
	WSCursorFile         string

	FeedbackRecordFile string
	HTTPPort           string

	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the process-wide Config, resolving it from the environment
// on first call.
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = load()
	})
	return cfg
}

func load() *Config {
	return &Config{
		BulkRateLimitRPM:   getEnvFloat("BULK_RATE_LIMIT_RPM", 30),
		BulkBatchSize:      getEnvInt("BULK_BATCH_SIZE", 10),
		BulkMaxConcurrency: getEnvInt("BULK_MAX_CONCURRENCY", 4),

		StubWSURL:            getEnvString("STUB_WS_URL", "ws://localhost:8765"),
		WSReconnectBaseDelay: getEnvFloat("WS_RECONNECT_BASE_DELAY", 1.0),
		WSReconnectMaxDelay:  getEnvFloat("WS_RECONNECT_MAX_DELAY", 30.0),
		WSInboundQueueSize:   getEnvInt("WS_INBOUND_QUEUE_SIZE", 256),
		WSWorkerCount:        getEnvInt("WS_WORKER_COUNT", 2),
		WSCursorFile:         getEnvString("WS_CURSOR_FILE", "data/ws_cursors.json"),

		FeedbackRecordFile: getEnvString("FEEDBACK_RECORD_FILE", "data/feedback.json"),
		HTTPPort:           getEnvString("HTTP_PORT", "8080"),

		LLMEndpoint: getEnvString("LLM_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		LLMAPIKey:   getEnvString("LLM_API_KEY", ""),
		LLMModel:    getEnvString("LLM_MODEL", "gpt-4o-mini"),
	}
}

func getEnvString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			return val
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			return val
		}
	}
	return defaultVal
}

// ClampBatchSize bounds a requested batch size to [1, 50], falling back to
// the default when n <= 0.
func ClampBatchSize(n, defaultVal int) int {
	if n <= 0 {
		n = defaultVal
	}
	if n < 1 {
		return 1
	}
	if n > 50 {
		return 50
	}
	return n
}

// ClampConcurrency bounds a requested concurrency to [1, 10], falling back
// to the default when n <= 0.
func ClampConcurrency(n, defaultVal int) int {
	if n <= 0 {
		n = defaultVal
	}
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// DelaySeconds derives the per-batch stagger delay from a requested rpm.
func DelaySeconds(rpm float64) float64 {
	if rpm > 0 {
		d := 60.0 / rpm
		if d < 0.1 {
			return 0.1
		}
		return d
	}
	return 2.0
}
