package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vli777/feedback-analyzer/internal/bulk"
	"github.com/vli777/feedback-analyzer/internal/bulkparse"
	"github.com/vli777/feedback-analyzer/internal/config"
	"github.com/vli777/feedback-analyzer/internal/metrics"
	"github.com/vli777/feedback-analyzer/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var dropped int64
	if s.dropped != nil {
		dropped = s.dropped.DroppedCount()
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"droppedEvents": dropped,
	})
}

type submitRequest struct {
	Text   string `json:"text"`
	UserID string `json:"userId,omitempty"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		http.Error(w, "text must not be empty", http.StatusBadRequest)
		return
	}

	analysis := s.analyzer.Analyze(r.Context(), text)
	record := models.FeedbackRecord{
		ID:             uuid.NewString(),
		Text:           text,
		UserID:         req.UserID,
		Sentiment:      analysis.Sentiment,
		KeyTopics:      analysis.KeyTopics,
		ActionRequired: analysis.ActionRequired,
		Summary:        analysis.Summary,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.records.Append(record); err != nil {
		log.Printf("[API] failed to persist submitted feedback: %v", err)
		http.Error(w, "failed to store feedback", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"record": record})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.ReadAll()
	if err != nil {
		log.Printf("[API] failed to read history: %v", err)
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	items := make([]models.HistoryItem, len(records))
	for i, rec := range records {
		items[i] = rec.ToHistoryItem()
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	json.NewEncoder(w).Encode(items)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.ReadAll()
	if err != nil {
		log.Printf("[API] failed to read records for metrics: %v", err)
		http.Error(w, "failed to compute metrics", http.StatusInternalServerError)
		return
	}

	result := metrics.Compute(records, time.Now())
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleBulkFeedback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "expected multipart form with a file", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing uploaded file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read uploaded file", http.StatusBadRequest)
		return
	}

	rows, err := bulkparse.Parse(header.Filename, content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	rpm := queryFloat(q, "rate_limit_rpm", s.cfg.BulkRateLimitRPM)
	batchSize := config.ClampBatchSize(queryInt(q, "batch_size", s.cfg.BulkBatchSize), s.cfg.BulkBatchSize)
	maxConcurrency := config.ClampConcurrency(queryInt(q, "max_concurrency", s.cfg.BulkMaxConcurrency), s.cfg.BulkMaxConcurrency)

	result, err := s.bulkEngine.Run(r.Context(), rows, bulkOptions(rpm, batchSize, maxConcurrency))
	if err != nil {
		log.Printf("[API] bulk enrichment failed: %v", err)
		http.Error(w, "bulk enrichment failed", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(result)
}

func bulkOptions(rpm float64, batchSize, maxConcurrency int) bulk.Options {
	return bulk.Options{
		RateLimitRPM:   rpm,
		BatchSize:      batchSize,
		MaxConcurrency: maxConcurrency,
	}
}

func queryFloat(q map[string][]string, key string, defaultVal float64) float64 {
	v := firstQueryValue(q, key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func queryInt(q map[string][]string, key string, defaultVal int) int {
	v := firstQueryValue(q, key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func firstQueryValue(q map[string][]string, key string) string {
	vs, ok := q[key]
	if !ok || len(vs) == 0 {
		return ""
	}
	return vs[0]
}
