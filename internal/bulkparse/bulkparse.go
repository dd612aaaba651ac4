// Package bulkparse turns an uploaded byte stream into row maps for the
// bulk engine's Phase 1. This is glue, not core logic: it mirrors the
// Python original's bulk_upload.py _parse_json/_parse_csv, reduced to
// the minimal shape C8 needs.
package bulkparse

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Parse dispatches on filename extension, falling back to JSON-then-CSV
// if the extension is missing or unrecognized.
func Parse(filename string, content []byte) ([]map[string]any, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}

	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return parseJSON(content)
	case strings.HasSuffix(lower, ".csv"):
		return parseCSV(content)
	}

	if rows, err := parseJSON(content); err == nil {
		return rows, nil
	}
	if rows, err := parseCSV(content); err == nil {
		return rows, nil
	}
	return nil, fmt.Errorf("unsupported file format: use .json or .csv")
}

func parseJSON(content []byte) ([]map[string]any, error) {
	var generic any
	if err := json.Unmarshal(content, &generic); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	switch v := generic.(type) {
	case []any:
		return toRows(v)
	case map[string]any:
		if items, ok := v["items"].([]any); ok {
			return toRows(items)
		}
		return []map[string]any{v}, nil
	default:
		return nil, fmt.Errorf("JSON payload must be an array or an object with 'items'")
	}
}

func toRows(items []any) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("JSON array items must be objects")
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func parseCSV(content []byte) ([]map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
