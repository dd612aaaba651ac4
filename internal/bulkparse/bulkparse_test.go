package bulkparse

import "testing"

func TestParse_JSONArray(t *testing.T) {
	rows, err := Parse("feedback.json", []byte(`[{"text":"a"},{"text":"b"}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestParse_JSONItemsObject(t *testing.T) {
	rows, err := Parse("feedback.json", []byte(`{"items":[{"text":"a"}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestParse_JSONBareObjectTreatedAsSingleItem(t *testing.T) {
	rows, err := Parse("feedback.json", []byte(`{"text":"a"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 || rows[0]["text"] != "a" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParse_CSVHeaderAware(t *testing.T) {
	rows, err := Parse("feedback.csv", []byte("text,userId\nhello,u1\nworld,u2\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["text"] != "hello" || rows[0]["userId"] != "u1" {
		t.Errorf("unexpected row 0: %+v", rows[0])
	}
}

func TestParse_EmptyContentRejected(t *testing.T) {
	_, err := Parse("feedback.csv", nil)
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestParse_UnknownExtensionFallsBackToJSONThenCSV(t *testing.T) {
	rows, err := Parse("feedback.txt", []byte("text,userId\nhello,u1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 || rows[0]["text"] != "hello" {
		t.Errorf("unexpected fallback parse: %+v", rows)
	}
}
