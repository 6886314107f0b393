package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrameJSONLEmptyPathReturnsNil(t *testing.T) {
	f, err := loadFrameJSONL("")
	if err != nil {
		t.Fatalf("loadFrameJSONL(\"\") error = %v", err)
	}
	if f != nil {
		t.Errorf("loadFrameJSONL(\"\") = %v, want nil", f)
	}
}

func TestLoadFrameJSONLParsesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.jsonl")
	content := "{\"diaObjectId\": 1, \"ra\": 10.5}\n{\"diaObjectId\": 2, \"ra\": 20.5}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := loadFrameJSONL(path)
	if err != nil {
		t.Fatalf("loadFrameJSONL() error = %v", err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", f.NumRows())
	}
	if f.At(0, "diaObjectId") != float64(1) {
		t.Errorf("At(0, diaObjectId) = %v, want 1", f.At(0, "diaObjectId"))
	}
}

func TestLoadFrameJSONLRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("not json\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadFrameJSONL(path); err == nil {
		t.Error("loadFrameJSONL() expected error for malformed line, got nil")
	}
}

func TestLoadFrameJSONLMissingFileErrors(t *testing.T) {
	if _, err := loadFrameJSONL("/nonexistent/path.jsonl"); err == nil {
		t.Error("loadFrameJSONL() expected error for missing file, got nil")
	}
}
