package main

import (
	"testing"
	"time"
)

func TestParseSinceEmptyReturnsNow(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := parseSince("", now)
	if err != nil {
		t.Fatalf("parseSince(\"\") error = %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("parseSince(\"\") = %v, want %v", got, now)
	}
}

func TestParseSinceParsesRFC3339(t *testing.T) {
	got, err := parseSince("2026-01-02T03:04:05Z", time.Now())
	if err != nil {
		t.Fatalf("parseSince() error = %v", err)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseSince() = %v, want %v", got, want)
	}
}

func TestParseSinceParsesNaturalLanguage(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	got, err := parseSince("yesterday", now)
	if err != nil {
		t.Fatalf("parseSince(\"yesterday\") error = %v", err)
	}
	if !got.Before(now) {
		t.Errorf("parseSince(\"yesterday\") = %v, want before %v", got, now)
	}
}

func TestParseSinceRejectsGibberish(t *testing.T) {
	if _, err := parseSince("zzzznotatime!!", time.Now()); err == nil {
		t.Error("parseSince() expected error for unparseable input, got nil")
	}
}
