package main

import (
	"testing"

	"shelve/internal/api"
)

func TestApplySetting(t *testing.T) {
	base := api.Settings{TextThreshold: 85, FallbackBehavior: "skip"}

	s := base
	if err := applySetting(&s, "text-threshold", "90"); err != nil {
		t.Fatalf("set threshold: %v", err)
	}
	if s.TextThreshold != 90 {
		t.Fatalf("threshold = %d", s.TextThreshold)
	}

	s = base
	if err := applySetting(&s, "fallback", "review"); err != nil {
		t.Fatalf("set fallback: %v", err)
	}
	if s.FallbackBehavior != "review" {
		t.Fatalf("fallback = %q", s.FallbackBehavior)
	}

	s = base
	if err := applySetting(&s, "max-file-size", "500MB"); err != nil {
		t.Fatalf("set size: %v", err)
	}
	if s.MaxFileSize != 500*1000*1000 {
		t.Fatalf("max file size = %d", s.MaxFileSize)
	}

	s = base
	if err := applySetting(&s, "create-backups", "on"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !s.CreateBackups {
		t.Fatal("create-backups not enabled")
	}

	for _, tc := range []struct{ key, value string }{
		{"text-threshold", "150"},
		{"text-threshold", "abc"},
		{"fallback", "ask"},
		{"create-backups", "maybe"},
		{"unknown-key", "1"},
	} {
		s = base
		if err := applySetting(&s, tc.key, tc.value); err == nil {
			t.Fatalf("applySetting(%q, %q) accepted invalid input", tc.key, tc.value)
		}
	}
}

func TestParseID(t *testing.T) {
	if _, err := parseID("0"); err == nil {
		t.Fatal("zero id accepted")
	}
	if _, err := parseID("abc"); err == nil {
		t.Fatal("non-numeric id accepted")
	}
	id, err := parseID("42")
	if err != nil || id != 42 {
		t.Fatalf("parseID = %d, %v", id, err)
	}
}

func TestRelativeTime(t *testing.T) {
	if got := relativeTime(""); got != "-" {
		t.Fatalf("empty timestamp = %q", got)
	}
	if got := relativeTime("not-a-time"); got != "not-a-time" {
		t.Fatalf("unparsable timestamp = %q", got)
	}
	if got := relativeTime("2026-08-31T10:00:00.000Z"); got == "" || got == "-" {
		t.Fatalf("valid timestamp = %q", got)
	}
}
