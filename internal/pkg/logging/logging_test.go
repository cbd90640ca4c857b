package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestObserver_RowRejected(t *testing.T) {
	var buf bytes.Buffer
	obs := NewObserver(New(&buf, "info", "json"))

	obs.RowRejected(context.Background(), "query", domain.RowError{
		Line: 7,
		Raw:  []string{"abc", "1"},
		Err:  &domain.FormatError{Raw: "abc"},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "row rejected" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["line"] != float64(7) || entry["reason"] != "format" || entry["set"] != "query" {
		t.Errorf("unexpected fields: %v", entry)
	}
}

func TestObserver_MatchedIsDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	obs := NewObserver(New(&buf, "info", "text"))

	obs.Matched(context.Background(), domain.MatchRecord{DistanceKm: 1})
	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got %s", buf.String())
	}

	obs.RunCompleted(context.Background(), &domain.MatchRun{ID: "r1"}, true)
	if !strings.Contains(buf.String(), "run_id=r1") || !strings.Contains(buf.String(), "cached=true") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
