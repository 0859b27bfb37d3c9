package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})
	l.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentHTTP || rec["k"] != "v" || rec["msg"] != "hello" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewHandlerFormats(t *testing.T) {
	for _, format := range []string{FormatText, FormatJSON, FormatTint} {
		var buf bytes.Buffer
		New(Config{Format: format, Output: &buf}).Warn("careful")
		if !strings.Contains(buf.String(), "careful") {
			t.Errorf("%s handler wrote %q", format, buf.String())
		}
	}
}

func TestStructuredLoggerAmountIssue(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: FormatJSON, Output: &buf}))
	raceID, expenseID := uuid.New(), uuid.New()
	sl.LogAmountIssue(context.Background(), raceID, expenseID, "abc", errors.New("invalid amount"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["level"] != "WARN" || rec[FieldComponent] != ComponentTracker || rec[FieldRawAmount] != "abc" || rec[FieldRaceID] != raceID.String() {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a default logger")
	}
	l := Discard()
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatal("expected the context logger")
	}
}
