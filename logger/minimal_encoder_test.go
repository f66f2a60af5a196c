package logger

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

// TestMinimalEncoderNeverDiscardsFields ensures the minimal encoder never
// silently drops log fields: unknown keys must fall back to key=value.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	encoder := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "test",
		Message:    "Testing field preservation",
	}

	testFields := []struct {
		field    zapcore.Field
		mustFind string // What we must find in the output
	}{
		{zap.String("series", "EQ"), "series=EQ"},
		{zap.Bool("header_ok", true), "header_ok=true"},
		{zap.Float64("close", 101.5), "close=101.5"},
		{zap.Int("workers", 4), "workers=4"},
		{zap.Int64("volume", 9999999), "volume=9999999"},
		{zap.String("error", "disk full"), "error=disk full"},
		{zap.String("random_field_xyz", "important_data"), "random_field_xyz=important_data"},
		{zap.Error(nil), ""}, // nil error must not crash

		// Special-cased keys keep their compact formatting
		{zap.String("run_id", "r_123"), "r_123"},
		{zap.Int("rows", 10), "10"},
		{zap.Int("failed", 5), "5"},
		{zap.Int64("duration_ms", 42), "42ms"},
	}

	var allFields []zapcore.Field
	for _, tf := range testFields {
		allFields = append(allFields, tf.field)
	}

	buf, err := encoder.EncodeEntry(entry, allFields)
	if err != nil {
		t.Fatalf("Failed to encode entry: %v", err)
	}

	cleanOutput := stripANSI(buf.String())

	for _, tf := range testFields {
		if tf.mustFind != "" && !strings.Contains(cleanOutput, tf.mustFind) {
			t.Errorf("field was silently discarded from log output: %s (got %q)", tf.mustFind, cleanOutput)
		}
	}
}

func TestMinimalEncoderBatchStats(t *testing.T) {
	encoder := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Date(2024, 1, 2, 13, 4, 35, 0, time.UTC),
		LoggerName: "bhav.ingest",
		Message:    "Batch ingested",
	}

	buf, err := encoder.EncodeEntry(entry, []zapcore.Field{
		zap.String("run_id", "r_1a2b"),
		zap.Int("rows", 1024),
		zap.Int("failed", 3),
	})
	if err != nil {
		t.Fatalf("Failed to encode entry: %v", err)
	}

	clean := stripANSI(buf.String())

	if !strings.Contains(clean, "13:04:35") {
		t.Errorf("expected HH:MM:SS timestamp, got %q", clean)
	}
	if !strings.Contains(clean, "b.ingest") {
		t.Errorf("expected abbreviated component name, got %q", clean)
	}
	if !strings.Contains(clean, "r_1a2b") {
		t.Errorf("expected run id value, got %q", clean)
	}
	if !strings.Contains(clean, "(1024 rows, 3 failed)") {
		t.Errorf("expected batch stats formatting, got %q", clean)
	}
}

func TestMinimalEncoderLevelDisplay(t *testing.T) {
	encoder := newMinimalEncoder()

	testCases := []struct {
		level      zapcore.Level
		wantMarker string
	}{
		{zapcore.InfoLevel, ""}, // info stays unmarked
		{zapcore.WarnLevel, "WARN"},
		{zapcore.ErrorLevel, "ERROR"},
	}

	for _, tc := range testCases {
		entry := zapcore.Entry{
			Level:   tc.level,
			Time:    time.Now(),
			Message: "message",
		}
		buf, err := encoder.EncodeEntry(entry, nil)
		if err != nil {
			t.Fatalf("Failed to encode entry: %v", err)
		}
		clean := stripANSI(buf.String())

		if tc.wantMarker == "" {
			if strings.Contains(clean, "INFO") {
				t.Errorf("info level should not be marked, got %q", clean)
			}
			continue
		}
		if !strings.Contains(clean, tc.wantMarker) {
			t.Errorf("expected %s marker for %v, got %q", tc.wantMarker, tc.level, clean)
		}
	}
}

func TestAbbreviateName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"server", "server"},
		{"bhav.ingest", "b.ingest"},
		{"storage.query", "s.query"},
	}

	for _, tc := range testCases {
		if got := abbreviateName(tc.in); got != tc.want {
			t.Errorf("abbreviateName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestColorizeMessagePreservesText(t *testing.T) {
	messages := []string{
		"Batch ingested",
		"[run:r_123] persistence joined",
		"꩜ worker pool started",
		"[header] 15 columns observed",
	}

	for _, msg := range messages {
		colorized := colorizeMessage(msg)
		if stripANSI(colorized) != msg {
			t.Errorf("colorizeMessage changed text: %q -> %q", msg, stripANSI(colorized))
		}
	}
}
