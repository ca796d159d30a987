package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug", "json")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid", "json")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}

	logger = NewLogger("", "")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info for empty level, got %s", logger.GetLevel())
	}
}

func TestNewLoggerToFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")
	logger.Info().Str("sig", "abc").Msg("confirmed")
	if !strings.Contains(buf.String(), `"sig":"abc"`) {
		t.Fatalf("expected json field, got %s", buf.String())
	}

	buf.Reset()
	logger = NewLoggerTo(&buf, "info", "console")
	logger.Info().Str("sig", "abc").Msg("confirmed")
	out := buf.String()
	if strings.Contains(out, `"sig"`) || !strings.Contains(out, "sig=abc") {
		t.Fatalf("expected console output, got %s", out)
	}
}
