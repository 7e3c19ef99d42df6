package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error")
	} else if !strings.Contains(err.Error(), `"loud"`) {
		t.Errorf("error %q does not name the level", err)
	}
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		logger, err := New(Config{Level: tt.level})
		if err != nil {
			t.Fatalf("%q: %v", tt.level, err)
		}
		if got := logger.Level(); got != tt.want {
			t.Errorf("%q: level = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestProductionCoreWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := zap.New(newCore(Config{}, zapcore.InfoLevel, zapcore.AddSync(&buf)))

	logger.Debug("hidden")
	logger.Info("shown", zap.String("source", "timer"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not a single JSON entry: %q", buf.String())
	}
	if entry["msg"] != "shown" || entry["source"] != "timer" {
		t.Errorf("entry = %v", entry)
	}
}
