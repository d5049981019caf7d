package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "debug", Dir: dir, Filename: "test.log"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Close()

	logger.InfoTag("HTTP", "request handled in %dms", 12)
	logger.Debug("debug line")

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[HTTP] request handled in 12ms") {
		t.Errorf("tagged line missing from log output: %s", content)
	}
	if !strings.Contains(content, "debug line") {
		t.Errorf("debug line missing from log output: %s", content)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "warn", Dir: dir, Filename: "filtered.log"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Close()

	logger.Info("should be filtered")
	logger.Warn("should appear")

	data, err := os.ReadFile(filepath.Join(dir, "filtered.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "should be filtered") {
		t.Error("info line leaked past warn level")
	}
	if !strings.Contains(content, "should appear") {
		t.Error("warn line missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"WARNING", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
