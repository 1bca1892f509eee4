// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: " warn ", want: slog.LevelWarn},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) succeeded, want error", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestNewFileWritesJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "client.log")

	logger, closeFile, err := NewFile(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	logger.Debug("filtered")
	logger.Info("joined room", "room", "design-review")
	closeFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "filtered") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(content, `"room":"design-review"`) {
		t.Errorf("log = %q, want JSON room attribute", content)
	}
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	logger := slog.Default()
	if OrDiscard(logger) != logger {
		t.Error("OrDiscard replaced a non-nil logger")
	}
}
