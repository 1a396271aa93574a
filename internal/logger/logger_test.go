package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"  INFO ", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, LevelWarn)
	l.now = func() time.Time { return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC) }

	l.logf(LevelDebug, "hidden %d", 1)
	l.logf(LevelInfo, "hidden %d", 2)
	l.logf(LevelWarn, "shown %d", 3)
	l.logf(LevelError, "shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered lines: %q", out)
	}
	want := "2020-01-02T03:04:05.000Z WARN shown 3\n2020-01-02T03:04:05.000Z ERROR shown 4\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestDefaultLoggerWritesLogFile(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelDebug)
	t.Cleanup(func() {
		Close()
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	path := filepath.Join(t.TempDir(), "mirror.log")
	if err := SetLogFile(path); err != nil {
		t.Fatalf("SetLogFile: %v", err)
	}

	Debug("synced %s", "octo/repo")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "DEBUG synced octo/repo") {
		t.Errorf("log file = %q", data)
	}
	if !strings.Contains(buf.String(), "DEBUG synced octo/repo") {
		t.Errorf("output = %q", buf.String())
	}
	Info("after close")
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "after close") {
		t.Errorf("closed log file still written: %q", data)
	}
}
