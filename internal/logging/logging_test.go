package logging

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogWriterSelection(t *testing.T) {
	if w := logWriter(Config{Output: "stderr"}); w != os.Stderr {
		t.Fatalf("stderr output should write to os.Stderr")
	}
	if w := logWriter(Config{}); w != os.Stdout {
		t.Fatalf("default output should write to os.Stdout")
	}
	cw, ok := logWriter(Config{Format: "console", Output: "stderr"}).(zerolog.ConsoleWriter)
	if !ok {
		t.Fatalf("console format should use ConsoleWriter")
	}
	if cw.Out != os.Stderr {
		t.Fatalf("console writer should honour output")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger(Config{Level: "warn"})
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("unexpected level %v", logger.GetLevel())
	}
}
