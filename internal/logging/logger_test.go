package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zapcore.Level
	}{
		{raw: "debug", want: zapcore.DebugLevel},
		{raw: "INFO", want: zapcore.InfoLevel},
		{raw: " warn ", want: zapcore.WarnLevel},
		{raw: "warning", want: zapcore.WarnLevel},
		{raw: "error", want: zapcore.ErrorLevel},
		{raw: "", want: zapcore.InfoLevel},
		{raw: "verbose", want: zapcore.InfoLevel},
	}
	for _, testCase := range cases {
		if got := parseLevel(testCase.raw); got != testCase.want {
			t.Fatalf("level %q: got %v want %v", testCase.raw, got, testCase.want)
		}
	}
}

func TestNewLoggerBuilds(t *testing.T) {
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level should be enabled")
	}
}
