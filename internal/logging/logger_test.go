package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreLogger puts the package logger back after a test swaps it.
func restoreLogger(t *testing.T) {
	originalLogger := defaultLogger
	originalOutput := output
	t.Cleanup(func() {
		defaultLogger = originalLogger
		output = originalOutput
		slog.SetDefault(originalLogger)
	})
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name     string
		level    LogLevel
		expected slog.Level
	}{
		{name: "Debug level", level: LevelDebug, expected: slog.LevelDebug},
		{name: "Info level", level: LevelInfo, expected: slog.LevelInfo},
		{name: "Warn level", level: LevelWarn, expected: slog.LevelWarn},
		{name: "Error level", level: LevelError, expected: slog.LevelError},
		{name: "Upper case is accepted", level: LogLevel("DEBUG"), expected: slog.LevelDebug},
		{name: "Invalid level defaults to Info", level: LogLevel("invalid"), expected: slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.level))
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, LevelInfo, LevelFromEnv())

	t.Setenv("LOG_LEVEL", " Warn ")
	assert.Equal(t, LevelWarn, LevelFromEnv())
}

func TestSetupLoggerFiltersLevels(t *testing.T) {
	restoreLogger(t)

	testCases := []struct {
		name      string
		level     LogLevel
		shouldLog map[string]bool
	}{
		{
			name:      "Debug shows everything",
			level:     LevelDebug,
			shouldLog: map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			name:      "Info hides debug",
			level:     LevelInfo,
			shouldLog: map[string]bool{"DEBUG": false, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			name:      "Error shows only errors",
			level:     LevelError,
			shouldLog: map[string]bool{"DEBUG": false, "INFO": false, "WARN": false, "ERROR": true},
		},
	}

	logFuncs := map[string]func(string, ...any){
		"DEBUG": Debug,
		"INFO":  Info,
		"WARN":  Warn,
		"ERROR": Error,
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetupLogger(&buf, tc.level)
			require.NotNil(t, GetLogger())

			for levelName, logFunc := range logFuncs {
				buf.Reset()
				logFunc("test message", "key", "value")
				didLog := strings.Contains(buf.String(), "test message")
				assert.Equal(t, tc.shouldLog[levelName], didLog, "level %s", levelName)
				if didLog {
					assert.Contains(t, buf.String(), "level="+levelName)
					assert.Contains(t, buf.String(), "key=value")
				}
			}
		})
	}
}

func TestSetLevelKeepsOutput(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	SetupLogger(&buf, LevelError)
	Debug("hidden")
	assert.Empty(t, buf.String())

	SetLevel(LevelDebug)
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty string", input: "", expected: "<not set>"},
		{name: "Short string", input: "abc", expected: "<set>"},
		{name: "Exactly 4 characters", input: "abcd", expected: "<set>"},
		{name: "Token-like string", input: "2Dn5j8fk39Dkf0s", expected: "2Dn5...***"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskSensitive(tc.input))
		})
	}
}
