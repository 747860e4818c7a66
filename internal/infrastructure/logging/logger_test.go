package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
)

func TestMavenHandler_Format(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "info"}).With("system", "tagger")

	// Act
	logger.Info("matched transaction", "order_id", "111-222", "note", "two words", "count", 3)

	// Assert
	line := buf.String()
	assert.Contains(t, line, "[INFO] [tagger] [")
	assert.Contains(t, line, "] matched transaction order_id=111-222 note=\"two words\" count=3\n")
	assert.NotContains(t, line, "system=")
}

func TestMavenHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "warn"})

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]")
}

func TestMavenHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{}).WithGroup("run").With("id", "abc")

	logger.Info("done", slog.Group("stats", slog.Int("matched", 2)))

	assert.Contains(t, buf.String(), " run.id=abc")
	assert.Contains(t, buf.String(), " run.stats.matched=2")
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Format: "json", Level: "debug"})

	logger.Debug("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "v", entry["k"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestWithSystem_Overrides(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithSystemTo(&buf, config.LoggingConfig{}, "api")

	WithSystem(base, "monarch").Info("fetched")

	assert.Contains(t, buf.String(), "[INFO] [monarch] [")
	assert.NotContains(t, buf.String(), "[api]")
}

func TestMavenHandler_RunTag(t *testing.T) {
	tests := []struct {
		name   string
		logger func(*slog.Logger) *slog.Logger
		want   string
	}{
		{
			name:   "system and run",
			logger: func(l *slog.Logger) *slog.Logger { return l.With("system", "tagger", "run_id", "1a2b3c4d-5e6f") },
			want:   "[INFO] [tagger#1a2b3c4d] [",
		},
		{
			name:   "run only",
			logger: func(l *slog.Logger) *slog.Logger { return l.With("run_id", "abc") },
			want:   "[INFO] [#abc] [",
		},
		{
			name:   "run inside a group stays an attribute",
			logger: func(l *slog.Logger) *slog.Logger { return l.WithGroup("job").With("run_id", "abc") },
			want:   " job.run_id=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logger(NewLoggerTo(&buf, config.LoggingConfig{})).Info("sent update")

			assert.Contains(t, buf.String(), tt.want)
		})
	}
}
