package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igfeed/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"empty level defaults to info", &config.LoggingConfig{}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "igfeed.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	l.WithField("component", "client").
		WithError(errors.New("boom")).
		DebugWithFields("request failed", map[string]interface{}{
			"status": 500,
			"url":    "https://www.instagram.com/",
		})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "request failed", lines[0]["message"])
	assert.Equal(t, "client", lines[0]["component"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, float64(500), lines[0]["status"])
	assert.Equal(t, "igfeed", lines[0]["app"])
}

func TestTestLoggerCapturesDerivedFields(t *testing.T) {
	l := NewTestLogger()
	child := l.WithField("feed", "tag")

	child.InfoWithFields("page fetched", map[string]interface{}{"items": 3})
	l.Warn("plain")

	msgs := l.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "tag", msgs[0].Fields["feed"])
	assert.Equal(t, 3, msgs[0].Fields["items"])
	assert.True(t, l.HasMessage("plain"))
	assert.Len(t, l.GetMessagesByLevel("WARN"), 1)

	l.Clear()
	assert.Empty(t, l.GetMessages())
}
