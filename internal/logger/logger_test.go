package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/ai-news-radar/backend/internal/logger"
)

func TestNewWithWriterText(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "api")
	log.Debug("hidden")
	log.Info("visible")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "msg=visible")
	require.Contains(t, out, "service=api")
}

func TestNewWithWriterJSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")

	var buf bytes.Buffer
	logger.NewWithWriter(&buf, "worker").Debug("run settled", "items", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "DEBUG", entry["level"])
	require.Equal(t, "run settled", entry["msg"])
	require.Equal(t, "worker", entry["service"])
	require.EqualValues(t, 3, entry["items"])
}

func TestLevelFiltering(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "")

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "api")
	log.Warn("quiet")
	require.Empty(t, buf.String())

	log.Error("loud")
	require.Contains(t, buf.String(), "loud")
}
