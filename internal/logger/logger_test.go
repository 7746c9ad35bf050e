package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/media-tracker/internal/env"
	"github.com/handsomefox/media-tracker/internal/logger"
)

func TestProductionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelInfo, env.Production)
	log.Debug("hidden")
	log.Error("store failed", logger.Error(errors.New("disk full")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "store failed", rec["msg"])
	assert.Equal(t, "disk full", rec["err"])
}

func TestLocalLogsText(t *testing.T) {
	var buf bytes.Buffer
	logger.NewWithWriter(&buf, slog.LevelDebug, env.Local).Debug("hello", logger.Error(nil))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "err=nil")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("loud"))
}
