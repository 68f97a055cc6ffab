package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsboard/server/pkg/batching"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"GOOGLE_CLOUD_PROJECT", "LEAD_SEGMENTS_COLLECTION", "SEGMENT_CAPACITY", "SEGMENT_MAX_BYTES", "WRITE_PACING", "WRITE_BACKOFF_BASE", "WRITE_MAX_RETRIES", "ENABLE_PUBLISH"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "opsboard-project", cfg.ProjectID)
	assert.Equal(t, "lead_segments", cfg.SegmentsCollection)
	assert.False(t, cfg.EnablePublish)
	assert.Equal(t, batching.DefaultLimits(), cfg.Limits())
	assert.Equal(t, batching.DefaultRetryPolicy(), cfg.RetryPolicy())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "p1")
	t.Setenv("ENABLE_PUBLISH", "true")
	t.Setenv("SEGMENT_CAPACITY", "250")
	t.Setenv("WRITE_PACING", "500ms")
	t.Setenv("WRITE_BACKOFF_BASE", "3")
	t.Setenv("WRITE_MAX_RETRIES", "nope")

	cfg := LoadConfig()

	assert.Equal(t, "p1", cfg.ProjectID)
	assert.True(t, cfg.EnablePublish)
	assert.Equal(t, 250, cfg.Limits().MaxRecords)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryPolicy().PacingDelay)
	assert.Equal(t, 3*time.Second, cfg.RetryPolicy().BackoffBase)
	assert.Equal(t, 3, cfg.RetryPolicy().MaxRetries)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestComponentHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ComponentHandler{Handler: slog.NewJSONHandler(&buf, GetSlogHandlerOptions(slog.LevelInfo))})

	logger.With("component", "writer").InfoContext(context.Background(), "segment committed", "segment_id", "segment_1")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "[writer] segment committed", line["message"])
	assert.Equal(t, "INFO", line["severity"])
	assert.Equal(t, "segment_1", line["segment_id"])
	assert.Equal(t, "writer", line["component"])
}
