package batching

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	ctx := context.Background()

	sink.Emit(ctx, Event{Kind: EventRetryScheduled, SegmentID: "segment_2", Index: 1, Total: 3, Attempt: 2, Delay: 4 * time.Second,
		Err: status.Error(codes.ResourceExhausted, "quota")})
	sink.Emit(ctx, Event{Kind: EventUploadAborted, SegmentID: "segment_2", Index: 1, Total: 3, Err: errors.New("boom")})
	sink.Emit(ctx, Event{Kind: EventOperationCommitted, SegmentID: "segment_1", Total: 3, Records: 500})

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "retry_scheduled", lines[0]["event"])
	assert.Equal(t, "4s", lines[0]["delay"])
	assert.Equal(t, float64(2), lines[0]["attempt"])
	assert.Equal(t, "ResourceExhausted", lines[0]["code"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "Unknown", lines[1]["code"])

	assert.Equal(t, "INFO", lines[2]["level"])
	assert.Equal(t, float64(500), lines[2]["records"])
	assert.NotContains(t, lines[2], "error")
}

func TestEventRecorder(t *testing.T) {
	r := &EventRecorder{}
	r.Emit(context.Background(), Event{Kind: EventPlanComputed})
	r.Emit(context.Background(), Event{Kind: EventOperationStarted, SegmentID: "segment_1"})

	assert.Equal(t, []EventKind{EventPlanComputed, EventOperationStarted}, r.Kinds())
	events := r.Events()
	events[0].Kind = EventUploadAborted
	assert.Equal(t, EventPlanComputed, r.Kinds()[0])
}
