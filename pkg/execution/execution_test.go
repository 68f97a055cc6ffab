package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsboard/server/pkg/testing/mocks"
	"github.com/opsboard/server/pkg/types"
)

func fixClock(t *testing.T) time.Time {
	t.Helper()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })
	return fixed
}

func TestLogStart(t *testing.T) {
	fixed := fixClock(t)
	var stored *types.UploadRun
	db := &mocks.MockDatabase{
		SetUploadRunFunc: func(ctx context.Context, run *types.UploadRun) error {
			stored = run
			return nil
		},
	}

	id, err := LogStart(context.Background(), db, "lead-import", Options{TriggerType: "storage", Source: "gs://b/leads.csv", Assignee: "sam"})

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, id, stored.ID)
	assert.Len(t, id, 36)
	assert.Equal(t, types.UploadRunStarted, stored.Status)
	assert.Equal(t, fixed, stored.StartedAt)
	assert.Equal(t, "sam", stored.Assignee)
}

func TestLogStart_StoreError(t *testing.T) {
	db := &mocks.MockDatabase{
		SetUploadRunFunc: func(ctx context.Context, run *types.UploadRun) error { return errors.New("unavailable") },
	}

	id, err := LogStart(context.Background(), db, "lead-import", Options{})

	assert.Error(t, err)
	assert.NotEmpty(t, id)
}

func TestLogFailure(t *testing.T) {
	fixed := fixClock(t)
	var got map[string]interface{}
	db := &mocks.MockDatabase{
		UpdateUploadRunFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			assert.Equal(t, "run-1", id)
			got = data
			return nil
		},
	}

	require.NoError(t, LogFailure(context.Background(), db, "run-1", errors.New("boom"), map[string]int{"operations_completed": 1}))

	assert.Equal(t, "FAILED", got["status"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, fixed, got["completed_at"])
	assert.Equal(t, map[string]int{"operations_completed": 1}, got["outputs"])
}

func TestLogSuccess_NoRunIDIsNoop(t *testing.T) {
	called := false
	db := &mocks.MockDatabase{
		UpdateUploadRunFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			called = true
			return nil
		},
	}

	assert.NoError(t, LogSuccess(context.Background(), db, "", nil))
	assert.False(t, called)
}

func TestLogPartial(t *testing.T) {
	fixClock(t)
	var got map[string]interface{}
	db := &mocks.MockDatabase{
		UpdateUploadRunFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			got = data
			return nil
		},
	}

	require.NoError(t, LogPartial(context.Background(), db, "run-2", errors.New("segment_3: unavailable"), nil))

	assert.Equal(t, "PARTIAL", got["status"])
	assert.Equal(t, "segment_3: unavailable", got["error"])
	assert.NotContains(t, got, "outputs")
}
