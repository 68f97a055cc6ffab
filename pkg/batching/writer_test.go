package batching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsboard/server/pkg/testing/mocks"
)

// sleepLog records requested delays without waiting.
type sleepLog struct {
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestWriter(store SegmentWriter, sleeps *sleepLog, events EventSink) *Writer {
	w := NewWriter(store, events)
	w.Sleep = sleeps.sleep
	return w
}

func threeOpPlan() *Plan {
	return &Plan{Operations: []Operation{
		{SegmentID: "segment_1", Ordinal: 1, Records: []string{"old", "a"}, IsUpdate: true, PriorCount: 1},
		{SegmentID: "segment_2", Ordinal: 2, Records: []string{"b", "c"}},
		{SegmentID: "segment_3", Ordinal: 3, Records: []string{"d"}},
	}}
}

func TestExecute_WritesInOrderWithPacingAndProgress(t *testing.T) {
	store := mocks.NewMemorySegmentStore()
	sleeps := &sleepLog{}
	events := &EventRecorder{}
	w := newTestWriter(store, sleeps, events)

	var progress []int
	res, err := w.Execute(context.Background(), threeOpPlan(), func(p int) { progress = append(progress, p) })

	require.NoError(t, err)
	assert.Equal(t, []string{"segment_1", "segment_2", "segment_3"}, store.Writes)
	assert.Equal(t, []string{"old", "a"}, store.Records("segment_1"))
	assert.Equal(t, []int{33, 67, 100}, progress)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeps.delays, "no pacing after the last operation")
	assert.Equal(t, Result{Completed: 3, Total: 3, Created: 2, Updated: 1, RecordsWritten: 4}, res)
	assert.Equal(t, []EventKind{
		EventOperationStarted, EventOperationCommitted,
		EventOperationStarted, EventOperationCommitted,
		EventOperationStarted, EventOperationCommitted,
	}, events.Kinds())
}

func TestExecute_RetryBoundAbortsUpload(t *testing.T) {
	store := mocks.NewMemorySegmentStore()
	store.WriteErr = func(id string, attempt int) error {
		if id == "segment_2" {
			return errors.New("deadline exceeded")
		}
		return nil
	}
	sleeps := &sleepLog{}
	events := &EventRecorder{}
	w := newTestWriter(store, sleeps, events)

	var progress []int
	res, err := w.Execute(context.Background(), threeOpPlan(), func(p int) { progress = append(progress, p) })

	var writeErr *StoreWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "segment_2", writeErr.SegmentID)
	assert.Equal(t, 1, writeErr.Index)
	assert.Equal(t, 1, writeErr.Committed())
	assert.Equal(t, 4, writeErr.Attempts)
	assert.EqualError(t, errors.Unwrap(writeErr), "deadline exceeded")

	assert.Equal(t, 4, store.Attempts("segment_2"))
	assert.Equal(t, 0, store.Attempts("segment_3"), "later operations are not attempted")
	assert.True(t, store.Has("segment_1"), "committed segments stay committed")
	assert.False(t, store.Has("segment_2"))

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, sleeps.delays)
	assert.Equal(t, []int{33}, progress)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, EventUploadAborted, events.Kinds()[len(events.Kinds())-1])
}

func TestExecute_TransientFailureRecovers(t *testing.T) {
	store := mocks.NewMemorySegmentStore()
	store.WriteErr = func(id string, attempt int) error {
		if id == "segment_1" && attempt <= 2 {
			return errors.New("unavailable")
		}
		return nil
	}
	sleeps := &sleepLog{}
	events := &EventRecorder{}
	w := newTestWriter(store, sleeps, events)
	plan := &Plan{Operations: []Operation{{SegmentID: "segment_1", Ordinal: 1, Records: []string{"a"}}}}

	var progress []int
	res, err := w.Execute(context.Background(), plan, func(p int) { progress = append(progress, p) })

	require.NoError(t, err)
	assert.Equal(t, 3, store.Attempts("segment_1"))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps.delays)
	assert.Equal(t, []int{100}, progress)
	assert.Equal(t, 1, res.Created)

	var retries []Event
	for _, e := range events.Events() {
		if e.Kind == EventRetryScheduled {
			retries = append(retries, e)
		}
	}
	require.Len(t, retries, 2)
	assert.Equal(t, 1, retries[0].Attempt)
	assert.Equal(t, 2*time.Second, retries[0].Delay)
	assert.EqualError(t, retries[0].Err, "unavailable")
}

func TestExecute_CancelledBeforeNextOperation(t *testing.T) {
	store := mocks.NewMemorySegmentStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWriter(store, nil)
	w.Policy.PacingDelay = 0

	res, err := w.Execute(ctx, threeOpPlan(), func(p int) {
		if p >= 33 {
			cancel()
		}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"segment_1"}, store.Writes)
	assert.Equal(t, 1, res.Completed)
}

func TestExecute_CancelledUpfront(t *testing.T) {
	store := mocks.NewMemorySegmentStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sleeps := &sleepLog{}
	w := newTestWriter(store, sleeps, nil)

	_, err := w.Execute(ctx, threeOpPlan(), nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.Writes)
}

func TestExecute_EmptyPlan(t *testing.T) {
	store := mocks.NewMemorySegmentStore()
	called := false
	res, err := NewWriter(store, nil).Execute(context.Background(), &Plan{}, func(int) { called = true })

	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, store.Writes)
	assert.Equal(t, Result{}, res)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 100, Percent(3, 3))
	assert.Equal(t, 17, Percent(1, 6))
	assert.Equal(t, 100, Percent(0, 0))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, SleepContext(context.Background(), 0))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))
}
