package batching

import (
	"context"
	"fmt"
	"math"
	"time"
)

// SegmentWriter is the write side of the segment store the writer needs.
type SegmentWriter interface {
	// ReplaceSegment creates the segment or overwrites it with records.
	ReplaceSegment(ctx context.Context, id string, records []string) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ProgressFunc receives the completed share of an upload, in percent.
type ProgressFunc func(percent int)

// RetryPolicy controls retries and pacing of segment writes.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffBase is scaled by 2^attempt before each retry.
	BackoffBase time.Duration
	// PacingDelay separates consecutive successful operations.
	PacingDelay time.Duration
}

// DefaultRetryPolicy retries 3 times after 2s, 4s and 8s and paces
// operations 2s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BackoffBase: time.Second,
		PacingDelay: 2 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BackoffBase * time.Duration(1<<uint(attempt))
}

// Result tallies the operations a writer committed.
type Result struct {
	Completed      int
	Total          int
	Created        int
	Updated        int
	RecordsWritten int
}

// Writer commits a plan to the segment store one operation at a time.
type Writer struct {
	Store  SegmentWriter
	Policy RetryPolicy
	// Sleep defaults to a timer that honours ctx.
	Sleep  SleepFunc
	Events EventSink
}

// NewWriter creates a writer using the default retry policy.
func NewWriter(store SegmentWriter, events EventSink) *Writer {
	return &Writer{Store: store, Policy: DefaultRetryPolicy(), Sleep: SleepContext, Events: events}
}

// Execute writes the plan's operations in order. It stops at the first
// operation that exhausts its retries and returns a *StoreWriteError;
// operations committed before it are not rolled back. Cancelling ctx stops
// the upload before the next operation starts.
func (w *Writer) Execute(ctx context.Context, plan *Plan, progress ProgressFunc) (Result, error) {
	events := sinkOrNop(w.Events)
	total := len(plan.Operations)
	res := Result{Total: total}

	for i, op := range plan.Operations {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("upload cancelled before %s: %w", op.SegmentID, err)
		}

		events.Emit(ctx, Event{Kind: EventOperationStarted, SegmentID: op.SegmentID, Index: i, Total: total, Records: len(op.Records)})
		if err := w.writeWithRetry(ctx, i, total, op); err != nil {
			events.Emit(ctx, Event{Kind: EventUploadAborted, SegmentID: op.SegmentID, Index: i, Total: total, Err: err})
			return res, err
		}

		res.Completed++
		res.RecordsWritten += op.Appended()
		if op.IsUpdate {
			res.Updated++
		} else {
			res.Created++
		}
		events.Emit(ctx, Event{Kind: EventOperationCommitted, SegmentID: op.SegmentID, Index: i, Total: total, Records: len(op.Records)})

		if progress != nil {
			progress(Percent(res.Completed, total))
		}

		if i < total-1 && w.Policy.PacingDelay > 0 {
			if err := w.sleep(ctx, w.Policy.PacingDelay); err != nil {
				return res, fmt.Errorf("upload cancelled after %s: %w", op.SegmentID, err)
			}
		}
	}
	return res, nil
}

func (w *Writer) writeWithRetry(ctx context.Context, index, total int, op Operation) error {
	retries := w.Policy.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := w.Policy.Backoff(attempt)
			sinkOrNop(w.Events).Emit(ctx, Event{
				Kind:      EventRetryScheduled,
				SegmentID: op.SegmentID,
				Index:     index,
				Total:     total,
				Attempt:   attempt,
				Delay:     delay,
				Err:       lastErr,
			})
			if err := w.sleep(ctx, delay); err != nil {
				return fmt.Errorf("upload cancelled while retrying %s: %w", op.SegmentID, err)
			}
		}

		lastErr = w.Store.ReplaceSegment(ctx, op.SegmentID, op.Records)
		if lastErr == nil {
			return nil
		}
	}

	return &StoreWriteError{
		SegmentID: op.SegmentID,
		Index:     index,
		Total:     total,
		Attempts:  retries + 1,
		Err:       lastErr,
	}
}

func (w *Writer) sleep(ctx context.Context, d time.Duration) error {
	if w.Sleep == nil {
		return SleepContext(ctx, d)
	}
	return w.Sleep(ctx, d)
}

// Percent returns round(done/total*100).
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// SleepContext waits for d unless ctx is done first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
