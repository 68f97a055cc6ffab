package batching

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/status"
)

// EventKind identifies a planner or writer event.
type EventKind string

const (
	EventPlanComputed       EventKind = "plan_computed"
	EventOverflowCollision  EventKind = "overflow_collision"
	EventOperationStarted   EventKind = "operation_started"
	EventOperationCommitted EventKind = "operation_committed"
	EventRetryScheduled     EventKind = "retry_scheduled"
	EventUploadAborted      EventKind = "upload_aborted"
)

// Event describes one step of planning or writing. Fields that don't apply
// to a kind are left zero.
type Event struct {
	Kind      EventKind
	SegmentID string
	Index     int
	Total     int
	Attempt   int
	Delay     time.Duration
	Records   int
	Err       error
}

// EventSink receives planner and writer events.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"event", string(e.Kind)}
	if e.SegmentID != "" {
		attrs = append(attrs, "segment_id", e.SegmentID)
	}
	if e.Total > 0 {
		attrs = append(attrs, "index", e.Index, "total", e.Total)
	}
	if e.Attempt > 0 {
		attrs = append(attrs, "attempt", e.Attempt)
	}
	if e.Delay > 0 {
		attrs = append(attrs, "delay", e.Delay.String())
	}
	if e.Records > 0 {
		attrs = append(attrs, "records", e.Records)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err, "code", status.Code(e.Err).String())
	}

	switch e.Kind {
	case EventUploadAborted:
		logger.ErrorContext(ctx, "Segment upload aborted", attrs...)
	case EventRetryScheduled:
		logger.WarnContext(ctx, "Segment write failed, retrying", attrs...)
	case EventOverflowCollision:
		logger.WarnContext(ctx, "Overflow segment already exists and will be replaced", attrs...)
	case EventOperationStarted:
		logger.DebugContext(ctx, "Writing segment", attrs...)
	case EventOperationCommitted:
		logger.InfoContext(ctx, "Segment committed", attrs...)
	default:
		logger.InfoContext(ctx, "Upload plan computed", attrs...)
	}
}

// EventRecorder keeps every event in memory.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *EventRecorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order.
func (r *EventRecorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func sinkOrNop(s EventSink) EventSink {
	if s == nil {
		return NopSink{}
	}
	return s
}
