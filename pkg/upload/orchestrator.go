// Package upload runs a lead import end to end: normalize, encode, plan and
// write, and reports what happened.
package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/domain/lead"
)

// ErrNoValidRecords is wrapped by the ValidationError returned when no row
// survives normalization.
var ErrNoValidRecords = errors.New("no rows with a lead name")

// ValidationError reports input rejected before any store access.
type ValidationError struct {
	RowsRead     int
	RowsRejected int
	Err          error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%d of %d rows rejected): %v", e.RowsRejected, e.RowsRead, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Options are the caller decisions for one upload.
type Options struct {
	// Assignee, when set, is stamped on every record.
	Assignee string
	// TargetSegmentID switches planning to explicit-target mode.
	TargetSegmentID string
	Progress        batching.ProgressFunc
}

// Summary describes the outcome of an upload. On failure it reflects the
// operations committed before the error.
type Summary struct {
	RowsRead             int `json:"rows_read"`
	RowsRejected         int `json:"rows_rejected"`
	TotalRecordsAccepted int `json:"total_records_accepted"`
	TotalRecordsEncoded  int `json:"total_records_encoded"`
	TotalRecordsWritten  int `json:"total_records_written"`
	TotalSegmentsTouched int `json:"total_segments_touched"`
	SegmentsCreated      int `json:"segments_created"`
	SegmentsUpdated      int `json:"segments_updated"`
	OperationsPlanned    int `json:"operations_planned"`
	OperationsCompleted  int `json:"operations_completed"`
}

// Complete reports whether every planned operation was committed.
func (s Summary) Complete() bool {
	return s.OperationsCompleted == s.OperationsPlanned
}

// Orchestrator wires the import stages together.
type Orchestrator struct {
	Normalizer *lead.Normalizer
	Planner    *batching.Planner
	Writer     *batching.Writer
}

// New builds an orchestrator over one segment store.
func New(store interface {
	batching.SegmentReader
	batching.SegmentWriter
}, limits batching.Limits, policy batching.RetryPolicy, events batching.EventSink) *Orchestrator {
	w := batching.NewWriter(store, events)
	w.Policy = policy
	return &Orchestrator{
		Normalizer: lead.NewNormalizer(),
		Planner:    batching.NewPlanner(store, limits, events),
		Writer:     w,
	}
}

// Preview normalizes, encodes and plans rows without writing anything.
func (o *Orchestrator) Preview(ctx context.Context, rows []lead.Row, opts Options) (*batching.Plan, Summary, error) {
	return o.prepare(ctx, rows, opts)
}

// Run imports rows. A *ValidationError, *lead.EncodingError or
// *batching.StoreReadError means nothing was written. A
// *batching.StoreWriteError comes with the summary of the operations that
// were committed before it.
func (o *Orchestrator) Run(ctx context.Context, rows []lead.Row, opts Options) (Summary, error) {
	plan, summary, err := o.prepare(ctx, rows, opts)
	if err != nil {
		return summary, err
	}

	res, err := o.Writer.Execute(ctx, plan, opts.Progress)
	summary.OperationsCompleted = res.Completed
	summary.TotalSegmentsTouched = res.Completed
	summary.SegmentsCreated = res.Created
	summary.SegmentsUpdated = res.Updated
	summary.TotalRecordsWritten = res.RecordsWritten
	return summary, err
}

func (o *Orchestrator) prepare(ctx context.Context, rows []lead.Row, opts Options) (*batching.Plan, Summary, error) {
	summary := Summary{RowsRead: len(rows)}

	normalized := o.Normalizer.Normalize(rows, opts.Assignee)
	summary.RowsRejected = normalized.Rejected
	summary.TotalRecordsAccepted = len(normalized.Records)
	if len(normalized.Records) == 0 {
		return nil, summary, &ValidationError{RowsRead: len(rows), RowsRejected: normalized.Rejected, Err: ErrNoValidRecords}
	}

	encoded, err := lead.EncodeAll(normalized.Records)
	if err != nil {
		return nil, summary, err
	}
	summary.TotalRecordsEncoded = len(encoded)

	plan, err := o.Planner.Plan(ctx, encoded, opts.TargetSegmentID)
	if err != nil {
		return nil, summary, err
	}
	summary.OperationsPlanned = len(plan.Operations)
	return plan, summary, nil
}
