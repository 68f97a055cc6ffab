// Package execution records one upload_runs document per import invocation.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	shared "github.com/opsboard/server/pkg"
	"github.com/opsboard/server/pkg/types"
)

// Options describe what triggered an upload run.
type Options struct {
	TriggerType string
	Source      string
	Assignee    string
	Target      string
}

var now = time.Now

// LogStart writes a STARTED run and returns its generated ID.
func LogStart(ctx context.Context, db shared.UploadRunStore, service string, opts Options) (string, error) {
	run := &types.UploadRun{
		ID:          uuid.NewString(),
		Service:     service,
		TriggerType: opts.TriggerType,
		Source:      opts.Source,
		Assignee:    opts.Assignee,
		Target:      opts.Target,
		Status:      types.UploadRunStarted,
		StartedAt:   now().UTC(),
	}
	if err := db.SetUploadRun(ctx, run); err != nil {
		return run.ID, fmt.Errorf("set upload run: %w", err)
	}
	return run.ID, nil
}

// LogSuccess marks the run SUCCESS.
func LogSuccess(ctx context.Context, db shared.UploadRunStore, id string, outputs interface{}) error {
	return LogStatus(ctx, db, id, types.UploadRunSuccess, outputs)
}

// LogFailure marks the run FAILED and records err.
func LogFailure(ctx context.Context, db shared.UploadRunStore, id string, err error, outputs interface{}) error {
	return logError(ctx, db, id, types.UploadRunFailed, err, outputs)
}

// LogPartial marks a run that committed some segments before err.
func LogPartial(ctx context.Context, db shared.UploadRunStore, id string, err error, outputs interface{}) error {
	return logError(ctx, db, id, types.UploadRunPartial, err, outputs)
}

func logError(ctx context.Context, db shared.UploadRunStore, id string, status types.UploadRunStatus, err error, outputs interface{}) error {
	data := completion(status, outputs)
	if err != nil {
		data["error"] = err.Error()
	}
	return update(ctx, db, id, data)
}

// LogStatus closes the run with an explicit status.
func LogStatus(ctx context.Context, db shared.UploadRunStore, id string, status types.UploadRunStatus, outputs interface{}) error {
	return update(ctx, db, id, completion(status, outputs))
}

func completion(status types.UploadRunStatus, outputs interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"status":       string(status),
		"completed_at": now().UTC(),
	}
	if outputs != nil {
		data["outputs"] = outputs
	}
	return data
}

func update(ctx context.Context, db shared.UploadRunStore, id string, data map[string]interface{}) error {
	if id == "" {
		return nil
	}
	if err := db.UpdateUploadRun(ctx, id, data); err != nil {
		return fmt.Errorf("update upload run %s: %w", id, err)
	}
	return nil
}
