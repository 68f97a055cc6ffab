package framework

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/opsboard/server/pkg/bootstrap"
	"github.com/opsboard/server/pkg/execution"
	infrasentry "github.com/opsboard/server/pkg/infrastructure/sentry"
	"github.com/opsboard/server/pkg/types"
)

// Object metadata keys read from uploaded files.
const (
	MetadataAssignee      = "assignee"
	MetadataTargetSegment = "target_segment"
)

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service  *bootstrap.Service
	Logger   *slog.Logger
	RunID    string
	Metadata RunMetadata
}

// RunMetadata is what the wrapper could learn about the upload from the event.
type RunMetadata struct {
	TriggerType string
	Source      string
	Assignee    string
	Target      string
}

// HandlerFunc is the signature for a cloud function handler
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// StatusReporter lets handler outputs choose the final run status.
type StatusReporter interface {
	RunStatus() types.UploadRunStatus
}

// WrapCloudEvent wraps a handler with upload run logging and Sentry reporting.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		meta := ExtractMetadata(e)

		logger := slog.Default().With("service", serviceName, "trigger", meta.TriggerType)
		if meta.Source != "" {
			logger = logger.With("source", meta.Source)
		}

		runID, err := execution.LogStart(ctx, svc.DB, serviceName, execution.Options{
			TriggerType: meta.TriggerType,
			Source:      meta.Source,
			Assignee:    meta.Assignee,
			Target:      meta.Target,
		})
		if err != nil {
			// Continue anyway - don't fail the import just because the audit log failed
			logger.Error("Failed to log upload run start", "error", err)
		}

		logger = logger.With("run_id", runID)
		logger.Info("Function started")

		fwCtx := &FrameworkContext{
			Service:  svc,
			Logger:   logger,
			RunID:    runID,
			Metadata: meta,
		}

		outputs, handlerErr := handler(ctx, e, fwCtx)

		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr)
			infrasentry.CaptureUploadFailure(handlerErr, map[string]string{
				"service": serviceName,
				"run_id":  runID,
			}, map[string]interface{}{"source": meta.Source, "outputs": outputs}, logger)
			logFn := execution.LogFailure
			if r, ok := outputs.(StatusReporter); ok && r.RunStatus() == types.UploadRunPartial {
				logFn = execution.LogPartial
			}
			if logErr := logFn(ctx, svc.DB, runID, handlerErr, outputs); logErr != nil {
				logger.Warn("Failed to log upload run failure", "error", logErr)
			}
			return handlerErr
		}

		status := types.UploadRunSuccess
		if r, ok := outputs.(StatusReporter); ok && r.RunStatus() != "" {
			status = r.RunStatus()
		}
		if logErr := execution.LogStatus(ctx, svc.DB, runID, status, outputs); logErr != nil {
			logger.Warn("Failed to log upload run status", "error", logErr)
		}
		logger.Info("Function completed", "status", string(status))
		return nil
	}
}

// ExtractMetadata reads the upload source and the optional assignee and
// target from a storage object event. Other events yield only a trigger type.
func ExtractMetadata(e event.Event) RunMetadata {
	meta := RunMetadata{TriggerType: "pubsub"}
	switch {
	case e.Type() == "google.cloud.functions.http":
		meta.TriggerType = "http"
		return meta
	case strings.HasPrefix(e.Type(), "google.cloud.storage.object."):
		meta.TriggerType = "storage"
	default:
		return meta
	}

	var obj types.StorageObjectData
	if err := e.DataAs(&obj); err != nil {
		return meta
	}
	if obj.Bucket != "" && obj.Name != "" {
		meta.Source = fmt.Sprintf("gs://%s/%s", obj.Bucket, obj.Name)
	}
	meta.Assignee = strings.TrimSpace(obj.Metadata[MetadataAssignee])
	meta.Target = strings.TrimSpace(obj.Metadata[MetadataTargetSegment])
	return meta
}
