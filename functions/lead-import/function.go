package leadimport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	shared "github.com/opsboard/server/pkg"
	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/bootstrap"
	"github.com/opsboard/server/pkg/framework"
	infrapubsub "github.com/opsboard/server/pkg/infrastructure/pubsub"
	"github.com/opsboard/server/pkg/spreadsheet"
	"github.com/opsboard/server/pkg/types"
	"github.com/opsboard/server/pkg/upload"
)

const serviceName = "lead-import"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("ImportLeads", ImportLeads)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx, serviceName, nil)
	})
	return svc, svcErr
}

// ImportLeads is the entry point, triggered when a spreadsheet lands in the
// upload bucket.
func ImportLeads(ctx context.Context, e cloudevents.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent(serviceName, svc, importHandler)(ctx, e)
}

// ImportOutputs is stored on the upload run.
type ImportOutputs struct {
	upload.Summary
	Status  types.UploadRunStatus `json:"status"`
	Skipped string                `json:"skipped,omitempty"`
	EventID string                `json:"event_id,omitempty"`
}

func (o *ImportOutputs) RunStatus() types.UploadRunStatus {
	return o.Status
}

func importHandler(ctx context.Context, e cloudevents.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var obj types.StorageObjectData
	if err := e.DataAs(&obj); err != nil {
		return nil, fmt.Errorf("decode storage event: %w", err)
	}
	if obj.Bucket == "" || obj.Name == "" {
		return nil, fmt.Errorf("storage event missing bucket or object name")
	}

	logger := fwCtx.Logger.With("bucket", obj.Bucket, "object", obj.Name)

	if reason := skipReason(obj.Name); reason != "" {
		logger.Info("Skipping object", "reason", reason)
		return &ImportOutputs{Status: types.UploadRunSuccess, Skipped: reason}, nil
	}

	data, err := fwCtx.Service.Store.Read(ctx, obj.Bucket, obj.Name)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", obj.Bucket, obj.Name, err)
	}
	rows, err := spreadsheet.ReadRowsBytes(data, obj.Name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", obj.Name, err)
	}
	logger.Info("Spreadsheet parsed", "rows", len(rows))

	cfg := fwCtx.Service.Config
	orch := upload.New(fwCtx.Service.DB, cfg.Limits(), cfg.RetryPolicy(), batching.LogSink{Logger: logger.With("component", "batching")})
	summary, runErr := orch.Run(ctx, rows, upload.Options{
		Assignee:        fwCtx.Metadata.Assignee,
		TargetSegmentID: fwCtx.Metadata.Target,
		Progress: func(pct int) {
			logger.Info("Upload progress", "percent", pct)
		},
	})

	outputs := &ImportOutputs{Summary: summary, Status: upload.RunStatus(summary, runErr)}
	if runErr == nil {
		logger.Info("Import finished", "summary", summary.Describe())
	}

	// Announce anything that reached the store, including partial uploads.
	if summary.OperationsPlanned > 0 {
		completed := upload.CompletedEvent(fwCtx.RunID, fwCtx.Metadata.Source, fwCtx.Metadata.Assignee, summary, runErr)
		ev, err := infrapubsub.NewCloudEvent(shared.EventSourceLeadImport, shared.EventTypeLeadUploadCompleted, completed)
		if err != nil {
			logger.Error("Failed to create completion event", "error", err)
		} else if msgID, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicLeadUploadCompleted, ev); err != nil {
			logger.Error("Failed to publish completion event", "error", err)
		} else {
			outputs.EventID = msgID
		}
	}

	return outputs, runErr
}

func skipReason(name string) string {
	switch {
	case strings.HasPrefix(name, shared.ArchivePrefix):
		return "archived upload"
	case strings.HasSuffix(name, "/"):
		return "folder placeholder"
	case !spreadsheet.Supported(name):
		return "unsupported file type"
	}
	return ""
}
