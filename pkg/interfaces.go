package shared

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/opsboard/server/pkg/types"
)

// --- Persistence Interfaces ---

// SegmentStore persists lead segments.
type SegmentStore interface {
	ListSegments(ctx context.Context) ([]*types.LeadSegment, error)
	GetSegment(ctx context.Context, id string) (*types.LeadSegment, error)
	ReplaceSegment(ctx context.Context, id string, records []string) error
}

// UploadRunStore persists the upload run audit log.
type UploadRunStore interface {
	SetUploadRun(ctx context.Context, run *types.UploadRun) error
	UpdateUploadRun(ctx context.Context, id string, data map[string]interface{}) error
}

type Database interface {
	SegmentStore
	UploadRunStore
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}
