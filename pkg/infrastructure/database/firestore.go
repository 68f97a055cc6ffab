package database

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/opsboard/server/pkg"
	storage "github.com/opsboard/server/pkg/storage/firestore"
	"github.com/opsboard/server/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore
// It wraps our typed storage client
type FirestoreAdapter struct {
	storage           *storage.Client
	segmentCollection string
	now               func() time.Time
}

// NewFirestoreAdapter stores segments in segmentCollection, falling back to
// the default collection when empty.
func NewFirestoreAdapter(client *firestore.Client, segmentCollection string) *FirestoreAdapter {
	if segmentCollection == "" {
		segmentCollection = shared.CollectionLeadSegments
	}
	return &FirestoreAdapter{
		storage:           storage.NewClient(client),
		segmentCollection: segmentCollection,
		now:               time.Now,
	}
}

func (a *FirestoreAdapter) ListSegments(ctx context.Context) ([]*types.LeadSegment, error) {
	segments, err := a.storage.LeadSegments(a.segmentCollection).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a.segmentCollection, err)
	}
	return segments, nil
}

func (a *FirestoreAdapter) GetSegment(ctx context.Context, id string) (*types.LeadSegment, error) {
	seg, err := a.storage.LeadSegments(a.segmentCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("segment %s: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// ReplaceSegment overwrites the whole segment document so its record list is
// exactly records.
func (a *FirestoreAdapter) ReplaceSegment(ctx context.Context, id string, records []string) error {
	return a.storage.LeadSegments(a.segmentCollection).Doc(id).Replace(ctx, &types.LeadSegment{
		ID:        id,
		Records:   records,
		UpdatedAt: a.now().UTC(),
	})
}

func (a *FirestoreAdapter) SetUploadRun(ctx context.Context, run *types.UploadRun) error {
	return a.storage.UploadRuns(shared.CollectionUploadRuns).Doc(run.ID).Set(ctx, run)
}

func (a *FirestoreAdapter) UpdateUploadRun(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.UploadRuns(shared.CollectionUploadRuns).Doc(id).Update(ctx, data)
}
