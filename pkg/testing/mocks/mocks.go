package mocks

import (
	"context"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/opsboard/server/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	ListSegmentsFunc    func(ctx context.Context) ([]*types.LeadSegment, error)
	GetSegmentFunc      func(ctx context.Context, id string) (*types.LeadSegment, error)
	ReplaceSegmentFunc  func(ctx context.Context, id string, records []string) error
	SetUploadRunFunc    func(ctx context.Context, run *types.UploadRun) error
	UpdateUploadRunFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockDatabase) ListSegments(ctx context.Context) ([]*types.LeadSegment, error) {
	if m.ListSegmentsFunc != nil {
		return m.ListSegmentsFunc(ctx)
	}
	return nil, nil
}
func (m *MockDatabase) GetSegment(ctx context.Context, id string) (*types.LeadSegment, error) {
	if m.GetSegmentFunc != nil {
		return m.GetSegmentFunc(ctx, id)
	}
	return nil, fmt.Errorf("segment not found")
}
func (m *MockDatabase) ReplaceSegment(ctx context.Context, id string, records []string) error {
	if m.ReplaceSegmentFunc != nil {
		return m.ReplaceSegmentFunc(ctx, id, records)
	}
	return nil
}
func (m *MockDatabase) SetUploadRun(ctx context.Context, run *types.UploadRun) error {
	if m.SetUploadRunFunc != nil {
		return m.SetUploadRunFunc(ctx, run)
	}
	return nil
}
func (m *MockDatabase) UpdateUploadRun(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateUploadRunFunc != nil {
		return m.UpdateUploadRunFunc(ctx, id, data)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}
