package leadimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/bootstrap"
	"github.com/opsboard/server/pkg/domain/lead"
	"github.com/opsboard/server/pkg/framework"
	"github.com/opsboard/server/pkg/testing/mocks"
	"github.com/opsboard/server/pkg/types"
)

type harness struct {
	svc       *bootstrap.Service
	db        *mocks.MemoryDatabase
	published []event.Event
	reads     []string
}

func newHarness(t *testing.T, files map[string]string, capacity int) *harness {
	t.Helper()
	h := &harness{db: mocks.NewMemoryDatabase()}
	h.svc = &bootstrap.Service{
		DB: h.db,
		Store: &mocks.MockBlobStore{
			ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
				h.reads = append(h.reads, bucket+"/"+object)
				data, ok := files[object]
				if !ok {
					return nil, errors.New("object not found")
				}
				return []byte(data), nil
			},
		},
		Pub: &mocks.MockPublisher{
			PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
				assert.Equal(t, "topic-lead-upload-completed", topic)
				h.published = append(h.published, e)
				return "msg-1", nil
			},
		},
		Config: &bootstrap.Config{
			SegmentCapacity: capacity,
			SegmentMaxBytes: batching.DefaultMaxBytes,
			WriteMaxRetries: 1,
		},
	}
	return h
}

func (h *harness) run(t *testing.T, object string, metadata map[string]string) error {
	t.Helper()
	e := event.New()
	e.SetID("evt-1")
	e.SetType("google.cloud.storage.object.v1.finalized")
	e.SetSource("//storage.googleapis.com/projects/_/buckets/uploads")
	require.NoError(t, e.SetData(event.ApplicationJSON, types.StorageObjectData{Bucket: "uploads", Name: object, Metadata: metadata}))
	return framework.WrapCloudEvent(serviceName, h.svc, importHandler)(context.Background(), e)
}

func (h *harness) runID(t *testing.T) string {
	t.Helper()
	ids := h.db.RunIDs()
	require.Len(t, ids, 1)
	return ids[0]
}

func csvLeads(n int) string {
	var b strings.Builder
	b.WriteString("Company Name,Email,Lead Status\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Lead %d,l%d@x.test,Hot\n", i, i)
	}
	b.WriteString(",no-name@x.test,\n")
	return b.String()
}

func TestImportLeads(t *testing.T) {
	h := newHarness(t, map[string]string{"incoming/march.csv": csvLeads(3)}, 500)

	err := h.run(t, "incoming/march.csv", map[string]string{"assignee": "sam@ops.test"})

	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/incoming/march.csv"}, h.reads)

	records := h.db.Records("segment_1")
	require.Len(t, records, 3)
	rec, err := lead.Decode(records[2])
	require.NoError(t, err)
	assert.Equal(t, "Lead 2", rec.Name())
	assert.Equal(t, "hot", rec.Status())
	assert.Equal(t, "sam@ops.test", rec[lead.FieldAssignedTo])

	assert.Equal(t, "SUCCESS", h.db.LastStatus(h.runID(t)))

	require.Len(t, h.published, 1)
	assert.Equal(t, "com.opsboard.lead.upload.completed", h.published[0].Type())
	var completed types.UploadCompletedEvent
	require.NoError(t, json.Unmarshal(h.published[0].Data(), &completed))
	assert.Equal(t, types.UploadCompletedEvent{
		RunID:                h.runID(t),
		Source:               "gs://uploads/incoming/march.csv",
		Assignee:             "sam@ops.test",
		TotalRecordsAccepted: 3,
		RowsRejected:         1,
		TotalSegmentsTouched: 1,
		SegmentsCreated:      1,
		Complete:             true,
	}, completed)
}

func TestImportLeads_ExplicitTarget(t *testing.T) {
	h := newHarness(t, map[string]string{"march.csv": csvLeads(3)}, 2)

	require.NoError(t, h.run(t, "march.csv", map[string]string{"target_segment": "segment_7"}))

	assert.Len(t, h.db.Records("segment_7"), 2)
	assert.Len(t, h.db.Records("segment_8"), 1)
	assert.False(t, h.db.Has("segment_1"))
}

func TestImportLeads_PartialWrite(t *testing.T) {
	h := newHarness(t, map[string]string{"march.csv": csvLeads(5)}, 2)
	h.db.WriteErr = func(id string, attempt int) error {
		if id == "segment_2" {
			return errors.New("unavailable")
		}
		return nil
	}

	err := h.run(t, "march.csv", nil)

	var writeErr *batching.StoreWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 2, writeErr.Attempts)
	assert.Len(t, h.db.Records("segment_1"), 2)
	assert.False(t, h.db.Has("segment_3"))
	assert.Equal(t, "PARTIAL", h.db.LastStatus(h.runID(t)))

	require.Len(t, h.published, 1)
	var completed types.UploadCompletedEvent
	require.NoError(t, json.Unmarshal(h.published[0].Data(), &completed))
	assert.False(t, completed.Complete)
	assert.Equal(t, 1, completed.SegmentsCreated)
	assert.NotEmpty(t, completed.Error)
}

func TestImportLeads_NoNamedRows(t *testing.T) {
	h := newHarness(t, map[string]string{"march.csv": "Email\na@x.test\n"}, 500)

	err := h.run(t, "march.csv", nil)

	assert.Error(t, err)
	assert.Empty(t, h.db.Writes)
	assert.Empty(t, h.published)
	assert.Equal(t, "FAILED", h.db.LastStatus(h.runID(t)))
}

func TestImportLeads_Skips(t *testing.T) {
	for _, object := range []string{"archive/2024/march.csv", "incoming/", "notes.txt"} {
		t.Run(object, func(t *testing.T) {
			h := newHarness(t, nil, 500)

			require.NoError(t, h.run(t, object, nil))

			assert.Empty(t, h.reads)
			assert.Empty(t, h.db.Writes)
			assert.Equal(t, "SUCCESS", h.db.LastStatus(h.runID(t)))
		})
	}
}

func TestImportLeads_ReadError(t *testing.T) {
	h := newHarness(t, nil, 500)

	err := h.run(t, "missing.csv", nil)

	assert.ErrorContains(t, err, "read gs://uploads/missing.csv")
	assert.Equal(t, "FAILED", h.db.LastStatus(h.runID(t)))
}
