package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opsboard/server/pkg/types"
)

func TestLeadSegmentConverters(t *testing.T) {
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m := LeadSegmentToFirestore(&types.LeadSegment{ID: "segment_1", Records: []string{"a", "b"}, UpdatedAt: updated})

	assert.Equal(t, []string{"a", "b"}, m["records"])
	assert.Equal(t, 2, m["record_count"])
	assert.NotContains(t, m, "id")

	// Firestore returns arrays as []interface{}
	got := FirestoreToLeadSegment("segment_1", map[string]interface{}{
		"records":    []interface{}{"a", "b"},
		"updated_at": updated,
	})
	assert.Equal(t, &types.LeadSegment{ID: "segment_1", Records: []string{"a", "b"}, UpdatedAt: updated}, got)
}

func TestLeadSegmentToFirestore_EmptyRecords(t *testing.T) {
	m := LeadSegmentToFirestore(&types.LeadSegment{})
	assert.Equal(t, []string{}, m["records"])
	assert.NotContains(t, m, "updated_at")
}

func TestFirestoreToLeadSegment_MissingFields(t *testing.T) {
	got := FirestoreToLeadSegment("segment_4", map[string]interface{}{"records": "not-a-list"})
	assert.Equal(t, "segment_4", got.ID)
	assert.Equal(t, 0, got.RecordCount())
	assert.True(t, got.UpdatedAt.IsZero())
}

func TestUploadRunConverters(t *testing.T) {
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	run := &types.UploadRun{
		ID:          "run-1",
		Service:     "lead-import",
		TriggerType: "storage",
		Source:      "gs://bucket/leads.xlsx",
		Status:      types.UploadRunStarted,
		StartedAt:   started,
	}

	m := UploadRunToFirestore(run)
	assert.Equal(t, "STARTED", m["status"])
	assert.NotContains(t, m, "completed_at")
	assert.NotContains(t, m, "assignee")

	assert.Equal(t, run, FirestoreToUploadRun("run-1", m))
}
