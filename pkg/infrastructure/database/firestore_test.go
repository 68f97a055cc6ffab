package database

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/opsboard/server/pkg"
)

// newEmulatorAdapter returns an adapter over a fresh collection in the
// Firestore emulator.
func newEmulatorAdapter(t *testing.T) (*FirestoreAdapter, *firestore.CollectionRef) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("Skipping: FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "demo-opsboard")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	collection := "lead_segments_" + uuid.NewString()
	return NewFirestoreAdapter(client, collection), client.Collection(collection)
}

func TestReplaceSegment_OverwritesWholeDocument(t *testing.T) {
	ctx := context.Background()
	adapter, raw := newEmulatorAdapter(t)

	_, err := raw.Doc("segment_1").Set(ctx, map[string]interface{}{
		"records":      []string{"a", "b", "c"},
		"record_count": 3,
		"legacy":       "stale",
	})
	require.NoError(t, err)

	require.NoError(t, adapter.ReplaceSegment(ctx, "segment_1", []string{"x"}))

	snap, err := raw.Doc("segment_1").Get(ctx)
	require.NoError(t, err)
	data := snap.Data()
	assert.NotContains(t, data, "legacy")
	assert.Equal(t, []interface{}{"x"}, data["records"])
	assert.Equal(t, int64(1), data["record_count"])

	seg, err := adapter.GetSegment(ctx, "segment_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, seg.Records)
	assert.False(t, seg.UpdatedAt.IsZero())
}

func TestGetSegment_NotFound(t *testing.T) {
	adapter, _ := newEmulatorAdapter(t)

	_, err := adapter.GetSegment(context.Background(), "segment_9")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListSegments(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newEmulatorAdapter(t)
	require.NoError(t, adapter.ReplaceSegment(ctx, "segment_2", []string{"b"}))
	require.NoError(t, adapter.ReplaceSegment(ctx, "segment_1", []string{"a1", "a2"}))

	segments, err := adapter.ListSegments(ctx)

	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "segment_1", segments[0].ID)
	assert.Equal(t, 2, segments[0].RecordCount())
	assert.Equal(t, "segment_2", segments[1].ID)
}
