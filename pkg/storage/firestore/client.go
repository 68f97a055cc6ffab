package firestore

import (
	"cloud.google.com/go/firestore"

	"github.com/opsboard/server/pkg/types"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// LeadSegments is a top-level collection: {collection}/{segment_N}
func (c *Client) LeadSegments(collection string) *Collection[types.LeadSegment] {
	return &Collection[types.LeadSegment]{
		Ref:           c.fs.Collection(collection),
		ToFirestore:   LeadSegmentToFirestore,
		FromFirestore: FirestoreToLeadSegment,
	}
}

// UploadRuns is a top-level collection: upload_runs/{id}
func (c *Client) UploadRuns(collection string) *Collection[types.UploadRun] {
	return &Collection[types.UploadRun]{
		Ref:           c.fs.Collection(collection),
		ToFirestore:   UploadRunToFirestore,
		FromFirestore: FirestoreToUploadRun,
	}
}
