package types

// StorageObjectData is the payload of a Cloud Storage object event
// delivered through a CloudEvent.
type StorageObjectData struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Size        string            `json:"size"`
	Metadata    map[string]string `json:"metadata"`
}

// UploadCompletedEvent is published once a lead import finishes.
type UploadCompletedEvent struct {
	RunID                string `json:"run_id"`
	Source               string `json:"source"`
	Assignee             string `json:"assignee,omitempty"`
	TotalRecordsAccepted int    `json:"total_records_accepted"`
	RowsRejected         int    `json:"rows_rejected"`
	TotalSegmentsTouched int    `json:"total_segments_touched"`
	SegmentsCreated      int    `json:"segments_created"`
	SegmentsUpdated      int    `json:"segments_updated"`
	Complete             bool   `json:"complete"`
	Error                string `json:"error,omitempty"`
}
