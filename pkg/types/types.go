package types

import "time"

// LeadSegment is one persisted batch of encoded lead records.
type LeadSegment struct {
	ID        string
	Records   []string
	UpdatedAt time.Time
}

// RecordCount returns the number of encoded records held by the segment.
func (s *LeadSegment) RecordCount() int {
	return len(s.Records)
}

// UploadRunStatus is the lifecycle state of an upload run.
type UploadRunStatus string

const (
	UploadRunStarted UploadRunStatus = "STARTED"
	UploadRunSuccess UploadRunStatus = "SUCCESS"
	UploadRunPartial UploadRunStatus = "PARTIAL"
	UploadRunFailed  UploadRunStatus = "FAILED"
)

// UploadRun is the audit record written for every import invocation.
type UploadRun struct {
	ID          string
	Service     string
	TriggerType string
	Source      string
	Assignee    string
	Target      string
	Status      UploadRunStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
	Outputs     map[string]interface{}
}
