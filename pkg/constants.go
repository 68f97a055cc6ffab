package shared

const (
	ProjectID = "opsboard-project" // Can be overridden by env var

	TopicLeadUploadCompleted = "topic-lead-upload-completed"

	CollectionLeadSegments = "lead_segments"
	CollectionUploadRuns   = "upload_runs"

	// Objects under this prefix are archived API uploads and are not imported again.
	ArchivePrefix = "archive/"

	EventTypeLeadUploadCompleted = "com.opsboard.lead.upload.completed"
	EventSourceLeadImport        = "/opsboard/lead-import"
	EventSourceLeadUploadAPI     = "/opsboard/lead-upload-api"
)
