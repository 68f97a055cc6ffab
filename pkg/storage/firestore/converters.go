package firestore

import (
	"time"

	"github.com/opsboard/server/pkg/types"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// Firestore hands arrays back as []interface{}.
func getStrings(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// --- LeadSegment Converters ---

func LeadSegmentToFirestore(s *types.LeadSegment) map[string]interface{} {
	records := s.Records
	if records == nil {
		records = []string{}
	}
	m := map[string]interface{}{
		"records":      records,
		"record_count": len(records),
	}
	if !s.UpdatedAt.IsZero() {
		m["updated_at"] = s.UpdatedAt
	}
	return m
}

func FirestoreToLeadSegment(id string, m map[string]interface{}) *types.LeadSegment {
	return &types.LeadSegment{
		ID:        id,
		Records:   getStrings(m, "records"),
		UpdatedAt: getTime(m, "updated_at"),
	}
}

// --- UploadRun Converters ---

func UploadRunToFirestore(r *types.UploadRun) map[string]interface{} {
	m := map[string]interface{}{
		"service":      r.Service,
		"trigger_type": r.TriggerType,
		"status":       string(r.Status),
		"started_at":   r.StartedAt,
	}
	if r.Source != "" {
		m["source"] = r.Source
	}
	if r.Assignee != "" {
		m["assignee"] = r.Assignee
	}
	if r.Target != "" {
		m["target"] = r.Target
	}
	if !r.CompletedAt.IsZero() {
		m["completed_at"] = r.CompletedAt
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if len(r.Outputs) > 0 {
		m["outputs"] = r.Outputs
	}
	return m
}

func FirestoreToUploadRun(id string, m map[string]interface{}) *types.UploadRun {
	r := &types.UploadRun{
		ID:          id,
		Service:     getString(m, "service"),
		TriggerType: getString(m, "trigger_type"),
		Source:      getString(m, "source"),
		Assignee:    getString(m, "assignee"),
		Target:      getString(m, "target"),
		Status:      types.UploadRunStatus(getString(m, "status")),
		StartedAt:   getTime(m, "started_at"),
		CompletedAt: getTime(m, "completed_at"),
		Error:       getString(m, "error"),
	}
	if outputs, ok := m["outputs"].(map[string]interface{}); ok {
		r.Outputs = outputs
	}
	return r
}
