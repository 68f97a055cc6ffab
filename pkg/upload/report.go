package upload

import (
	"context"
	"fmt"
	"sort"

	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/types"
)

// RunStatus classifies the outcome of Run for the upload run log.
func RunStatus(s Summary, err error) types.UploadRunStatus {
	switch {
	case err == nil:
		return types.UploadRunSuccess
	case s.OperationsCompleted > 0:
		return types.UploadRunPartial
	default:
		return types.UploadRunFailed
	}
}

// CompletedEvent builds the payload announced after an import.
func CompletedEvent(runID, source, assignee string, s Summary, err error) types.UploadCompletedEvent {
	ev := types.UploadCompletedEvent{
		RunID:                runID,
		Source:               source,
		Assignee:             assignee,
		TotalRecordsAccepted: s.TotalRecordsAccepted,
		RowsRejected:         s.RowsRejected,
		TotalSegmentsTouched: s.TotalSegmentsTouched,
		SegmentsCreated:      s.SegmentsCreated,
		SegmentsUpdated:      s.SegmentsUpdated,
		Complete:             err == nil && s.Complete(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// SegmentOccupancy is how full one stored segment is.
type SegmentOccupancy struct {
	ID      string `json:"id"`
	Records int    `json:"records"`
	Open    bool   `json:"open"`
}

// Occupancy lists the stored segments in ordinal order. Segments whose id
// does not follow the naming scheme are listed last, by id.
func Occupancy(ctx context.Context, store batching.SegmentReader, prefix string, capacity int) ([]SegmentOccupancy, error) {
	if capacity < 1 {
		return nil, batching.ErrInvalidCapacity
	}
	if prefix == "" {
		prefix = batching.DefaultSegmentPrefix
	}
	segments, err := store.ListSegments(ctx)
	if err != nil {
		return nil, &batching.StoreReadError{Err: err}
	}

	var named, foreign []SegmentOccupancy
	ordinals := make(map[string]int, len(segments))
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		occ := SegmentOccupancy{ID: seg.ID, Records: seg.RecordCount(), Open: seg.RecordCount() < capacity}
		if n, ok := batching.ParseSegmentID(prefix, seg.ID); ok {
			ordinals[seg.ID] = n
			named = append(named, occ)
		} else {
			foreign = append(foreign, occ)
		}
	}
	sort.Slice(named, func(i, j int) bool { return ordinals[named[i].ID] < ordinals[named[j].ID] })
	sort.Slice(foreign, func(i, j int) bool { return foreign[i].ID < foreign[j].ID })
	return append(named, foreign...), nil
}

// Describe renders a one-line summary for logs and the CLI.
func (s Summary) Describe() string {
	return fmt.Sprintf("%d rows read, %d rejected, %d records written to %d segments (%d created, %d updated)",
		s.RowsRead, s.RowsRejected, s.TotalRecordsWritten, s.TotalSegmentsTouched, s.SegmentsCreated, s.SegmentsUpdated)
}
