package batching

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned when a planner is configured without a
// positive segment capacity.
var ErrInvalidCapacity = errors.New("segment capacity must be greater than zero")

// StoreReadError wraps a failure to read the existing segments. No plan is
// produced when it occurs.
type StoreReadError struct {
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("read existing segments: %v", e.Err)
}

func (e *StoreReadError) Unwrap() error {
	return e.Err
}

// StoreWriteError reports a segment write that still failed after the retry
// budget was spent. Operations before Index stay committed.
type StoreWriteError struct {
	SegmentID string
	Index     int
	Total     int
	Attempts  int
	Err       error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("write segment %s (operation %d of %d) failed after %d attempts: %v",
		e.SegmentID, e.Index+1, e.Total, e.Attempts, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// Committed returns how many operations were committed before the failure.
func (e *StoreWriteError) Committed() int {
	return e.Index
}

// TargetError reports an explicit target id that is not a canonical segment id.
type TargetError struct {
	ID     string
	Prefix string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("invalid target segment %q: want %s<positive integer>", e.ID, e.Prefix)
}

// RecordTooLargeError reports an encoded record that cannot fit even an empty
// segment under the byte ceiling.
type RecordTooLargeError struct {
	Index    int
	Bytes    int
	MaxBytes int
}

func (e *RecordTooLargeError) Error() string {
	return fmt.Sprintf("record %d needs %d bytes, segment ceiling is %d", e.Index, e.Bytes, e.MaxBytes)
}
