// Package batching packs encoded lead records into capacity-bounded segments
// and commits them to the segment store in order.
package batching

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSegmentPrefix is the id prefix of every segment document.
const DefaultSegmentPrefix = "segment_"

// Firestore rejects documents above 1 MiB. The defaults keep a segment well
// below that for typical lead records.
const (
	DefaultMaxRecords = 500
	DefaultMaxBytes   = 1_000_000
	FirestoreMaxBytes = 1_048_576
)

// segmentDocOverhead covers the document name, the bookkeeping fields stored
// next to the records array and some headroom.
const segmentDocOverhead = 1024

// Limits bounds the content of a single segment.
type Limits struct {
	// MaxRecords is the record capacity of a segment. Must be > 0.
	MaxRecords int
	// MaxBytes caps the estimated document size. Zero disables the check.
	MaxBytes int
}

// DefaultLimits returns the production segment limits.
func DefaultLimits() Limits {
	return Limits{MaxRecords: DefaultMaxRecords, MaxBytes: DefaultMaxBytes}
}

// SegmentID formats the id of the segment with the given ordinal.
func SegmentID(prefix string, ordinal int) string {
	return fmt.Sprintf("%s%d", prefix, ordinal)
}

// ParseSegmentID extracts the ordinal from a canonical segment id such as
// "segment_7". Ids with leading zeros or a non-positive ordinal don't match.
func ParseSegmentID(prefix, id string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	digits := id[len(prefix):]
	if digits == "" || digits[0] == '0' {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// RecordBytes is the Firestore storage size of one encoded record inside an
// array value.
func RecordBytes(encoded string) int {
	return len(encoded) + 1
}

// EstimateSegmentBytes estimates the stored size of a segment document
// holding records.
func EstimateSegmentBytes(records []string) int {
	size := segmentDocOverhead
	for _, r := range records {
		size += RecordBytes(r)
	}
	return size
}
