package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	shared "github.com/opsboard/server/pkg"
	"github.com/opsboard/server/pkg/types"
)

// MemorySegmentStore is an in-memory segment store that records every call.
type MemorySegmentStore struct {
	mu       sync.Mutex
	segments map[string][]string
	attempts map[string]int

	// ListErr is returned by ListSegments when set.
	ListErr error
	// WriteErr decides the outcome of each ReplaceSegment call. attempt
	// counts calls for the same id, starting at 1.
	WriteErr func(id string, attempt int) error

	ListCalls int
	Writes    []string
}

func NewMemorySegmentStore() *MemorySegmentStore {
	return &MemorySegmentStore{
		segments: make(map[string][]string),
		attempts: make(map[string]int),
	}
}

// Seed stores a segment holding n placeholder records.
func (s *MemorySegmentStore) Seed(id string, n int) []string {
	records := make([]string, n)
	for i := range records {
		records[i] = fmt.Sprintf("%s-seed-%d", id, i)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[id] = records
	return records
}

func (s *MemorySegmentStore) ListSegments(_ context.Context) ([]*types.LeadSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	ids := make([]string, 0, len(s.segments))
	for id := range s.segments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*types.LeadSegment, 0, len(ids))
	for _, id := range ids {
		out = append(out, &types.LeadSegment{ID: id, Records: append([]string(nil), s.segments[id]...)})
	}
	return out, nil
}

func (s *MemorySegmentStore) GetSegment(_ context.Context, id string) (*types.LeadSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.segments[id]
	if !ok {
		return nil, fmt.Errorf("segment %s: %w", id, shared.ErrNotFound)
	}
	return &types.LeadSegment{ID: id, Records: append([]string(nil), records...)}, nil
}

func (s *MemorySegmentStore) ReplaceSegment(_ context.Context, id string, records []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[id]++
	s.Writes = append(s.Writes, id)
	if s.WriteErr != nil {
		if err := s.WriteErr(id, s.attempts[id]); err != nil {
			return err
		}
	}
	s.segments[id] = append([]string(nil), records...)
	return nil
}

// Records returns the stored content of a segment.
func (s *MemorySegmentStore) Records(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.segments[id]...)
}

// Has reports whether a segment exists.
func (s *MemorySegmentStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.segments[id]
	return ok
}

// Attempts returns how many writes were attempted for a segment.
func (s *MemorySegmentStore) Attempts(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

// MemoryDatabase is a MemorySegmentStore with an in-memory upload run log.
type MemoryDatabase struct {
	*MemorySegmentStore

	runMu   sync.Mutex
	Runs    map[string]*types.UploadRun
	Updates map[string][]map[string]interface{}
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		MemorySegmentStore: NewMemorySegmentStore(),
		Runs:               make(map[string]*types.UploadRun),
		Updates:            make(map[string][]map[string]interface{}),
	}
}

func (d *MemoryDatabase) SetUploadRun(_ context.Context, run *types.UploadRun) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	cp := *run
	d.Runs[run.ID] = &cp
	return nil
}

func (d *MemoryDatabase) UpdateUploadRun(_ context.Context, id string, data map[string]interface{}) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.Updates[id] = append(d.Updates[id], data)
	return nil
}

// LastStatus returns the status most recently written for a run.
func (d *MemoryDatabase) LastStatus(id string) string {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	updates := d.Updates[id]
	for i := len(updates) - 1; i >= 0; i-- {
		if s, ok := updates[i]["status"].(string); ok {
			return s
		}
	}
	if run, ok := d.Runs[id]; ok {
		return string(run.Status)
	}
	return ""
}

// RunIDs returns the ids of all started runs.
func (d *MemoryDatabase) RunIDs() []string {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	ids := make([]string, 0, len(d.Runs))
	for id := range d.Runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
