package batching

import (
	"context"

	"github.com/opsboard/server/pkg/types"
)

// SegmentReader is the read side of the segment store the planner needs.
type SegmentReader interface {
	// ListSegments returns every persisted segment with its records.
	ListSegments(ctx context.Context) ([]*types.LeadSegment, error)
}

// Mode is the planning mode of an upload.
type Mode string

const (
	ModeAuto           Mode = "auto"
	ModeExplicitTarget Mode = "explicit_target"
)

// Operation is one segment write. Records is the complete post-upload content
// of the segment; for updates it starts with the PriorCount records already
// stored there.
type Operation struct {
	SegmentID  string
	Ordinal    int
	Records    []string
	IsUpdate   bool
	PriorCount int
}

// Appended returns how many new records the operation adds.
func (o Operation) Appended() int {
	return len(o.Records) - o.PriorCount
}

// Plan is the ordered list of segment writes for one upload.
type Plan struct {
	Mode       Mode
	Operations []Operation
}

// Creates returns the number of operations that create a segment.
func (p *Plan) Creates() int {
	n := 0
	for _, op := range p.Operations {
		if !op.IsUpdate {
			n++
		}
	}
	return n
}

// Updates returns the number of operations that extend an existing segment.
func (p *Plan) Updates() int {
	return len(p.Operations) - p.Creates()
}

// Appended returns the number of new records placed by the plan.
func (p *Plan) Appended() int {
	n := 0
	for _, op := range p.Operations {
		n += op.Appended()
	}
	return n
}

// Planner computes upload plans against a snapshot of the segment store.
type Planner struct {
	Store  SegmentReader
	Limits Limits
	// Prefix defaults to DefaultSegmentPrefix.
	Prefix string
	Events EventSink
}

// NewPlanner creates a planner with the default segment prefix.
func NewPlanner(store SegmentReader, limits Limits, events EventSink) *Planner {
	return &Planner{Store: store, Limits: limits, Prefix: DefaultSegmentPrefix, Events: events}
}

func (p *Planner) prefix() string {
	if p.Prefix == "" {
		return DefaultSegmentPrefix
	}
	return p.Prefix
}

// Plan packs encoded records into segment operations.
//
// With no target the highest-numbered segment is topped up first when it
// still has room, and the remainder goes to new segments numbered after it.
// With a target the first operation always addresses the target (creating it
// if absent) and overflow is numbered after the target, regardless of any
// higher segments already in the store.
//
// The store is read exactly once, and not at all when encoded is empty.
func (p *Planner) Plan(ctx context.Context, encoded []string, target string) (*Plan, error) {
	if p.Limits.MaxRecords <= 0 {
		return nil, ErrInvalidCapacity
	}
	prefix := p.prefix()
	events := sinkOrNop(p.Events)

	plan := &Plan{Mode: ModeAuto}
	targetOrdinal := 0
	if target != "" {
		n, ok := ParseSegmentID(prefix, target)
		if !ok {
			return nil, &TargetError{ID: target, Prefix: prefix}
		}
		plan.Mode = ModeExplicitTarget
		targetOrdinal = n
	}

	if len(encoded) == 0 {
		return plan, nil
	}

	if p.Limits.MaxBytes > 0 {
		for i, r := range encoded {
			if size := EstimateSegmentBytes([]string{r}); size > p.Limits.MaxBytes {
				return nil, &RecordTooLargeError{Index: i, Bytes: size, MaxBytes: p.Limits.MaxBytes}
			}
		}
	}

	segments, err := p.Store.ListSegments(ctx)
	if err != nil {
		return nil, &StoreReadError{Err: err}
	}
	existing, highest := indexSegments(prefix, segments)

	headOrdinal := highest
	if plan.Mode == ModeExplicitTarget {
		headOrdinal = targetOrdinal
	}
	head := existing[headOrdinal]

	rest := encoded
	switch {
	case head != nil:
		if n := p.fit(head.Records, rest); n > 0 {
			records := make([]string, 0, len(head.Records)+n)
			records = append(records, head.Records...)
			records = append(records, rest[:n]...)
			plan.Operations = append(plan.Operations, Operation{
				SegmentID:  SegmentID(prefix, headOrdinal),
				Ordinal:    headOrdinal,
				Records:    records,
				IsUpdate:   true,
				PriorCount: len(head.Records),
			})
			rest = rest[n:]
		}
	case plan.Mode == ModeExplicitTarget:
		n := p.fit(nil, rest)
		plan.Operations = append(plan.Operations, newSegmentOp(prefix, headOrdinal, rest[:n]))
		rest = rest[n:]
	}

	next := headOrdinal + 1
	for len(rest) > 0 {
		n := p.fit(nil, rest)
		op := newSegmentOp(prefix, next, rest[:n])
		if _, taken := existing[next]; taken {
			events.Emit(ctx, Event{Kind: EventOverflowCollision, SegmentID: op.SegmentID, Records: n})
		}
		plan.Operations = append(plan.Operations, op)
		rest = rest[n:]
		next++
	}

	events.Emit(ctx, Event{Kind: EventPlanComputed, Total: len(plan.Operations), Records: len(encoded)})
	return plan, nil
}

// fit returns how many leading records of rest can be appended to a segment
// already holding prior.
func (p *Planner) fit(prior, rest []string) int {
	room := p.Limits.MaxRecords - len(prior)
	if room <= 0 {
		return 0
	}
	if room > len(rest) {
		room = len(rest)
	}
	if p.Limits.MaxBytes <= 0 {
		return room
	}

	size := EstimateSegmentBytes(prior)
	n := 0
	for n < room {
		rb := RecordBytes(rest[n])
		if size+rb > p.Limits.MaxBytes {
			break
		}
		size += rb
		n++
	}
	return n
}

func newSegmentOp(prefix string, ordinal int, records []string) Operation {
	return Operation{
		SegmentID: SegmentID(prefix, ordinal),
		Ordinal:   ordinal,
		Records:   append([]string(nil), records...),
	}
}

// indexSegments keys segments by ordinal, ignoring ids that don't follow the
// naming convention, and returns the highest ordinal seen.
func indexSegments(prefix string, segments []*types.LeadSegment) (map[int]*types.LeadSegment, int) {
	byOrdinal := make(map[int]*types.LeadSegment, len(segments))
	highest := 0
	for _, s := range segments {
		if s == nil {
			continue
		}
		n, ok := ParseSegmentID(prefix, s.ID)
		if !ok {
			continue
		}
		byOrdinal[n] = s
		if n > highest {
			highest = n
		}
	}
	return byOrdinal, highest
}
