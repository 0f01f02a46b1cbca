package routing

import "github.com/bcchr/detbuilder/internal/types"

// RecordSet accumulates the destination record, one partial flat record per
// destination event, in the order events were first written.
//
// Precedence:
//   - Set (piping, constants, link field) overwrites: last write wins
//   - Merge (instrument copies) only fills fields not yet present
type RecordSet struct {
	order  []string
	events map[string]types.Record
}

// NewRecordSet creates an empty set.
func NewRecordSet() *RecordSet {
	return &RecordSet{events: make(map[string]types.Record)}
}

func (s *RecordSet) event(name string) types.Record {
	rec, ok := s.events[name]
	if !ok {
		rec = types.Record{types.EventNameField: name}
		s.events[name] = rec
		s.order = append(s.order, name)
	}
	return rec
}

// Set writes value into field of event.
func (s *RecordSet) Set(event, field, value string) {
	rec := s.event(event)
	if field == types.EventNameField {
		return
	}
	rec[field] = value
}

// Merge copies data into event without replacing fields already written.
func (s *RecordSet) Merge(event string, data types.Record) {
	rec := s.event(event)
	for k, v := range data {
		if k == types.EventNameField {
			continue
		}
		if _, ok := rec[k]; !ok {
			rec[k] = v
		}
	}
}

// SetAll writes field into every event record.
func (s *RecordSet) SetAll(field, value string) {
	for _, name := range s.order {
		s.events[name][field] = value
	}
}

// Get returns the partial record for event.
func (s *RecordSet) Get(event string) (types.Record, bool) {
	rec, ok := s.events[event]
	return rec, ok
}

// Events lists touched events in first-write order.
func (s *RecordSet) Events() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of touched events.
func (s *RecordSet) Len() int {
	return len(s.order)
}

// Records returns copies of the partial records in first-write order.
func (s *RecordSet) Records() []types.Record {
	out := make([]types.Record, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.events[name].Clone())
	}
	return out
}
