// Package types provides domain models shared across detbuilder components.
//
// Records travel as flat field maps with string values, matching the JSON
// shape the host's data export uses. The event a record belongs to is
// carried in-band under EventNameField so that a []Record can describe a
// whole longitudinal record.
package types

import "encoding/json"

// EventNameField tags every flat record with the unique event it belongs to.
const EventNameField = "redcap_event_name"

// DefaultEventName is the event every classic (non-longitudinal) project
// stores its data under.
const DefaultEventName = "event_1_arm_1"

// ProjectID identifies a project on the host.
type ProjectID string

// RecordID identifies a record within a project.
type RecordID string

// Record is a partial or complete flat record: field name -> raw value.
type Record map[string]string

// Event returns the event name the record is tagged with, if any.
func (r Record) Event() string {
	return r[EventNameField]
}

// Clone returns a shallow copy so callers can mutate without aliasing.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordData is a record's data across all of its events, one flat record
// per event in project event order.
type RecordData []Record

// ForEvent returns the record tagged with event.
func (d RecordData) ForEvent(event string) (Record, bool) {
	for _, r := range d {
		if r.Event() == event {
			return r, true
		}
	}
	return nil, false
}

// First returns the first event's record.
func (d RecordData) First() (Record, bool) {
	if len(d) == 0 {
		return nil, false
	}
	return d[0], true
}

// MarshalJSON keeps an empty RecordData as [] instead of null.
func (d RecordData) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Record(d))
}

// OverwritePolicy controls whether blank values erase stored data on save.
type OverwritePolicy string

const (
	// OverwriteNormal ignores blank values.
	OverwriteNormal OverwritePolicy = "normal"
	// OverwriteAll writes blank values, erasing existing data.
	OverwriteAll OverwritePolicy = "overwrite"
)

// ParseOverwritePolicy maps the persisted setting to a policy.
// Anything other than "overwrite" is treated as normal.
func ParseOverwritePolicy(s string) OverwritePolicy {
	if s == string(OverwriteAll) {
		return OverwriteAll
	}
	return OverwriteNormal
}

// SaveResult is the save collaborator's itemised outcome.
// Partial success is possible: IDs may be non-empty alongside Errors.
type SaveResult struct {
	IDs      []RecordID `json:"ids"`
	Warnings []string   `json:"warnings"`
	Errors   []string   `json:"errors"`
}

// Field describes one field in a project's data dictionary.
type Field struct {
	Name  string `db:"field_name" json:"field_name" yaml:"field_name"`
	Form  string `db:"form_name" json:"form_name" yaml:"form_name"`
	Type  string `db:"field_type" json:"field_type,omitempty" yaml:"field_type,omitempty"`
	Order int    `db:"field_order" json:"field_order,omitempty" yaml:"field_order,omitempty"`
}

// Pipeable reports whether data can be copied into the field.
// Descriptive fields hold no data; calc fields are computed by the host.
func (f Field) Pipeable() bool {
	return f.Type != "descriptive" && f.Type != "calc"
}

// LogEvent is one entry in the append-only DET event log.
type LogEvent struct {
	LogID       LogID     `db:"log_id" json:"log_id"`
	ProjectID   ProjectID `db:"project_id" json:"project_id"`
	RecordID    RecordID  `db:"record_id" json:"record_id,omitempty"`
	EventName   string    `db:"event_name" json:"event_name,omitempty"`
	Description string    `db:"description" json:"description"`
	Details     string    `db:"details" json:"details"`
	CreatedAt   string    `db:"created_at" json:"created_at"`
}

// Resource limits enforced by the expression engine.
const (
	// MaxConditionLength bounds a single trigger condition.
	// 8KB is far above any hand-written branching logic.
	MaxConditionLength = 8 * 1024

	// MaxExpressionDepth prevents stack overflow while compiling nested groups.
	MaxExpressionDepth = 64
)
