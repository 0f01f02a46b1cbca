// internal/types/settings.go
package types

import "fmt"

/*
 * DET settings as persisted by the configuration UI.
 *
 * The stored shape is a set of parallel arrays indexed by trigger, each
 * holding per-rule lists (source field, source event, dest field, dest
 * event). Settings.ExpandTriggers() folds those arrays into Trigger values so
 * the routing engine never indexes the raw arrays itself.
 *
 * Alignment: for a trigger index, the field lists of a mapping group must
 * have equal length; event lists are either empty (all defaults) or the
 * same length, with "" meaning "use the default event". Violations are a
 * configuration-integrity defect (ErrMisalignedSettings), reported at
 * import time rather than while routing.
 */

// Settings mirrors the stored det_settings document. Keys keep the names
// the configuration form posts.
type Settings struct {
	DestProject         ProjectID  `json:"dest-project" yaml:"dest-project"`
	CreateRecordCond    string     `json:"create-record-cond,omitempty" yaml:"create-record-cond,omitempty"`
	LinkSourceEvent     string     `json:"linkSourceEvent,omitempty" yaml:"linkSourceEvent,omitempty"`
	LinkSource          string     `json:"linkSource" yaml:"linkSource"`
	LinkDestEvent       string     `json:"linkDestEvent,omitempty" yaml:"linkDestEvent,omitempty"`
	LinkDest            string     `json:"linkDest" yaml:"linkDest"`
	Triggers            []string   `json:"triggers" yaml:"triggers"`
	PipingSourceEvents  [][]string `json:"pipingSourceEvents,omitempty" yaml:"pipingSourceEvents,omitempty"`
	PipingDestEvents    [][]string `json:"pipingDestEvents,omitempty" yaml:"pipingDestEvents,omitempty"`
	PipingSourceFields  [][]string `json:"pipingSourceFields,omitempty" yaml:"pipingSourceFields,omitempty"`
	PipingDestFields    [][]string `json:"pipingDestFields,omitempty" yaml:"pipingDestFields,omitempty"`
	SetDestEvents       [][]string `json:"setDestEvents,omitempty" yaml:"setDestEvents,omitempty"`
	SetDestFields       [][]string `json:"setDestFields,omitempty" yaml:"setDestFields,omitempty"`
	SetDestFieldsValues [][]string `json:"setDestFieldsValues,omitempty" yaml:"setDestFieldsValues,omitempty"`
	SourceInstrEvents   [][]string `json:"sourceInstrEvents,omitempty" yaml:"sourceInstrEvents,omitempty"`
	SourceInstr         [][]string `json:"sourceInstr,omitempty" yaml:"sourceInstr,omitempty"`
	OverwriteData       string     `json:"overwrite-data,omitempty" yaml:"overwrite-data,omitempty"`
}

// PipeRule copies a source field into a destination field.
type PipeRule struct {
	SourceField string
	SourceEvent string // "" = first source event
	DestField   string
	DestEvent   string // "" = destination default event
}

// SetRule writes a configured constant into a destination field.
type SetRule struct {
	DestField string
	DestEvent string // "" = destination default event
	Value     string
}

// InstrumentRule copies every field of a source instrument.
type InstrumentRule struct {
	Instrument string
	Event      string // "" = default event on both sides
}

// Trigger is one configured condition plus the mapping rules it fires.
type Trigger struct {
	Index       int
	Condition   string
	Piping      []PipeRule
	Constants   []SetRule
	Instruments []InstrumentRule
}

// Link is the linking-field tuple correlating source and destination records.
type Link struct {
	SourceEvent string
	SourceField string
	DestEvent   string
	DestField   string
}

// Link returns the configured linking tuple.
func (s *Settings) Link() Link {
	return Link{
		SourceEvent: s.LinkSourceEvent,
		SourceField: s.LinkSource,
		DestEvent:   s.LinkDestEvent,
		DestField:   s.LinkDest,
	}
}

// Overwrite returns the save policy for the destination project.
func (s *Settings) Overwrite() OverwritePolicy {
	return ParseOverwritePolicy(s.OverwriteData)
}

// Validate checks that a destination is set and the mapping arrays align.
func (s *Settings) Validate() error {
	if s.DestProject == "" {
		return ErrNoDestinationProject
	}
	_, err := s.ExpandTriggers()
	return err
}

// ExpandTriggers folds the parallel arrays into Trigger values in index order.
func (s *Settings) ExpandTriggers() ([]Trigger, error) {
	n := len(s.Triggers)
	groups := []struct {
		name string
		g    [][]string
	}{
		{"pipingSourceEvents", s.PipingSourceEvents},
		{"pipingDestEvents", s.PipingDestEvents},
		{"pipingSourceFields", s.PipingSourceFields},
		{"pipingDestFields", s.PipingDestFields},
		{"setDestEvents", s.SetDestEvents},
		{"setDestFields", s.SetDestFields},
		{"setDestFieldsValues", s.SetDestFieldsValues},
		{"sourceInstrEvents", s.SourceInstrEvents},
		{"sourceInstr", s.SourceInstr},
	}
	for _, grp := range groups {
		if len(grp.g) > n {
			return nil, fmt.Errorf("%w: %s has %d entries for %d triggers", ErrMisalignedSettings, grp.name, len(grp.g), n)
		}
	}

	triggers := make([]Trigger, 0, n)
	for i, cond := range s.Triggers {
		t := Trigger{Index: i, Condition: cond}

		srcFields := at(s.PipingSourceFields, i)
		dstFields := at(s.PipingDestFields, i)
		srcEvents := at(s.PipingSourceEvents, i)
		dstEvents := at(s.PipingDestEvents, i)
		if len(srcFields) != len(dstFields) {
			return nil, misaligned(i, "pipingSourceFields", "pipingDestFields")
		}
		if !eventsAligned(srcEvents, dstFields) {
			return nil, misaligned(i, "pipingSourceEvents", "pipingDestFields")
		}
		if !eventsAligned(dstEvents, dstFields) {
			return nil, misaligned(i, "pipingDestEvents", "pipingDestFields")
		}
		for j, f := range dstFields {
			t.Piping = append(t.Piping, PipeRule{
				SourceField: srcFields[j],
				SourceEvent: optional(srcEvents, j),
				DestField:   f,
				DestEvent:   optional(dstEvents, j),
			})
		}

		setFields := at(s.SetDestFields, i)
		setValues := at(s.SetDestFieldsValues, i)
		setEvents := at(s.SetDestEvents, i)
		if len(setFields) != len(setValues) {
			return nil, misaligned(i, "setDestFields", "setDestFieldsValues")
		}
		if !eventsAligned(setEvents, setFields) {
			return nil, misaligned(i, "setDestEvents", "setDestFields")
		}
		for j, f := range setFields {
			t.Constants = append(t.Constants, SetRule{
				DestField: f,
				DestEvent: optional(setEvents, j),
				Value:     setValues[j],
			})
		}

		instruments := at(s.SourceInstr, i)
		instrEvents := at(s.SourceInstrEvents, i)
		if !eventsAligned(instrEvents, instruments) {
			return nil, misaligned(i, "sourceInstrEvents", "sourceInstr")
		}
		for j, instr := range instruments {
			t.Instruments = append(t.Instruments, InstrumentRule{
				Instrument: instr,
				Event:      optional(instrEvents, j),
			})
		}

		triggers = append(triggers, t)
	}
	return triggers, nil
}

func at(g [][]string, i int) []string {
	if i < len(g) {
		return g[i]
	}
	return nil
}

func optional(events []string, j int) string {
	if j < len(events) {
		return events[j]
	}
	return ""
}

// eventsAligned allows an omitted event list; otherwise lengths must match.
func eventsAligned(events, items []string) bool {
	return len(events) == 0 || len(events) == len(items)
}

func misaligned(i int, a, b string) error {
	return fmt.Errorf("%w: trigger %d: %s and %s differ in length", ErrMisalignedSettings, i, a, b)
}
