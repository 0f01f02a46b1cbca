package types

import (
	"errors"
	"testing"
)

func TestSettings_ExpandTriggers(t *testing.T) {
	s := &Settings{
		DestProject: "22",
		Triggers:    []string{"[age] > 5", "[consent] = '1'"},
		PipingSourceFields: [][]string{
			{"age", "dob"},
		},
		PipingDestFields: [][]string{
			{"dest_age", "dest_dob"},
		},
		PipingDestEvents: [][]string{
			{"baseline_arm_1", ""},
		},
		SetDestFields:       [][]string{nil, {"enrolled"}},
		SetDestFieldsValues: [][]string{nil, {"1"}},
		SourceInstr:         [][]string{nil, {"consent_form"}},
	}

	triggers, err := s.ExpandTriggers()
	if err != nil {
		t.Fatalf("ExpandTriggers() error = %v", err)
	}
	if len(triggers) != 2 {
		t.Fatalf("len(triggers) = %d, want 2", len(triggers))
	}

	first := triggers[0]
	if len(first.Piping) != 2 {
		t.Fatalf("len(Piping) = %d, want 2", len(first.Piping))
	}
	if first.Piping[0].DestEvent != "baseline_arm_1" {
		t.Errorf("Piping[0].DestEvent = %q, want baseline_arm_1", first.Piping[0].DestEvent)
	}
	if first.Piping[1].DestEvent != "" {
		t.Errorf("Piping[1].DestEvent = %q, want empty", first.Piping[1].DestEvent)
	}
	if first.Piping[1].SourceEvent != "" {
		t.Errorf("Piping[1].SourceEvent = %q, want empty (omitted list)", first.Piping[1].SourceEvent)
	}

	second := triggers[1]
	if second.Index != 1 || second.Condition != "[consent] = '1'" {
		t.Errorf("second trigger = %+v", second)
	}
	if len(second.Constants) != 1 || second.Constants[0].Value != "1" {
		t.Errorf("Constants = %+v, want one rule with value 1", second.Constants)
	}
	if len(second.Instruments) != 1 || second.Instruments[0].Instrument != "consent_form" {
		t.Errorf("Instruments = %+v", second.Instruments)
	}
}

func TestSettings_Misaligned(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
	}{
		{
			name: "piping field lengths differ",
			s: Settings{
				DestProject:        "2",
				Triggers:           []string{"[a] = 1"},
				PipingSourceFields: [][]string{{"a", "b"}},
				PipingDestFields:   [][]string{{"a"}},
			},
		},
		{
			name: "dest events partially listed",
			s: Settings{
				DestProject:        "2",
				Triggers:           []string{"[a] = 1"},
				PipingSourceFields: [][]string{{"a", "b"}},
				PipingDestFields:   [][]string{{"a", "b"}},
				PipingDestEvents:   [][]string{{"e1"}},
			},
		},
		{
			name: "constant values missing",
			s: Settings{
				DestProject:   "2",
				Triggers:      []string{"[a] = 1"},
				SetDestFields: [][]string{{"x"}},
			},
		},
		{
			name: "more mapping groups than triggers",
			s: Settings{
				DestProject: "2",
				Triggers:    []string{"[a] = 1"},
				SourceInstr: [][]string{{"f1"}, {"f2"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if !errors.Is(err, ErrMisalignedSettings) {
				t.Errorf("Validate() error = %v, want ErrMisalignedSettings", err)
			}
		})
	}
}

func TestSettings_ValidateRequiresDestination(t *testing.T) {
	s := Settings{Triggers: []string{"[a] = 1"}}
	if err := s.Validate(); !errors.Is(err, ErrNoDestinationProject) {
		t.Errorf("Validate() error = %v, want ErrNoDestinationProject", err)
	}
}

func TestParseOverwritePolicy(t *testing.T) {
	if got := ParseOverwritePolicy("overwrite"); got != OverwriteAll {
		t.Errorf("ParseOverwritePolicy(overwrite) = %v", got)
	}
	for _, in := range []string{"", "normal", "bogus"} {
		if got := ParseOverwritePolicy(in); got != OverwriteNormal {
			t.Errorf("ParseOverwritePolicy(%q) = %v, want normal", in, got)
		}
	}
}

func TestRecordData_ForEvent(t *testing.T) {
	data := RecordData{
		{EventNameField: "baseline_arm_1", "age": "10"},
		{EventNameField: "followup_arm_1", "age": "11"},
	}
	r, ok := data.ForEvent("followup_arm_1")
	if !ok || r["age"] != "11" {
		t.Errorf("ForEvent(followup_arm_1) = %v, %v", r, ok)
	}
	if _, ok := data.ForEvent("missing"); ok {
		t.Error("ForEvent(missing) = true, want false")
	}
	if first, _ := data.First(); first.Event() != "baseline_arm_1" {
		t.Errorf("First().Event() = %q", first.Event())
	}
}

func TestRunID(t *testing.T) {
	id := NewRunID()
	if _, err := ParseRunID(string(id)); err != nil {
		t.Fatalf("ParseRunID(NewRunID()) error = %v", err)
	}
	if RunIDTime(id).IsZero() {
		t.Error("RunIDTime() is zero for a fresh UUIDv7")
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Error("ParseRunID(not-a-uuid) error = nil, want error")
	}
}
