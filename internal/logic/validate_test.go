// internal/logic/validate_test.go
package logic

import (
	"strings"
	"testing"
)

type fakeMetadata struct {
	fields      map[string]bool
	events      map[string]bool
	instruments map[string]bool
}

func (m fakeMetadata) HasField(name string) bool      { return m.fields[name] }
func (m fakeMetadata) HasEvent(name string) bool      { return m.events[name] }
func (m fakeMetadata) HasInstrument(name string) bool { return m.instruments[name] }

var testMeta = fakeMetadata{
	fields:      map[string]bool{"age": true, "gender": true, "record_id": true},
	events:      map[string]bool{"event_1_arm_1": true, "event_2_arm_1": true},
	instruments: map[string]bool{"demographics": true},
}

func TestValidateSyntax(t *testing.T) {
	tests := []struct {
		name        string
		cond        string
		wantDefects int
		wantMessage string // substring of the first defect, when set
	}{
		{
			name:        "valid conjunction",
			cond:        "[age] > 5 && [gender] = 'M'",
			wantDefects: 0,
		},
		{
			name:        "trailing operator",
			cond:        "[age] >",
			wantDefects: 1,
			wantMessage: "as the last part",
		},
		{
			name:        "open parens only",
			cond:        "((",
			wantDefects: 1,
			wantMessage: "Odd number of parenthesis",
		},
		{
			name:        "event qualified and grouped",
			cond:        "([event_2_arm_1][age] >= 18) || [demographics_complete] = '2'",
			wantDefects: 0,
		},
		{
			name:        "unknown field",
			cond:        "[weight] > 5",
			wantDefects: 1,
			wantMessage: "weight is not a valid event/field",
		},
		{
			name:        "unknown instrument status",
			cond:        "[labs_complete] = '2'",
			wantDefects: 1,
			wantMessage: "labs_complete",
		},
		{
			name:        "leading operator",
			cond:        "= 5",
			wantDefects: 1,
			wantMessage: "as the first part",
		},
		{
			name:        "logical operator last",
			cond:        "[age] > 5 &&",
			wantDefects: 1,
			wantMessage: "logical operator && as the last part",
		},
		{
			name:        "comparison against field",
			cond:        "[age] > [gender]",
			wantDefects: 1,
			wantMessage: "Invalid [ after >",
		},
		{
			name:        "unbalanced square brackets",
			cond:        "[age > 5",
			wantDefects: 1,
			wantMessage: "Odd number of square brackets",
		},
		{
			name:        "unbalanced quotes",
			cond:        "[gender] = 'M",
			wantDefects: 1,
			wantMessage: "Unbalanced quotes",
		},
		{
			name:        "function call",
			cond:        "[age] > 5 && ([age], [gender])",
			wantDefects: 2,
		},
		{
			name:        "logical followed by literal",
			cond:        "[age] > 5 || 6",
			wantDefects: 1,
			wantMessage: "Invalid 6 after ||",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSyntax(tt.cond, testMeta)
			if len(got) != tt.wantDefects {
				t.Fatalf("ValidateSyntax(%q) = %d defects %q, want %d", tt.cond, len(got), Messages(got), tt.wantDefects)
			}
			if tt.wantMessage != "" && !strings.Contains(got[0].Message, tt.wantMessage) {
				t.Errorf("ValidateSyntax(%q) first defect = %q, want it to contain %q", tt.cond, got[0].Message, tt.wantMessage)
			}
		})
	}
}

func TestValidate_NilMetadataSkipsLookups(t *testing.T) {
	if got := Validate(Tokenize("[anything] = 1"), nil); len(got) != 0 {
		t.Errorf("Validate() = %q, want no defects", Messages(got))
	}
}

func TestValidate_ReportsAllDefects(t *testing.T) {
	got := ValidateSyntax("&& [nope] >", testMeta)
	if len(got) < 3 {
		t.Fatalf("ValidateSyntax() = %q, want at least 3 defects", Messages(got))
	}
	for _, d := range got {
		if d.Index < 0 {
			continue
		}
		if d.Token == "" {
			t.Errorf("defect %q has no token", d.Message)
		}
	}
}
