package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bcchr/detbuilder/internal/core/db"
	"github.com/bcchr/detbuilder/internal/types"
)

// completeSuffix names the status field every instrument carries.
const completeSuffix = "_complete"

// Project is a project row.
type Project struct {
	ID            types.ProjectID `db:"project_id" json:"project_id" yaml:"project_id"`
	Title         string          `db:"title" json:"title" yaml:"title"`
	RecordIDField string          `db:"record_id_field" json:"record_id_field" yaml:"record_id_field"`
	Longitudinal  bool            `db:"longitudinal" json:"longitudinal" yaml:"longitudinal"`
	NextRecordID  int64           `db:"next_record_id" json:"-" yaml:"-"`
}

// ProjectDefinition is the importable description of a project's data
// dictionary and events.
type ProjectDefinition struct {
	Project `yaml:",inline"`
	Events  []string      `json:"events" yaml:"events"`
	Fields  []types.Field `json:"fields" yaml:"fields"`
}

// ProjectMetadata answers structural questions about a project. It
// implements logic.Metadata.
type ProjectMetadata struct {
	Project
	Events []string
	Fields []types.Field

	fields map[string]types.Field
	events map[string]bool
	forms  []string
}

func newProjectMetadata(p Project, events []string, fields []types.Field) *ProjectMetadata {
	m := &ProjectMetadata{
		Project: p,
		Events:  events,
		Fields:  fields,
		fields:  make(map[string]types.Field, len(fields)),
		events:  make(map[string]bool, len(events)),
	}
	seen := map[string]bool{}
	for _, f := range fields {
		m.fields[f.Name] = f
		if !seen[f.Form] {
			seen[f.Form] = true
			m.forms = append(m.forms, f.Form)
		}
	}
	for _, e := range events {
		m.events[e] = true
	}
	return m
}

// HasField reports whether name is a field of the project, including the
// record id field and the implicit "<form>_complete" status fields.
func (m *ProjectMetadata) HasField(name string) bool {
	if name == m.RecordIDField {
		return true
	}
	if _, ok := m.fields[name]; ok {
		return true
	}
	if form, ok := strings.CutSuffix(name, completeSuffix); ok {
		return m.HasInstrument(form)
	}
	return false
}

// HasEvent reports whether name is an event of the project.
func (m *ProjectMetadata) HasEvent(name string) bool {
	return m.events[name]
}

// HasInstrument reports whether the project has a form named name.
func (m *ProjectMetadata) HasInstrument(name string) bool {
	for _, f := range m.forms {
		if f == name {
			return true
		}
	}
	return false
}

// Field returns the dictionary entry for name.
func (m *ProjectMetadata) Field(name string) (types.Field, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// Instruments lists forms in dictionary order.
func (m *ProjectMetadata) Instruments() []string {
	return append([]string(nil), m.forms...)
}

// InstrumentFields returns the form's fields in order followed by its
// status field.
func (m *ProjectMetadata) InstrumentFields(form string) []string {
	var out []string
	for _, f := range m.Fields {
		if f.Form == form {
			out = append(out, f.Name)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return append(out, form+completeSuffix)
}

// PipeableFields lists fields data can be copied into or out of: every
// field except descriptive and calc fields, plus each form's status field.
func (m *ProjectMetadata) PipeableFields() []string {
	var out []string
	for i, f := range m.Fields {
		if f.Pipeable() {
			out = append(out, f.Name)
		}
		if i == len(m.Fields)-1 || m.Fields[i+1].Form != f.Form {
			out = append(out, f.Form+completeSuffix)
		}
	}
	return out
}

// DefaultEvent is the first event of the project.
func (m *ProjectMetadata) DefaultEvent() string {
	if len(m.Events) == 0 {
		return types.DefaultEventName
	}
	return m.Events[0]
}

// UpsertProject creates or replaces a project's definition. Events default
// to the store's default event; record data is left untouched.
func (s *Store) UpsertProject(ctx context.Context, def ProjectDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("project id is required")
	}
	if def.RecordIDField == "" {
		def.RecordIDField = "record_id"
	}
	events := def.Events
	if len(events) == 0 {
		events = []string{s.defaultEvent}
	}
	if !def.Longitudinal && len(events) > 1 {
		return fmt.Errorf("project %s: classic projects have exactly one event, got %d", def.ID, len(events))
	}

	return s.withTx(ctx, func(q *db.Queries) error {
		if _, err := q.Exec(ctx, "upsert-project", def.ID, def.Title, def.RecordIDField, def.Longitudinal, s.timestamp()); err != nil {
			return fmt.Errorf("upsert project %s: %w", def.ID, err)
		}

		if _, err := q.Exec(ctx, "delete-project-events", def.ID); err != nil {
			return err
		}
		for i, e := range events {
			if _, err := q.Exec(ctx, "insert-project-event", def.ID, e, i); err != nil {
				return fmt.Errorf("insert event %s: %w", e, err)
			}
		}

		if _, err := q.Exec(ctx, "delete-project-fields", def.ID); err != nil {
			return err
		}
		for i, f := range def.Fields {
			fieldType := f.Type
			if fieldType == "" {
				fieldType = "text"
			}
			if _, err := q.Exec(ctx, "insert-project-field", def.ID, f.Name, f.Form, fieldType, i); err != nil {
				return fmt.Errorf("insert field %s: %w", f.Name, err)
			}
		}
		return nil
	})
}

// GetProject returns the project row.
func (s *Store) GetProject(ctx context.Context, id types.ProjectID) (Project, error) {
	var p Project
	err := s.q.Get(ctx, "get-project", &p, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("%w: %s", types.ErrProjectNotFound, id)
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := s.q.Select(ctx, "list-projects", &out); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// LoadMetadata reads a project's events and data dictionary.
func (s *Store) LoadMetadata(ctx context.Context, id types.ProjectID) (*ProjectMetadata, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	var events []string
	if err := s.q.Select(ctx, "list-project-events", &events, id); err != nil {
		return nil, fmt.Errorf("list events of %s: %w", id, err)
	}
	var fields []types.Field
	if err := s.q.Select(ctx, "list-project-fields", &fields, id); err != nil {
		return nil, fmt.Errorf("list fields of %s: %w", id, err)
	}
	return newProjectMetadata(p, events, fields), nil
}

// RecordIDField returns the project's identifier field.
func (s *Store) RecordIDField(ctx context.Context, project types.ProjectID) (string, error) {
	p, err := s.GetProject(ctx, project)
	if err != nil {
		return "", err
	}
	return p.RecordIDField, nil
}

// DefaultEvent returns the project's first event.
func (s *Store) DefaultEvent(ctx context.Context, project types.ProjectID) (string, error) {
	var events []string
	if err := s.q.Select(ctx, "list-project-events", &events, project); err != nil {
		return "", fmt.Errorf("list events of %s: %w", project, err)
	}
	if len(events) == 0 {
		return s.defaultEvent, nil
	}
	return events[0], nil
}

// GetFieldsOfInstrument returns the instrument's fields in dictionary order,
// followed by its status field.
func (s *Store) GetFieldsOfInstrument(ctx context.Context, project types.ProjectID, instrument string) ([]string, error) {
	var fields []string
	if err := s.q.Select(ctx, "list-instrument-fields", &fields, project, instrument); err != nil {
		return nil, fmt.Errorf("list fields of %s: %w", instrument, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s in project %s", types.ErrInstrumentNotFound, instrument, project)
	}
	return append(fields, instrument+completeSuffix), nil
}
