package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/bcchr/detbuilder/internal/core/db"
	"github.com/bcchr/detbuilder/internal/types"
)

// maxMintAttempts bounds the search for a free autonumber when records were
// imported with explicit numeric ids.
const maxMintAttempts = 1000

type valueRow struct {
	Event string `db:"event_name"`
	Field string `db:"field_name"`
	Value string `db:"value"`
}

// GetRecordData returns one flat record per event that holds data for
// record, in project event order. Each row carries the record id field,
// redcap_event_name and the requested fields (all fields when fields is
// empty), blank when unset. events restricts the events returned.
func (s *Store) GetRecordData(ctx context.Context, project types.ProjectID, record types.RecordID, fields, events []string) (types.RecordData, error) {
	meta, err := s.LoadMetadata(ctx, project)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		for _, f := range meta.Fields {
			fields = append(fields, f.Name)
		}
		for _, form := range meta.Instruments() {
			fields = append(fields, form+completeSuffix)
		}
	}
	for _, f := range fields {
		if !meta.HasField(f) {
			return nil, fmt.Errorf("%w: %s in project %s", types.ErrFieldNotFound, f, project)
		}
	}

	var rows []valueRow
	if err := s.q.Select(ctx, "list-record-values", &rows, project, record); err != nil {
		return nil, fmt.Errorf("read record %s: %w", record, err)
	}
	stored := map[string]map[string]string{}
	for _, r := range rows {
		if stored[r.Event] == nil {
			stored[r.Event] = map[string]string{}
		}
		stored[r.Event][r.Field] = r.Value
	}

	wanted := map[string]bool{}
	for _, e := range events {
		wanted[e] = true
	}

	var out types.RecordData
	for _, event := range meta.Events {
		values, ok := stored[event]
		if !ok || (len(wanted) > 0 && !wanted[event]) {
			continue
		}
		rec := types.Record{
			meta.RecordIDField:   string(record),
			types.EventNameField: event,
		}
		for _, f := range fields {
			rec[f] = values[f]
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListRecordIDs returns every record id with data in the project.
func (s *Store) ListRecordIDs(ctx context.Context, project types.ProjectID) ([]types.RecordID, error) {
	var ids []types.RecordID
	if err := s.q.Select(ctx, "list-record-ids", &ids, project); err != nil {
		return nil, fmt.Errorf("list records of %s: %w", project, err)
	}
	return ids, nil
}

// FindRecordsByFieldValue returns records whose field holds value, limited
// to event when event is not empty.
func (s *Store) FindRecordsByFieldValue(ctx context.Context, project types.ProjectID, field, value, event string) ([]types.RecordID, error) {
	var ids []types.RecordID
	var err error
	if event == "" {
		err = s.q.Select(ctx, "find-records-by-value", &ids, project, field, value)
	} else {
		err = s.q.Select(ctx, "find-records-by-value-in-event", &ids, project, field, value, event)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s=%s in %s: %w", field, value, project, err)
	}
	return ids, nil
}

// MintRecordID reserves the next autonumbered record id. The counter is
// advanced atomically; ids already taken by imported records are skipped.
func (s *Store) MintRecordID(ctx context.Context, project types.ProjectID) (types.RecordID, error) {
	if _, err := s.GetProject(ctx, project); err != nil {
		return "", err
	}
	for i := 0; i < maxMintAttempts; i++ {
		var next int64
		if err := s.q.Get(ctx, "bump-next-record-id", &next, project); err != nil {
			return "", fmt.Errorf("mint record id in %s: %w", project, err)
		}
		id := types.RecordID(strconv.FormatInt(next, 10))

		var rows int
		if err := s.q.Get(ctx, "count-record-rows", &rows, project, id); err != nil {
			return "", fmt.Errorf("mint record id in %s: %w", project, err)
		}
		if rows == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("mint record id in %s: no free id after %d attempts", project, maxMintAttempts)
}

// SaveRecords writes flat records into the project.
//
// Each record must carry the project's id field. redcap_event_name may be
// omitted in classic projects. A record naming an unknown event or field is
// rejected with an entry in SaveResult.Errors while the others are saved;
// values for calc and descriptive fields are dropped with a warning. Under
// OverwriteNormal blank values are ignored, under OverwriteAll they erase.
func (s *Store) SaveRecords(ctx context.Context, project types.ProjectID, records []types.Record, policy types.OverwritePolicy) (types.SaveResult, error) {
	meta, err := s.LoadMetadata(ctx, project)
	if err != nil {
		return types.SaveResult{}, err
	}

	result := types.SaveResult{}
	saved := map[types.RecordID]bool{}
	now := s.timestamp()

	err = s.withTx(ctx, func(q *db.Queries) error {
		for i, rec := range records {
			id, event, problems := checkRecord(meta, rec)
			if len(problems) > 0 {
				for _, p := range problems {
					result.Errors = append(result.Errors, fmt.Sprintf("record %d: %s", i, p))
				}
				continue
			}

			for _, field := range sortedFields(rec) {
				if field == types.EventNameField {
					continue
				}
				if f, ok := meta.Field(field); ok && !f.Pipeable() {
					result.Warnings = append(result.Warnings, fmt.Sprintf("record %s: %s is a %s field and was not saved", id, field, f.Type))
					continue
				}
				value := rec[field]
				if value == "" {
					if policy != types.OverwriteAll {
						continue
					}
					if _, err := q.Exec(ctx, "delete-record-value", project, id, event, field); err != nil {
						return fmt.Errorf("erase %s of record %s: %w", field, id, err)
					}
					continue
				}
				if _, err := q.Exec(ctx, "upsert-record-value", project, id, event, field, value, now); err != nil {
					return fmt.Errorf("write %s of record %s: %w", field, id, err)
				}
			}

			if !saved[id] {
				saved[id] = true
				result.IDs = append(result.IDs, id)
			}
		}
		return nil
	})
	if err != nil {
		return types.SaveResult{}, err
	}
	return result, nil
}

// checkRecord validates one flat record against the project.
func checkRecord(meta *ProjectMetadata, rec types.Record) (types.RecordID, string, []string) {
	var problems []string

	id := rec[meta.RecordIDField]
	if id == "" {
		problems = append(problems, fmt.Sprintf("missing %s", meta.RecordIDField))
	}

	event := rec.Event()
	switch {
	case event == "" && !meta.Longitudinal:
		event = meta.DefaultEvent()
	case event == "":
		problems = append(problems, fmt.Sprintf("missing %s", types.EventNameField))
	case !meta.HasEvent(event):
		problems = append(problems, fmt.Sprintf("%s is not a valid event", event))
	}

	for _, field := range sortedFields(rec) {
		if field == types.EventNameField || field == meta.RecordIDField {
			continue
		}
		if !meta.HasField(field) {
			problems = append(problems, fmt.Sprintf("%s is not a valid field", field))
		}
	}
	return types.RecordID(id), event, problems
}

func sortedFields(rec types.Record) []string {
	out := make([]string, 0, len(rec))
	for k := range rec {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
