package routing

import (
	"context"
	"fmt"

	"github.com/bcchr/detbuilder/internal/types"
)

// fakeHost is an in-memory Host for routing tests.
type fakeHost struct {
	instruments  map[string][]string
	data         types.RecordData
	idField      string // destination record id field
	srcIDField   string // added to every GetRecordData row, as the store does
	defaultEvent string
	existing     map[string][]types.RecordID // "field=value" -> ids
	next         int

	fieldsErr error
	minted    []types.RecordID
	saved     []types.Record
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		instruments:  map[string][]string{},
		idField:      "record_id",
		srcIDField:   "record_id",
		defaultEvent: types.DefaultEventName,
		existing:     map[string][]types.RecordID{},
		next:         1,
	}
}

func (h *fakeHost) GetFieldsOfInstrument(_ context.Context, _ types.ProjectID, instrument string) ([]string, error) {
	if h.fieldsErr != nil {
		return nil, h.fieldsErr
	}
	fields, ok := h.instruments[instrument]
	if !ok {
		return nil, fmt.Errorf("unknown instrument %s", instrument)
	}
	return fields, nil
}

func (h *fakeHost) GetRecordData(_ context.Context, _ types.ProjectID, record types.RecordID, fields, events []string) (types.RecordData, error) {
	var out types.RecordData
	for _, rec := range h.data {
		if len(events) > 0 && !contains(events, rec.Event()) {
			continue
		}
		row := types.Record{
			types.EventNameField: rec.Event(),
			h.srcIDField:         string(record),
		}
		for _, f := range fields {
			if v, ok := rec[f]; ok {
				row[f] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (h *fakeHost) RecordIDField(context.Context, types.ProjectID) (string, error) {
	return h.idField, nil
}

func (h *fakeHost) MintRecordID(context.Context, types.ProjectID) (types.RecordID, error) {
	id := types.RecordID(fmt.Sprint(h.next))
	h.next++
	h.minted = append(h.minted, id)
	return id, nil
}

func (h *fakeHost) FindRecordsByFieldValue(_ context.Context, _ types.ProjectID, field, value, _ string) ([]types.RecordID, error) {
	return h.existing[field+"="+value], nil
}

func (h *fakeHost) SaveRecords(_ context.Context, _ types.ProjectID, records []types.Record, _ types.OverwritePolicy) (types.SaveResult, error) {
	h.saved = append(h.saved, records...)
	return types.SaveResult{}, nil
}

func (h *fakeHost) DefaultEvent(context.Context, types.ProjectID) (string, error) {
	return h.defaultEvent, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
