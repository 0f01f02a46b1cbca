// Package routing turns satisfied triggers into destination records.
//
// The router never talks to a database directly. Everything it needs from
// the host system (instrument field lists, record data, identifier
// minting, link lookups, default events) comes through the collaborator
// interfaces below, so the engine can be driven by the SQL store, by the
// gRPC service or by in-memory fakes in tests.
package routing

import (
	"context"

	"github.com/bcchr/detbuilder/internal/types"
)

// Source reads from the project whose save fired the triggers.
type Source interface {
	// GetFieldsOfInstrument returns the instrument's fields in project order.
	GetFieldsOfInstrument(ctx context.Context, project types.ProjectID, instrument string) ([]string, error)

	// GetRecordData returns one flat record per event. Empty fields or
	// events mean all of them.
	GetRecordData(ctx context.Context, project types.ProjectID, record types.RecordID, fields, events []string) (types.RecordData, error)
}

// Destination owns identifiers in the target project and accepts saves.
type Destination interface {
	RecordIDField(ctx context.Context, project types.ProjectID) (string, error)
	MintRecordID(ctx context.Context, project types.ProjectID) (types.RecordID, error)

	// FindRecordsByFieldValue returns records whose field equals value,
	// restricted to event when event is not empty.
	FindRecordsByFieldValue(ctx context.Context, project types.ProjectID, field, value, event string) ([]types.RecordID, error)

	SaveRecords(ctx context.Context, project types.ProjectID, records []types.Record, policy types.OverwritePolicy) (types.SaveResult, error)
}

// EventResolver supplies the event unqualified destination writes land in.
type EventResolver interface {
	DefaultEvent(ctx context.Context, project types.ProjectID) (string, error)
}

// Host bundles the collaborators a single backend usually provides.
type Host interface {
	Source
	Destination
	EventResolver
}
