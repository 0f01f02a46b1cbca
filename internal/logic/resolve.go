// internal/logic/resolve.go
package logic

import (
	"fmt"

	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Field address resolution.
 *
 * Resolves a clause's [event][field] or [field] reference against a
 * record's per-event data.
 *
 * Addressing rules:
 *   - Classic projects hold a single event: the first record is used and
 *     any event qualifier is ignored.
 *   - Longitudinal projects look the event up by its unique name among the
 *     per-event records; an unqualified field reads the first event.
 *
 * A missing event or field is an error (ErrEventNotFound /
 * ErrFieldNotFound), never an implicit blank: the caller decides whether
 * that fails the trigger.
 */

// ResolveResult contains the resolved value and where it was read.
type ResolveResult struct {
	Value string
	Event string
	Found bool
}

// Resolve reads the clause's field from data.
func Resolve(c Clause, data types.RecordData, longitudinal bool) (ResolveResult, error) {
	rec, err := eventRecord(c.Event, data, longitudinal)
	if err != nil {
		return ResolveResult{}, err
	}

	v, ok := rec[c.Field]
	if !ok {
		return ResolveResult{Event: rec.Event()}, fmt.Errorf("%w: %s", types.ErrFieldNotFound, c.Field)
	}
	return ResolveResult{Value: v, Event: rec.Event(), Found: true}, nil
}

func eventRecord(event string, data types.RecordData, longitudinal bool) (types.Record, error) {
	first, ok := data.First()
	if !ok {
		return nil, types.ErrNoRecordData
	}
	if !longitudinal || event == "" {
		return first, nil
	}
	rec, ok := data.ForEvent(event)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrEventNotFound, event)
	}
	return rec, nil
}
