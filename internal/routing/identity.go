// internal/routing/identity.go
package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcchr/detbuilder/internal/logic"
	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Destination identity.
 *
 * The destination record is found through the linking field:
 *
 *   - link dest field IS the destination identifier field: the source link
 *     value is the destination record id.
 *   - otherwise the link value is written into the link field (at the link
 *     dest event, or the default event) and the destination is searched
 *     for it: no match mints a new autonumbered record, one match reuses
 *     it, more than one is ErrAmbiguousLink.
 *
 * When a create-record condition is configured and no destination record
 * exists yet, a record is only created if the condition holds against the
 * source data; otherwise the save is skipped.
 */

type identity struct {
	field   string
	record  types.RecordID
	created bool
}

// skipError ends routing without saving; it is not a failure.
type skipError struct {
	reason string
}

func (e *skipError) Error() string {
	return "skipped: " + e.reason
}

func (r *Router) resolveIdentity(ctx context.Context, req Request, set *RecordSet, defaultEvent string) (identity, error) {
	settings := req.Settings
	link := settings.Link()
	destProject := settings.DestProject

	idField, err := r.dest.RecordIDField(ctx, destProject)
	if err != nil {
		return identity{}, fmt.Errorf("record id field of %s: %w", destProject, err)
	}

	value, err := linkValue(req.Data, link)
	if err != nil {
		return identity{}, err
	}

	if idField == link.DestField {
		matches, err := r.dest.FindRecordsByFieldValue(ctx, destProject, idField, value, "")
		if err != nil {
			return identity{}, fmt.Errorf("find %s=%s: %w", idField, value, err)
		}
		if len(matches) == 0 {
			if err := r.mayCreate(req); err != nil {
				return identity{}, err
			}
		}
		return identity{field: idField, record: types.RecordID(value), created: len(matches) == 0}, nil
	}

	set.Set(orDefault(link.DestEvent, defaultEvent), link.DestField, value)

	matches, err := r.dest.FindRecordsByFieldValue(ctx, destProject, link.DestField, value, link.DestEvent)
	if err != nil {
		return identity{}, fmt.Errorf("find %s=%s: %w", link.DestField, value, err)
	}

	switch len(matches) {
	case 0:
		if err := r.mayCreate(req); err != nil {
			return identity{}, err
		}
		id, err := r.dest.MintRecordID(ctx, destProject)
		if err != nil {
			return identity{}, fmt.Errorf("mint record in %s: %w", destProject, err)
		}
		return identity{field: idField, record: id, created: true}, nil
	case 1:
		return identity{field: idField, record: matches[0]}, nil
	default:
		return identity{}, fmt.Errorf("%w: %s=%s matches %d records", types.ErrAmbiguousLink, link.DestField, value, len(matches))
	}
}

// mayCreate applies the create-record condition.
func (r *Router) mayCreate(req Request) error {
	cond := strings.TrimSpace(req.Settings.CreateRecordCond)
	if cond == "" {
		return nil
	}
	ok, err := r.engine.EvaluateTrigger(cond, req.Data, logic.Options{Longitudinal: req.Longitudinal})
	if err != nil {
		return &skipError{reason: fmt.Sprintf("create-record condition could not be evaluated: %v", err)}
	}
	if !ok {
		return &skipError{reason: "create-record condition not met"}
	}
	return nil
}

func linkValue(data types.RecordData, link types.Link) (string, error) {
	rec, ok := data.First()
	if !ok {
		return "", types.ErrNoRecordData
	}
	if link.SourceEvent != "" {
		rec, ok = data.ForEvent(link.SourceEvent)
		if !ok {
			return "", fmt.Errorf("link source: %w: %s", types.ErrEventNotFound, link.SourceEvent)
		}
	}
	value := strings.TrimSpace(rec[link.SourceField])
	if value == "" {
		return "", fmt.Errorf("%w: %s", types.ErrMissingLinkValue, link.SourceField)
	}
	return value, nil
}
