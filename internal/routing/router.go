// internal/routing/router.go
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcchr/detbuilder/internal/logic"
	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Trigger routing.
 *
 * For every trigger whose condition holds against the source record, the
 * trigger's mapping rules are applied to a fresh RecordSet in this order:
 *
 *   1. Field piping    source event (default: first source event) ->
 *                      dest event (default: destination default event)
 *   2. Constants       literal value -> dest event (same default)
 *   3. Instruments     every field of the instrument read at the source
 *                      event, merged into the same-named dest event
 *
 * Triggers run in configured order, so a later trigger's piping or
 * constant overwrites an earlier one. Instrument copies never overwrite.
 *
 * A trigger whose condition cannot be evaluated (malformed clause, missing
 * event or field) is recorded in Result.Failures and treated as not
 * satisfied. A trigger whose rules cannot be read from the host fails the
 * same way; its partial writes are discarded so each trigger applies
 * completely or not at all.
 *
 * Once all triggers ran, the destination identifier is resolved (see
 * identity.go) and injected into every event record.
 */

// Request is one save event to route.
type Request struct {
	Project      types.ProjectID
	Record       types.RecordID
	Data         types.RecordData
	Longitudinal bool
	Settings     *types.Settings
}

// TriggerFailure records a trigger that was skipped because it could not be
// evaluated or applied.
type TriggerFailure struct {
	Index     int
	Condition string
	Err       error
}

func (f TriggerFailure) Error() string {
	return fmt.Sprintf("trigger %d (%s): %v", f.Index, f.Condition, f.Err)
}

func (f TriggerFailure) Unwrap() error {
	return f.Err
}

// Result is the routing outcome for one save event.
type Result struct {
	DestProject types.ProjectID
	IDField     string
	RecordID    types.RecordID
	Created     bool // RecordID was minted for this save
	Records     []types.Record
	Fired       []int
	Failures    []TriggerFailure

	// Skipped explains why nothing is to be saved although triggers fired.
	Skipped string
}

// Empty reports whether there is nothing to save.
func (r *Result) Empty() bool {
	return len(r.Records) == 0
}

// Observer is notified of every trigger condition evaluation.
type Observer interface {
	ObserveEvaluation(matched bool, err error, elapsed time.Duration)
}

// Router applies trigger rules using the host collaborators.
type Router struct {
	source   Source
	dest     Destination
	events   EventResolver
	engine   *logic.Engine
	logger   *slog.Logger
	observer Observer
}

// NewRouter creates a router. A nil engine gets a default-sized cache; a
// nil logger discards.
func NewRouter(source Source, dest Destination, events EventResolver, engine *logic.Engine, logger *slog.Logger) (*Router, error) {
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if dest == nil {
		return nil, fmt.Errorf("destination cannot be nil")
	}
	if events == nil {
		return nil, fmt.Errorf("event resolver cannot be nil")
	}
	if engine == nil {
		engine = logic.NewEngine(logic.DefaultCacheSize)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{source: source, dest: dest, events: events, engine: engine, logger: logger}, nil
}

// NewHostRouter creates a router backed by a single host.
func NewHostRouter(host Host, engine *logic.Engine, logger *slog.Logger) (*Router, error) {
	if host == nil {
		return nil, fmt.Errorf("host cannot be nil")
	}
	return NewRouter(host, host, host, engine, logger)
}

// SetObserver installs o for evaluation callbacks. Not safe to call while
// routing.
func (r *Router) SetObserver(o Observer) {
	r.observer = o
}

// Engine returns the expression engine the router evaluates with.
func (r *Router) Engine() *logic.Engine {
	return r.engine
}

// Route expands the request's settings into triggers and routes them.
func (r *Router) Route(ctx context.Context, req Request) (*Result, error) {
	if req.Settings == nil {
		return nil, types.ErrSettingsNotFound
	}
	if req.Settings.DestProject == "" {
		return nil, types.ErrNoDestinationProject
	}
	triggers, err := req.Settings.ExpandTriggers()
	if err != nil {
		return nil, err
	}
	return r.RouteTriggers(ctx, req, triggers)
}

// RouteTriggers evaluates triggers against req.Data and builds the
// destination records. Result.Records is empty when no trigger fired.
func (r *Router) RouteTriggers(ctx context.Context, req Request, triggers []types.Trigger) (*Result, error) {
	if req.Settings == nil {
		return nil, types.ErrSettingsNotFound
	}
	destProject := req.Settings.DestProject
	res := &Result{DestProject: destProject}

	defaultEvent, err := r.defaultEvent(ctx, destProject)
	if err != nil {
		return nil, err
	}

	set := NewRecordSet()
	opts := logic.Options{Longitudinal: req.Longitudinal}
	for _, t := range triggers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, err := r.evaluate(t.Condition, req.Data, opts)
		if err != nil {
			r.fail(res, t, err)
			continue
		}
		if !ok {
			continue
		}

		writes, err := r.collect(ctx, req, t, defaultEvent)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.fail(res, t, err)
			continue
		}
		writes.apply(set)
		res.Fired = append(res.Fired, t.Index)
		r.logger.Debug("trigger fired",
			"project", req.Project,
			"record", req.Record,
			"trigger", t.Index,
		)
	}

	if set.Len() == 0 {
		return res, nil
	}

	id, err := r.resolveIdentity(ctx, req, set, defaultEvent)
	if err != nil {
		var skip *skipError
		if errors.As(err, &skip) {
			res.Skipped = skip.reason
			return res, nil
		}
		return nil, err
	}

	set.SetAll(id.field, string(id.record))
	res.IDField = id.field
	res.RecordID = id.record
	res.Created = id.created
	res.Records = set.Records()
	return res, nil
}

func (r *Router) evaluate(cond string, data types.RecordData, opts logic.Options) (bool, error) {
	start := time.Now()
	ok, err := r.engine.EvaluateTrigger(cond, data, opts)
	if r.observer != nil {
		r.observer.ObserveEvaluation(ok, err, time.Since(start))
	}
	return ok, err
}

func (r *Router) fail(res *Result, t types.Trigger, err error) {
	res.Failures = append(res.Failures, TriggerFailure{Index: t.Index, Condition: t.Condition, Err: err})
	r.logger.Warn("trigger failed",
		"trigger", t.Index,
		"error", err,
	)
}

func (r *Router) defaultEvent(ctx context.Context, project types.ProjectID) (string, error) {
	event, err := r.events.DefaultEvent(ctx, project)
	if err != nil {
		return "", fmt.Errorf("default event for %s: %w", project, err)
	}
	if event == "" {
		return types.DefaultEventName, nil
	}
	return event, nil
}

// write is one pending change to the record set.
type write struct {
	event string
	field string
	value string
	merge types.Record // instrument copy when non-nil
}

type writes []write

func (ws writes) apply(set *RecordSet) {
	for _, w := range ws {
		if w.merge != nil {
			set.Merge(w.event, w.merge)
			continue
		}
		set.Set(w.event, w.field, w.value)
	}
}

// collect reads everything trigger t writes, without touching the set.
func (r *Router) collect(ctx context.Context, req Request, t types.Trigger, defaultEvent string) (writes, error) {
	first, ok := req.Data.First()
	if !ok {
		return nil, types.ErrNoRecordData
	}
	firstEvent := first.Event()

	var ws writes
	for _, p := range t.Piping {
		src := first
		if p.SourceEvent != "" {
			rec, ok := req.Data.ForEvent(p.SourceEvent)
			if !ok {
				return nil, fmt.Errorf("piping %s: %w: %s", p.SourceField, types.ErrEventNotFound, p.SourceEvent)
			}
			src = rec
		}
		ws = append(ws, write{
			event: orDefault(p.DestEvent, defaultEvent),
			field: p.DestField,
			value: src[p.SourceField],
		})
	}

	for _, c := range t.Constants {
		ws = append(ws, write{
			event: orDefault(c.DestEvent, defaultEvent),
			field: c.DestField,
			value: c.Value,
		})
	}

	for _, in := range t.Instruments {
		srcEvent := orDefault(in.Event, firstEvent)
		data, err := r.instrumentData(ctx, req, in.Instrument, srcEvent)
		if err != nil {
			return nil, err
		}
		ws = append(ws, write{
			event: orDefault(in.Event, defaultEvent),
			merge: data,
		})
	}

	return ws, nil
}

func (r *Router) instrumentData(ctx context.Context, req Request, instrument, event string) (types.Record, error) {
	fields, err := r.source.GetFieldsOfInstrument(ctx, req.Project, instrument)
	if err != nil {
		return nil, fmt.Errorf("fields of %s: %w", instrument, err)
	}
	var events []string
	if event != "" {
		events = []string{event}
	}
	data, err := r.source.GetRecordData(ctx, req.Project, req.Record, fields, events)
	if err != nil {
		return nil, fmt.Errorf("data of %s: %w", instrument, err)
	}
	rec, ok := data.ForEvent(event)
	if !ok {
		rec, ok = data.First()
	}
	if !ok {
		// nothing entered on the instrument yet
		return types.Record{}, nil
	}
	// the host adds its record id field to every row; copy only the
	// instrument's own fields
	out := make(types.Record, len(fields))
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}

func orDefault(event, def string) string {
	if event == "" {
		return def
	}
	return event
}
