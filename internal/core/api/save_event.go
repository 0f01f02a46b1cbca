package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcchr/detbuilder/internal/core/logging"
	"github.com/bcchr/detbuilder/internal/core/metrics"
	"github.com/bcchr/detbuilder/internal/routing"
	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Save-record hook.
 *
 * Called after a record in a source project is saved. Pipeline:
 *   1. Load the project's DET settings (none: nothing to do)
 *   2. Read the record's data across all events
 *   3. Route: evaluate triggers, assemble destination records, resolve the
 *      destination record id
 *   4. Save into the destination project under the configured overwrite
 *      policy
 *   5. Audit: per-trigger failures, skips and the itemised save outcome
 *
 * Save outcome audit entries:
 *   errors present     -> "DET: Errors" (source project)
 *   otherwise          -> "DET: Ran successfully" (source project)
 *   warnings present   -> "DET: Ran successfully with Warnings" (source)
 *   ids present        -> "DET: Modified/Saved the following records"
 *                         (destination project)
 */

// SaveEvent identifies the record save that fired the hook.
type SaveEvent struct {
	Project    types.ProjectID `json:"project_id"`
	Record     types.RecordID  `json:"record"`
	Event      string          `json:"event,omitempty"`
	Instrument string          `json:"instrument,omitempty"`
}

// Outcome summarises one run of the hook.
type Outcome struct {
	RunID       types.RunID      `json:"run_id"`
	Status      string           `json:"status"`
	DestProject types.ProjectID  `json:"dest_project,omitempty"`
	DestRecord  types.RecordID   `json:"dest_record,omitempty"`
	Created     bool             `json:"created,omitempty"`
	Fired       []int            `json:"fired"`
	Failures    []string         `json:"failures,omitempty"`
	Skipped     string           `json:"skipped,omitempty"`
	Records     []types.Record   `json:"records,omitempty"`
	Save        types.SaveResult `json:"save"`
	Log         []types.LogEvent `json:"log,omitempty"`
}

// HandleSave runs the DET for one saved record.
func (s *Service) HandleSave(ctx context.Context, ev SaveEvent) (*Outcome, error) {
	if ev.Project == "" || ev.Record == "" {
		return nil, fmt.Errorf("%w: project and record are required", types.ErrInvalidArgument)
	}

	out := &Outcome{RunID: types.NewRunID()}
	logger := logging.WithRecord(s.logger, ev.Project, ev.Record, ev.Event).With("run", string(out.RunID))

	settings, _, err := s.store.GetSettings(ctx, ev.Project)
	if errors.Is(err, types.ErrSettingsNotFound) {
		out.Status = metrics.OutcomeNoConfig
		s.metrics.RoutingOutcome(out.Status)
		logger.Debug("project has no DET settings")
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	meta, err := s.store.LoadMetadata(ctx, ev.Project)
	if err != nil {
		return nil, err
	}
	data, err := s.store.GetRecordData(ctx, ev.Project, ev.Record, nil, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.router.Route(ctx, routing.Request{
		Project:      ev.Project,
		Record:       ev.Record,
		Data:         data,
		Longitudinal: meta.Longitudinal,
		Settings:     settings,
	})
	if err != nil {
		s.metrics.RoutingOutcome(metrics.OutcomeFailed)
		s.audit(ctx, out.RunID, sourceEntry(ev, MsgErrors, jsonString([]string{err.Error()})))
		logger.Error("routing failed", "error", err)
		return nil, err
	}

	out.DestProject = res.DestProject
	out.Fired = res.Fired
	s.metrics.TriggersFired(string(ev.Project), len(res.Fired))

	for _, f := range res.Failures {
		out.Failures = append(out.Failures, f.Error())
		out.Log = append(out.Log, s.audit(ctx, out.RunID, sourceEntry(ev, MsgTriggerFailed, f.Error())))
	}

	switch {
	case res.Skipped != "":
		out.Status = metrics.OutcomeSkipped
		out.Skipped = res.Skipped
		out.Log = append(out.Log, s.audit(ctx, out.RunID, sourceEntry(ev, MsgSkipped, res.Skipped)))
		s.metrics.RoutingOutcome(out.Status)
		logger.Info("destination record not created", "reason", res.Skipped)
		return out, nil
	case res.Empty():
		out.Status = metrics.OutcomeNoop
		s.metrics.RoutingOutcome(out.Status)
		logger.Debug("no trigger fired")
		return out, nil
	}

	out.DestRecord = res.RecordID
	out.Created = res.Created
	out.Records = res.Records

	save, err := s.store.SaveRecords(ctx, res.DestProject, res.Records, settings.Overwrite())
	if err != nil {
		s.metrics.RoutingOutcome(metrics.OutcomeFailed)
		s.audit(ctx, out.RunID, sourceEntry(ev, MsgErrors, jsonString([]string{err.Error()})))
		logger.Error("save to destination failed", "dest_project", res.DestProject, "error", err)
		return nil, fmt.Errorf("save to project %s: %w", res.DestProject, err)
	}
	out.Save = save
	s.metrics.RecordsSaved(string(res.DestProject), len(save.IDs), len(save.Errors))

	if len(save.Errors) > 0 {
		out.Status = metrics.OutcomeFailed
		out.Log = append(out.Log, s.audit(ctx, out.RunID, sourceEntry(ev, MsgErrors, jsonString(save.Errors))))
	} else {
		out.Status = metrics.OutcomeSaved
		details := fmt.Sprintf("Data was successfully imported from project %s to project %s", ev.Project, res.DestProject)
		out.Log = append(out.Log, s.audit(ctx, out.RunID, sourceEntry(ev, MsgSuccess, details)))
	}
	if len(save.Warnings) > 0 {
		out.Log = append(out.Log, s.audit(ctx, out.RunID, sourceEntry(ev, MsgWarnings, jsonString(save.Warnings))))
	}
	if len(save.IDs) > 0 {
		out.Log = append(out.Log, s.audit(ctx, out.RunID, types.LogEvent{
			ProjectID:   res.DestProject,
			Description: MsgSaved,
			Details:     jsonString(save.IDs),
		}))
	}

	s.metrics.RoutingOutcome(out.Status)
	logger.Info("DET run complete",
		"status", out.Status,
		"dest_project", res.DestProject,
		"dest_record", res.RecordID,
		"fired", len(res.Fired),
	)
	return out, nil
}

func sourceEntry(ev SaveEvent, desc, details string) types.LogEvent {
	return types.LogEvent{
		ProjectID:   ev.Project,
		RecordID:    ev.Record,
		EventName:   ev.Event,
		Description: desc,
		Details:     details,
	}
}
