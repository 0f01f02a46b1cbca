package api

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bcchr/detbuilder/internal/types"
)

// Audit log descriptions.
const (
	MsgErrors        = "DET: Errors"
	MsgSuccess       = "DET: Ran successfully"
	MsgWarnings      = "DET: Ran successfully with Warnings"
	MsgSaved         = "DET: Modified/Saved the following records"
	MsgTriggerFailed = "DET: Trigger failed"
	MsgSkipped       = "DET: Skipped"
)

type auditLine struct {
	RunID types.RunID `json:"run_id"`
	types.LogEvent
}

// audit appends an entry to the DET event log and mirrors it to the daily
// JSONL file. Failures are logged, never returned: the save they describe
// has already happened.
func (s *Service) audit(ctx context.Context, run types.RunID, ev types.LogEvent) types.LogEvent {
	if err := s.store.AppendLogEvent(ctx, &ev); err != nil {
		s.logger.Warn("failed to append audit entry",
			"project", ev.ProjectID,
			"description", ev.Description,
			"error", err,
		)
	}
	s.mirror(run, ev)
	return ev
}

// mirror writes ev to <data_dir>/audit/YYYY-MM-DD.jsonl. Best effort; the
// database log is authoritative.
func (s *Service) mirror(run types.RunID, ev types.LogEvent) {
	if s.auditDir == "" {
		return
	}
	filename := filepath.Join(s.auditDir, s.now().Format("2006-01-02.jsonl"))
	mu := s.getJSONLMutex(filename)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Debug("audit mirror unavailable", "file", filename, "error", err)
		return
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(auditLine{RunID: run, LogEvent: ev}); err != nil {
		s.logger.Debug("audit mirror write failed", "file", filename, "error", err)
	}
}

// AuditLog returns the project's most recent audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, project types.ProjectID, limit int) ([]types.LogEvent, error) {
	return s.store.ListLogEvents(ctx, project, limit)
}

func jsonString(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
