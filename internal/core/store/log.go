package store

import (
	"context"
	"fmt"

	"github.com/bcchr/detbuilder/internal/types"
)

// DefaultLogLimit caps ListLogEvents when no limit is given.
const DefaultLogLimit = 100

// AppendLogEvent inserts an entry into the append-only DET event log,
// assigning LogID and CreatedAt when unset.
func (s *Store) AppendLogEvent(ctx context.Context, ev *types.LogEvent) error {
	if ev.LogID == "" {
		ev.LogID = types.NewLogID()
	}
	if ev.CreatedAt == "" {
		ev.CreatedAt = s.timestamp()
	}
	_, err := s.q.Exec(ctx, "insert-log-event",
		ev.LogID, ev.ProjectID, ev.RecordID, ev.EventName, ev.Description, ev.Details, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append log event: %w", err)
	}
	return nil
}

// ListLogEvents returns the project's most recent log entries, newest first.
func (s *Store) ListLogEvents(ctx context.Context, project types.ProjectID, limit int) ([]types.LogEvent, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	var out []types.LogEvent
	if err := s.q.Select(ctx, "list-log-events", &out, project, limit); err != nil {
		return nil, fmt.Errorf("list log events of %s: %w", project, err)
	}
	return out, nil
}
