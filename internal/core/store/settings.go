package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bcchr/detbuilder/internal/types"
)

type settingsRow struct {
	ProjectID types.ProjectID `db:"project_id"`
	Settings  string          `db:"settings"`
	ETag      string          `db:"etag"`
	UpdatedAt string          `db:"updated_at"`
}

// GetSettings returns the project's DET settings and their stored ETag.
func (s *Store) GetSettings(ctx context.Context, project types.ProjectID) (*types.Settings, string, error) {
	var row settingsRow
	err := s.q.Get(ctx, "get-settings", &row, project)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %s", types.ErrSettingsNotFound, project)
	}
	if err != nil {
		return nil, "", fmt.Errorf("get settings of %s: %w", project, err)
	}

	var settings types.Settings
	if err := json.Unmarshal([]byte(row.Settings), &settings); err != nil {
		return nil, "", fmt.Errorf("decode settings of %s: %w", project, err)
	}
	return &settings, row.ETag, nil
}

// PutSettings stores settings for project under etag. The project must exist.
func (s *Store) PutSettings(ctx context.Context, project types.ProjectID, settings *types.Settings, etag string) error {
	if _, err := s.GetProject(ctx, project); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings of %s: %w", project, err)
	}
	if _, err := s.q.Exec(ctx, "upsert-settings", project, string(raw), etag, s.timestamp()); err != nil {
		return fmt.Errorf("store settings of %s: %w", project, err)
	}
	return nil
}

// ListConfiguredProjects returns projects that have DET settings.
func (s *Store) ListConfiguredProjects(ctx context.Context) ([]types.ProjectID, error) {
	var ids []types.ProjectID
	if err := s.q.Select(ctx, "list-settings-projects", &ids); err != nil {
		return nil, fmt.Errorf("list configured projects: %w", err)
	}
	return ids, nil
}
