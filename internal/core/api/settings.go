package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bcchr/detbuilder/internal/logic"
	"github.com/bcchr/detbuilder/internal/types"
)

// GetSettings returns the project's DET settings and their ETag.
func (s *Service) GetSettings(ctx context.Context, project types.ProjectID) (*types.Settings, string, error) {
	return s.store.GetSettings(ctx, project)
}

// PutSettings validates and stores settings, returning the new ETag.
//
// Parallel arrays must be aligned, the destination project must exist and
// every trigger (and the create-record condition) must pass syntax
// validation against the source project. A non-empty ifMatch must equal
// the stored ETag.
func (s *Service) PutSettings(ctx context.Context, project types.ProjectID, settings *types.Settings, ifMatch string) (string, error) {
	if settings == nil {
		return "", fmt.Errorf("%w: settings required", types.ErrInvalidArgument)
	}
	if err := settings.Validate(); err != nil {
		return "", err
	}

	meta, err := s.store.LoadMetadata(ctx, project)
	if err != nil {
		return "", err
	}
	if _, err := s.store.GetProject(ctx, settings.DestProject); err != nil {
		return "", fmt.Errorf("destination: %w", err)
	}

	var defects []string
	for i, cond := range settings.Triggers {
		for _, m := range logic.Messages(logic.ValidateSyntax(cond, meta)) {
			defects = append(defects, fmt.Sprintf("trigger %d: %s", i, m))
		}
	}
	if settings.CreateRecordCond != "" {
		for _, m := range logic.Messages(logic.ValidateSyntax(settings.CreateRecordCond, meta)) {
			defects = append(defects, "create-record-cond: "+m)
		}
	}
	if len(defects) > 0 {
		return "", &ValidationError{Defects: defects}
	}

	if ifMatch != "" {
		_, current, err := s.store.GetSettings(ctx, project)
		switch {
		case errors.Is(err, types.ErrSettingsNotFound):
			return "", types.ErrSettingsConflict
		case err != nil:
			return "", err
		case current != ifMatch:
			return "", types.ErrSettingsConflict
		}
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	etag := computeETag(raw)
	if err := s.store.PutSettings(ctx, project, settings, etag); err != nil {
		return "", err
	}
	s.logger.Info("settings stored", "project", project, "dest_project", settings.DestProject, "etag", etag)
	return etag, nil
}

// computeETag is content-addressable: equal settings always hash equal.
func computeETag(raw []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}
