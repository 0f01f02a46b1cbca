package api

import (
	"context"
	"fmt"
	"time"

	"github.com/bcchr/detbuilder/internal/logic"
	"github.com/bcchr/detbuilder/internal/types"
)

// ProjectInfo is what the settings form needs to offer field and event
// choices.
type ProjectInfo struct {
	ID            types.ProjectID `json:"project_id"`
	Title         string          `json:"title"`
	RecordIDField string          `json:"record_id_field"`
	Longitudinal  bool            `json:"longitudinal"`
	Fields        []string        `json:"fields"`
	Events        []string        `json:"events"`
	Instruments   []string        `json:"instruments"`
}

// ValidateSyntax returns the defects of cond; empty means valid. An empty
// project skips field and event lookups.
func (s *Service) ValidateSyntax(ctx context.Context, project types.ProjectID, cond string) ([]string, error) {
	var meta logic.Metadata
	if project != "" {
		m, err := s.store.LoadMetadata(ctx, project)
		if err != nil {
			return nil, err
		}
		meta = m
	}
	return logic.Messages(logic.ValidateSyntax(cond, meta)), nil
}

// EvaluateTrigger evaluates cond against a stored record.
func (s *Service) EvaluateTrigger(ctx context.Context, project types.ProjectID, record types.RecordID, cond string) (bool, error) {
	res, err := s.Explain(ctx, project, record, cond)
	if err != nil {
		return false, err
	}
	return res.Matched, nil
}

// Explain evaluates cond against a stored record and returns the
// per-clause trace.
func (s *Service) Explain(ctx context.Context, project types.ProjectID, record types.RecordID, cond string) (logic.MatchResult, error) {
	if project == "" || record == "" {
		return logic.MatchResult{}, fmt.Errorf("%w: project and record are required", types.ErrInvalidArgument)
	}
	meta, err := s.store.LoadMetadata(ctx, project)
	if err != nil {
		return logic.MatchResult{}, err
	}
	data, err := s.store.GetRecordData(ctx, project, record, nil, nil)
	if err != nil {
		return logic.MatchResult{}, err
	}

	start := time.Now()
	expr, err := s.router.Engine().Compile(cond)
	if err != nil {
		s.metrics.ObserveEvaluation(false, err, time.Since(start))
		return logic.MatchResult{}, err
	}
	res, err := logic.EvaluateDetailed(expr, data, logic.Options{Longitudinal: meta.Longitudinal})
	s.metrics.ObserveEvaluation(res.Matched, err, time.Since(start))
	return res, err
}

// ProjectMetadata lists the pipeable fields, events and instruments of a
// project.
func (s *Service) ProjectMetadata(ctx context.Context, project types.ProjectID) (*ProjectInfo, error) {
	meta, err := s.store.LoadMetadata(ctx, project)
	if err != nil {
		return nil, err
	}
	return &ProjectInfo{
		ID:            meta.ID,
		Title:         meta.Title,
		RecordIDField: meta.RecordIDField,
		Longitudinal:  meta.Longitudinal,
		Fields:        meta.PipeableFields(),
		Events:        meta.Events,
		Instruments:   meta.Instruments(),
	}, nil
}
