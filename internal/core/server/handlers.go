package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bcchr/detbuilder/internal/core/api"
	"github.com/bcchr/detbuilder/internal/logic"
	"github.com/bcchr/detbuilder/internal/types"
)

// Request and response documents.
type (
	ConditionRequest struct {
		Project   types.ProjectID `json:"project_id"`
		Record    types.RecordID  `json:"record,omitempty"`
		Condition string          `json:"condition"`
	}

	ValidateResponse struct {
		Valid   bool     `json:"valid"`
		Defects []string `json:"defects"`
	}

	ClauseTrace struct {
		Clause  string `json:"clause"`
		Event   string `json:"event,omitempty"`
		Value   string `json:"value"`
		Matched bool   `json:"matched"`
	}

	EvaluateResponse struct {
		Matched bool          `json:"matched"`
		Clauses []ClauseTrace `json:"clauses"`
	}

	ProjectRequest struct {
		Project types.ProjectID `json:"project_id"`
		Limit   int             `json:"limit,omitempty"`
	}

	SettingsDocument struct {
		Project  types.ProjectID `json:"project_id"`
		Settings *types.Settings `json:"settings,omitempty"`
		ETag     string          `json:"etag,omitempty"`
		IfMatch  string          `json:"if_match,omitempty"`
	}

	AuditLogResponse struct {
		Events []types.LogEvent `json:"events"`
	}
)

// triggerService adapts api.Service to TriggerServer.
type triggerService struct {
	svc *api.Service
}

func (t *triggerService) ValidateSyntax(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ConditionRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	defects, err := t.svc.ValidateSyntax(ctx, req.Project, req.Condition)
	if err != nil {
		return nil, err
	}
	return toStruct(ValidateResponse{Valid: len(defects) == 0, Defects: defects})
}

func (t *triggerService) EvaluateTrigger(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ConditionRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	res, err := t.svc.Explain(ctx, req.Project, req.Record, req.Condition)
	if err != nil {
		return nil, err
	}
	return toStruct(evaluateResponse(res))
}

func (t *triggerService) HandleSave(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var ev api.SaveEvent
	if err := fromStruct(in, &ev); err != nil {
		return nil, err
	}
	out, err := t.svc.HandleSave(ctx, ev)
	if err != nil {
		return nil, err
	}
	return toStruct(out)
}

func (t *triggerService) ProjectMetadata(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProjectRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	info, err := t.svc.ProjectMetadata(ctx, req.Project)
	if err != nil {
		return nil, err
	}
	return toStruct(info)
}

func (t *triggerService) GetSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProjectRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	settings, etag, err := t.svc.GetSettings(ctx, req.Project)
	if err != nil {
		return nil, err
	}
	return toStruct(SettingsDocument{Project: req.Project, Settings: settings, ETag: etag})
}

func (t *triggerService) PutSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SettingsDocument
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	etag, err := t.svc.PutSettings(ctx, req.Project, req.Settings, req.IfMatch)
	if err != nil {
		return nil, err
	}
	return toStruct(SettingsDocument{Project: req.Project, ETag: etag})
}

func (t *triggerService) AuditLog(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProjectRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	events, err := t.svc.AuditLog(ctx, req.Project, req.Limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []types.LogEvent{}
	}
	return toStruct(AuditLogResponse{Events: events})
}

func evaluateResponse(res logic.MatchResult) EvaluateResponse {
	out := EvaluateResponse{Matched: res.Matched, Clauses: []ClauseTrace{}}
	for _, c := range res.Clauses {
		out.Clauses = append(out.Clauses, ClauseTrace{
			Clause:  c.Clause.String(),
			Event:   c.Event,
			Value:   c.Value,
			Matched: c.Matched,
		})
	}
	return out
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

// fromStruct decodes a Struct into a JSON-tagged value.
func fromStruct(in *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("decode request: %v", err))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("decode request: %v", err))
	}
	return nil
}
