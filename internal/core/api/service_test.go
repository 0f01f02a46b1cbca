package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/bcchr/detbuilder/internal/core/config"
	"github.com/bcchr/detbuilder/internal/core/db"
	"github.com/bcchr/detbuilder/internal/core/logging"
	"github.com/bcchr/detbuilder/internal/core/metrics"
	"github.com/bcchr/detbuilder/internal/core/store"
	"github.com/bcchr/detbuilder/internal/routing"
	"github.com/bcchr/detbuilder/internal/types"
)

var sourceProject = store.ProjectDefinition{
	Project: store.Project{ID: "10", Title: "Screening", RecordIDField: "record_id"},
	Fields: []types.Field{
		{Name: "record_id", Form: "enrolment"},
		{Name: "age", Form: "enrolment"},
		{Name: "gender", Form: "enrolment", Type: "radio"},
		{Name: "weight", Form: "vitals"},
	},
}

var destProject = store.ProjectDefinition{
	Project: store.Project{ID: "20", Title: "Registry", RecordIDField: "record_id"},
	Fields: []types.Field{
		{Name: "record_id", Form: "registry"},
		{Name: "source_id", Form: "registry"},
		{Name: "dest_age", Form: "registry"},
		{Name: "status", Form: "registry"},
		{Name: "bmi", Form: "registry", Type: "calc"},
	},
}

type fixture struct {
	svc     *Service
	store   *store.Store
	cfg     *config.ServiceConfig
	reg     *prometheus.Registry
	dataDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	conn, err := db.Open(ctx, "sqlite://"+filepath.Join(dir, "det.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateUp(ctx, conn))

	st, err := store.New(conn, "")
	require.NoError(t, err)
	require.NoError(t, st.UpsertProject(ctx, sourceProject))
	require.NoError(t, st.UpsertProject(ctx, destProject))

	router, err := routing.NewHostRouter(st, nil, nil)
	require.NoError(t, err)

	cfg := config.DefaultServiceConfig()
	cfg.DataDir = dir
	reg := prometheus.NewRegistry()
	svc, err := NewService(st, router, metrics.New(reg, router.Engine().Len), logging.Discard(), cfg)
	require.NoError(t, err)

	return &fixture{svc: svc, store: st, cfg: cfg, reg: reg, dataDir: dir}
}

func (f *fixture) saveSource(t *testing.T, rec types.Record) {
	t.Helper()
	res, err := f.store.SaveRecords(context.Background(), "10", []types.Record{rec}, types.OverwriteNormal)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
}

func (f *fixture) putSettings(t *testing.T, s *types.Settings) {
	t.Helper()
	require.NoError(t, f.store.PutSettings(context.Background(), "10", s, "test"))
}

func baseSettings() *types.Settings {
	return &types.Settings{
		DestProject:         "20",
		LinkSource:          "record_id",
		LinkDest:            "source_id",
		Triggers:            []string{"[age] > 5"},
		PipingSourceFields:  [][]string{{"age"}},
		PipingDestFields:    [][]string{{"dest_age"}},
		SetDestFields:       [][]string{{"status"}},
		SetDestFieldsValues: [][]string{{"1"}},
	}
}

func descriptions(log []types.LogEvent) []string {
	out := make([]string, len(log))
	for i, ev := range log {
		out[i] = ev.Description
	}
	return out
}

func TestNewService_NilDependencies(t *testing.T) {
	f := newFixture(t)
	router, err := routing.NewHostRouter(f.store, nil, nil)
	require.NoError(t, err)

	_, err = NewService(nil, router, nil, logging.Discard(), f.cfg)
	assert.Error(t, err)
	_, err = NewService(f.store, nil, nil, logging.Discard(), f.cfg)
	assert.Error(t, err)
	_, err = NewService(f.store, router, nil, nil, f.cfg)
	assert.Error(t, err)
	_, err = NewService(f.store, router, nil, logging.Discard(), nil)
	assert.Error(t, err)
}

func TestHandleSave_CreatesAndReusesDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putSettings(t, baseSettings())
	f.saveSource(t, types.Record{"record_id": "1", "age": "10", "gender": "M"})

	out, err := f.svc.HandleSave(ctx, SaveEvent{Project: "10", Record: "1", Instrument: "enrolment"})
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeSaved, out.Status)
	assert.Equal(t, types.ProjectID("20"), out.DestProject)
	assert.Equal(t, types.RecordID("1"), out.DestRecord)
	assert.True(t, out.Created)
	assert.Equal(t, []int{0}, out.Fired)
	assert.Equal(t, []types.RecordID{"1"}, out.Save.IDs)
	assert.Equal(t, []string{MsgSuccess, MsgSaved}, descriptions(out.Log))
	assert.Equal(t, "Data was successfully imported from project 10 to project 20", out.Log[0].Details)
	assert.Equal(t, types.ProjectID("20"), out.Log[1].ProjectID)

	data, err := f.store.GetRecordData(ctx, "20", "1", []string{"source_id", "dest_age", "status"}, nil)
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, "1", data[0]["source_id"])
	assert.Equal(t, "10", data[0]["dest_age"])
	assert.Equal(t, "1", data[0]["status"])

	// the second save finds the record through the linking field
	f.saveSource(t, types.Record{"record_id": "1", "age": "11"})
	out, err = f.svc.HandleSave(ctx, SaveEvent{Project: "10", Record: "1"})
	require.NoError(t, err)
	assert.Equal(t, types.RecordID("1"), out.DestRecord)
	assert.False(t, out.Created)

	ids, err := f.store.ListRecordIDs(ctx, "20")
	require.NoError(t, err)
	assert.Equal(t, []types.RecordID{"1"}, ids)

	entries, err := f.svc.AuditLog(ctx, "10", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	files, err := os.ReadDir(filepath.Join(f.dataDir, "audit"))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	count, err := testutil.GatherAndCount(f.reg, "detbuilder_routing_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandleSave_NotConfigured(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.HandleSave(context.Background(), SaveEvent{Project: "10", Record: "1"})
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeNoConfig, out.Status)
	assert.Empty(t, out.Log)
}

func TestHandleSave_NoTriggerFired(t *testing.T) {
	f := newFixture(t)
	f.putSettings(t, baseSettings())
	f.saveSource(t, types.Record{"record_id": "1", "age": "3"})

	out, err := f.svc.HandleSave(context.Background(), SaveEvent{Project: "10", Record: "1"})
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeNoop, out.Status)
	assert.Empty(t, out.Fired)
	assert.Empty(t, out.Log)
}

func TestHandleSave_TriggerFailureAudited(t *testing.T) {
	f := newFixture(t)
	s := baseSettings()
	s.Triggers = []string{"[height] > 5"}
	f.putSettings(t, s)
	f.saveSource(t, types.Record{"record_id": "1", "age": "10"})

	out, err := f.svc.HandleSave(context.Background(), SaveEvent{Project: "10", Record: "1"})
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeNoop, out.Status)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, []string{MsgTriggerFailed}, descriptions(out.Log))
}

func TestHandleSave_RoutingErrorAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putSettings(t, baseSettings())
	f.saveSource(t, types.Record{"record_id": "1", "age": "10"})
	_, err := f.store.SaveRecords(ctx, "20", []types.Record{
		{"record_id": "1", "source_id": "1"},
		{"record_id": "2", "source_id": "1"},
	}, types.OverwriteNormal)
	require.NoError(t, err)

	out, err := f.svc.HandleSave(ctx, SaveEvent{Project: "10", Record: "1"})
	require.ErrorIs(t, err, types.ErrAmbiguousLink)
	assert.Nil(t, out)

	log, err := f.svc.AuditLog(ctx, "10", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{MsgErrors}, descriptions(log))

	mirror, err := os.ReadFile(filepath.Join(f.dataDir, "audit", f.svc.now().Format("2006-01-02.jsonl")))
	require.NoError(t, err)
	assert.Contains(t, string(mirror), MsgErrors)
	assert.Contains(t, string(mirror), "more than one destination record")
}

func TestHandleSave_WarningsAndErrors(t *testing.T) {
	t.Run("warnings", func(t *testing.T) {
		f := newFixture(t)
		s := baseSettings()
		s.SetDestFields = [][]string{{"status", "bmi"}}
		s.SetDestFieldsValues = [][]string{{"1", "22"}}
		f.putSettings(t, s)
		f.saveSource(t, types.Record{"record_id": "1", "age": "10"})

		out, err := f.svc.HandleSave(context.Background(), SaveEvent{Project: "10", Record: "1"})
		require.NoError(t, err)
		assert.Equal(t, metrics.OutcomeSaved, out.Status)
		assert.NotEmpty(t, out.Save.Warnings)
		assert.Equal(t, []string{MsgSuccess, MsgWarnings, MsgSaved}, descriptions(out.Log))
	})

	t.Run("errors", func(t *testing.T) {
		f := newFixture(t)
		s := baseSettings()
		s.SetDestFields = [][]string{{"no_such_field"}}
		f.putSettings(t, s)
		f.saveSource(t, types.Record{"record_id": "1", "age": "10"})

		out, err := f.svc.HandleSave(context.Background(), SaveEvent{Project: "10", Record: "1"})
		require.NoError(t, err)
		assert.Equal(t, metrics.OutcomeFailed, out.Status)
		assert.NotEmpty(t, out.Save.Errors)
		assert.Equal(t, []string{MsgErrors}, descriptions(out.Log))
	})
}

func TestHandleSave_CreateRecordConditionSkips(t *testing.T) {
	f := newFixture(t)
	s := baseSettings()
	s.CreateRecordCond = "[gender] = 'F'"
	f.putSettings(t, s)
	f.saveSource(t, types.Record{"record_id": "1", "age": "10", "gender": "M"})

	out, err := f.svc.HandleSave(context.Background(), SaveEvent{Project: "10", Record: "1"})
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeSkipped, out.Status)
	assert.NotEmpty(t, out.Skipped)
	assert.Equal(t, []string{MsgSkipped}, descriptions(out.Log))

	ids, err := f.store.ListRecordIDs(context.Background(), "20")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestHandleSave_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.HandleSave(context.Background(), SaveEvent{Project: "10"})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.Equal(t, codes.InvalidArgument, Code(err))
}

func TestPutSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip with etag", func(t *testing.T) {
		f := newFixture(t)
		etag, err := f.svc.PutSettings(ctx, "10", baseSettings(), "")
		require.NoError(t, err)
		assert.Len(t, etag, 64)

		got, stored, err := f.svc.GetSettings(ctx, "10")
		require.NoError(t, err)
		assert.Equal(t, etag, stored)
		assert.Equal(t, baseSettings(), got)

		again, err := f.svc.PutSettings(ctx, "10", baseSettings(), etag)
		require.NoError(t, err)
		assert.Equal(t, etag, again)

		_, err = f.svc.PutSettings(ctx, "10", baseSettings(), "stale")
		assert.ErrorIs(t, err, types.ErrSettingsConflict)
		assert.Equal(t, codes.Aborted, Code(err))
	})

	t.Run("invalid trigger syntax", func(t *testing.T) {
		f := newFixture(t)
		s := baseSettings()
		s.Triggers = []string{"[age] >", "[height] = 1"}
		_, err := f.svc.PutSettings(ctx, "10", s, "")

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Defects, 2)
		assert.Contains(t, verr.Defects[0], "trigger 0:")
		assert.Contains(t, verr.Defects[1], "trigger 1:")
		assert.Equal(t, codes.InvalidArgument, Code(err))
	})

	t.Run("misaligned arrays", func(t *testing.T) {
		f := newFixture(t)
		s := baseSettings()
		s.PipingDestFields = [][]string{{"dest_age", "status"}}
		_, err := f.svc.PutSettings(ctx, "10", s, "")
		assert.ErrorIs(t, err, types.ErrMisalignedSettings)
	})

	t.Run("unknown destination", func(t *testing.T) {
		f := newFixture(t)
		s := baseSettings()
		s.DestProject = "99"
		_, err := f.svc.PutSettings(ctx, "10", s, "")
		assert.ErrorIs(t, err, types.ErrProjectNotFound)
		assert.Equal(t, codes.NotFound, Code(err))
	})
}

func TestValidateSyntax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	defects, err := f.svc.ValidateSyntax(ctx, "10", "[age] > 5 && [gender] = 'M'")
	require.NoError(t, err)
	assert.Empty(t, defects)

	defects, err = f.svc.ValidateSyntax(ctx, "10", "[enrolment_complete] = '2' && [bogus] = 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bogus is not a valid event/field in this project"}, defects)

	defects, err = f.svc.ValidateSyntax(ctx, "", "[anything] = 1")
	require.NoError(t, err)
	assert.Empty(t, defects)

	_, err = f.svc.ValidateSyntax(ctx, "404", "[a] = 1")
	assert.ErrorIs(t, err, types.ErrProjectNotFound)
}

func TestEvaluateTrigger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveSource(t, types.Record{"record_id": "1", "age": "10", "gender": "M"})

	ok, err := f.svc.EvaluateTrigger(ctx, "10", "1", "[age] > 5 && [gender] = 'M'")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.EvaluateTrigger(ctx, "10", "1", "[age] > 50")
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := f.svc.Explain(ctx, "10", "1", "[age] > 5 || [gender] = 'F'")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Len(t, res.Clauses, 2)

	_, err = f.svc.EvaluateTrigger(ctx, "10", "1", "[height] > 5")
	assert.ErrorIs(t, err, types.ErrFieldNotFound)
}

func TestProjectMetadata(t *testing.T) {
	f := newFixture(t)
	info, err := f.svc.ProjectMetadata(context.Background(), "20")
	require.NoError(t, err)
	assert.Equal(t, []string{"record_id", "source_id", "dest_age", "status", "registry_complete"}, info.Fields)
	assert.Equal(t, []string{types.DefaultEventName}, info.Events)
	assert.Equal(t, []string{"registry"}, info.Instruments)
	assert.False(t, info.Longitudinal)
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{types.ErrSettingsNotFound, codes.NotFound},
		{types.ErrAmbiguousLink, codes.FailedPrecondition},
		{types.ErrMalformedClause, codes.InvalidArgument},
		{errors.New("disk on fire"), codes.Unavailable},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
