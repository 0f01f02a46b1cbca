package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		driver  string
		dsn     string
		wantErr bool
	}{
		{url: "sqlite://det.db", driver: "sqlite3", dsn: "file:det.db?" + sqliteParams},
		{url: "sqlite:///var/lib/det.db", driver: "sqlite3", dsn: "file:/var/lib/det.db?" + sqliteParams},
		{url: "sqlite://data/det.db?cache=shared", driver: "sqlite3", dsn: "file:data/det.db?cache=shared&" + sqliteParams},
		{url: "postgres://u@localhost/det", driver: "postgres", dsn: "postgres://u@localhost/det"},
		{url: "mysql://localhost/det", wantErr: true},
		{url: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := parseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "det.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, MigrateUp(ctx, conn))
	require.NoError(t, MigrateUp(ctx, conn))

	statuses, err := MigrateStatus(ctx, conn)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, s := range statuses {
		assert.True(t, s.Applied, s.ID)
		assert.NotNil(t, s.AppliedAt, s.ID)
		assert.Len(t, s.Checksum, 64)
	}

	var tables int
	require.NoError(t, conn.Get(&tables, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('projects', 'project_events', 'project_fields', 'record_data', 'det_settings', 'log_events')"))
	assert.Equal(t, 6, tables)
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "det.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, MigrateUp(ctx, conn))
	_, err = conn.Exec("UPDATE migrations SET checksum = 'tampered'")
	require.NoError(t, err)

	err = MigrateUp(ctx, conn)
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestLoadQueries(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "det.db"))
	require.NoError(t, err)
	defer conn.Close()

	q, err := LoadQueries(conn)
	require.NoError(t, err)

	for _, name := range []string{
		"upsert-project", "get-project", "bump-next-record-id", "list-instrument-fields",
		"upsert-record-value", "find-records-by-value-in-event",
		"get-settings", "upsert-settings", "insert-log-event", "list-log-events",
	} {
		_, err := q.Raw(name)
		assert.NoError(t, err, name)
	}
	_, err = q.Raw("no-such-query")
	assert.Error(t, err)
}
