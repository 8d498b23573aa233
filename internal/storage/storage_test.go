package storage_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartly/internal/domain"
	"chartly/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "app.db"), filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUploadStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := storage.NewUploadStore(db)
	ctx := context.Background()

	up, err := s.Save(ctx, "u1", "orders.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, up.ID)
	assert.Equal(t, int64(8), up.SizeBytes)

	name, data, err := s.ReadUpload(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, "orders.csv", name)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	ups, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ups, 1)

	require.NoError(t, s.Delete(ctx, up.ID))
	_, _, err = s.ReadUpload(ctx, up.ID)
	assert.Error(t, err)
}

func TestJobStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := storage.NewJobStore(db)
	ctx := context.Background()

	job := &domain.ImportJob{
		UserID:         "u1",
		Name:           "Orders",
		SourceType:     "upload",
		SourceCfg:      map[string]any{"uploadId": "abc"},
		CollectionName: "orders",
		TriggerType:    domain.TriggerSchedule,
		TriggerConfig:  "0 2 * * *",
		Enabled:        true,
	}
	require.NoError(t, s.CreateJob(ctx, job))
	require.NotEmpty(t, job.ID)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orders", got.Name)
	assert.Equal(t, "abc", got.SourceCfg["uploadId"])

	got.Name = "Orders v2"
	require.NoError(t, s.UpdateJob(ctx, got))

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, domain.RunStatusError, "boom"))
	got, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orders v2", got.Name)
	assert.Equal(t, domain.RunStatusError, got.LastStatus)
	assert.Equal(t, "boom", got.LastError)
	require.NotNil(t, got.LastRunAt)

	triggered, err := s.ListTriggeredJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, triggered, 1)

	_, err = s.GetJob(ctx, "missing")
	assert.Error(t, err)
}

func TestJobStoreRunLogs(t *testing.T) {
	db := newTestDB(t)
	s := storage.NewJobStore(db)
	ctx := context.Background()

	job := &domain.ImportJob{UserID: "u1", Name: "Orders", SourceType: "upload"}
	require.NoError(t, s.CreateJob(ctx, job))

	finished := time.Now()
	require.NoError(t, s.CreateRunLog(ctx, &domain.ImportRunLog{
		JobID:        job.ID,
		StartedAt:    finished.Add(-time.Minute),
		FinishedAt:   &finished,
		Status:       domain.RunStatusSuccess,
		RowsRead:     10,
		RowsInserted: 9,
	}))

	logs, err := s.ListRunLogs(ctx, job.ID, 50)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 9, logs[0].RowsInserted)

	// Deleting the job removes its logs.
	require.NoError(t, s.DeleteJob(ctx, job.ID))
	logs, err = s.ListRunLogs(ctx, job.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestConnectionStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := storage.NewConnectionStore(db)
	ctx := context.Background()

	conn := &domain.DatabaseConnection{
		UserID:   "u1",
		Name:     "warehouse",
		Driver:   "postgres",
		Host:     "db.internal",
		Port:     5432,
		Database: "warehouse",
		Username: "reader",
		SSLMode:  "require",
	}
	require.NoError(t, s.Create(ctx, conn))

	got, err := s.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "require", got.SSLMode)

	got.Host = "db2.internal"
	require.NoError(t, s.Update(ctx, got))

	conns, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "db2.internal", conns[0].Host)

	require.NoError(t, s.Delete(ctx, conn.ID))
	_, err = s.Get(ctx, conn.ID)
	assert.Error(t, err)
}
