package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"podcast-notes/internal/config"
	"podcast-notes/internal/exporter"
	"podcast-notes/internal/models"
	"podcast-notes/internal/notes"
	"podcast-notes/internal/test"
	"podcast-notes/pkg/tasks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncCall struct {
	episode models.Episode
	podcast string
	pageID  string
}

type mockSyncer struct {
	calls  []syncCall
	result exporter.Result
	err    error
}

func (m *mockSyncer) Sync(ctx context.Context, ep models.Episode, podcast string, pageID string) (exporter.Result, error) {
	m.calls = append(m.calls, syncCall{ep, podcast, pageID})
	return m.result, m.err
}

func episodeRow(eid, podcast, title, pageID string) *sqlmock.Rows {
	return sqlmock.NewRows(test.EpisodeColumns).AddRow(
		eid, podcast, title, "listened", 60.0, int64(3600), "about things",
		"https://cdn/a.mp3", "", "", int64(1700000000), nil, pageID, nil, nil,
	)
}

func TestHandleSyncEpisodeTask(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM episodes WHERE eid = \$1`).WithArgs("e1").WillReturnRows(episodeRow("e1", "Pod", "Title", "stored-page"))
	mock.ExpectExec(`UPDATE episodes SET note_path = \$1, exported_at = NOW\(\) WHERE eid = \$2`).
		WithArgs("/vault/Pod/e1-Title.md", "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	syncer := &mockSyncer{result: exporter.Result{Path: "/vault/Pod/e1-Title.md", Remote: exporter.RemoteCreated}}
	handler := NewTaskHandler(nil, syncer)

	task := asynq.NewTask(tasks.TypeSyncEpisode, mustMarshal(t, tasks.SyncEpisodeTaskPayload{Eid: "e1"}))
	err := handler.HandleSyncEpisodeTask(context.Background(), task)

	assert.NoError(t, err)
	require.Len(t, syncer.calls, 1)
	assert.Equal(t, "Pod", syncer.calls[0].podcast)
	assert.Equal(t, "stored-page", syncer.calls[0].pageID)
	assert.Equal(t, "Title", syncer.calls[0].episode.Title)
	assert.Equal(t, "60.0", syncer.calls[0].episode.Progress.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSyncEpisodeTaskPageOverride(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM episodes WHERE eid = \$1`).WithArgs("e1").WillReturnRows(episodeRow("e1", "Pod", "Title", "stored-page"))

	// skipped syncs have no path and are not recorded
	syncer := &mockSyncer{result: exporter.Result{Skipped: exporter.SkipDisabled}}
	handler := NewTaskHandler(nil, syncer)

	task := asynq.NewTask(tasks.TypeSyncEpisode, mustMarshal(t, tasks.SyncEpisodeTaskPayload{Eid: "e1", NotionPageID: "override"}))
	require.NoError(t, handler.HandleSyncEpisodeTask(context.Background(), task))
	assert.Equal(t, "override", syncer.calls[0].pageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSyncEpisodeTaskErrors(t *testing.T) {
	t.Run("bad payload", func(t *testing.T) {
		handler := NewTaskHandler(nil, &mockSyncer{})
		err := handler.HandleSyncEpisodeTask(context.Background(), asynq.NewTask(tasks.TypeSyncEpisode, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("unknown episode", func(t *testing.T) {
		_, mock := test.NewMockDB(t)
		mock.ExpectQuery(`SELECT .* FROM episodes WHERE eid = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		syncer := &mockSyncer{}
		handler := NewTaskHandler(nil, syncer)
		task := asynq.NewTask(tasks.TypeSyncEpisode, mustMarshal(t, tasks.SyncEpisodeTaskPayload{Eid: "missing"}))

		err := handler.HandleSyncEpisodeTask(context.Background(), task)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.Empty(t, syncer.calls)
	})

	t.Run("local write failure", func(t *testing.T) {
		_, mock := test.NewMockDB(t)
		mock.ExpectQuery(`SELECT .* FROM episodes WHERE eid = \$1`).WithArgs("e1").WillReturnRows(episodeRow("e1", "Pod", "T", ""))

		handler := NewTaskHandler(nil, &mockSyncer{err: errors.New("disk full")})
		task := asynq.NewTask(tasks.TypeSyncEpisode, mustMarshal(t, tasks.SyncEpisodeTaskPayload{Eid: "e1"}))
		err := handler.HandleSyncEpisodeTask(context.Background(), task)
		assert.ErrorContains(t, err, "disk full")
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("store failure is retried", func(t *testing.T) {
		_, mock := test.NewMockDB(t)
		mock.ExpectQuery(`SELECT .* FROM episodes WHERE eid = \$1`).WithArgs("e1").WillReturnError(errors.New("connection reset"))

		handler := NewTaskHandler(nil, &mockSyncer{})
		task := asynq.NewTask(tasks.TypeSyncEpisode, mustMarshal(t, tasks.SyncEpisodeTaskPayload{Eid: "e1"}))
		err := handler.HandleSyncEpisodeTask(context.Background(), task)
		assert.ErrorContains(t, err, "connection reset")
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleSyncEpisodeTaskWritesNote(t *testing.T) {
	_, mock := test.NewMockDB(t)
	dir := t.TempDir()

	mock.ExpectQuery(`SELECT .* FROM episodes WHERE eid = \$1`).WithArgs("e7").WillReturnRows(episodeRow("e7", "Pod", "Seven", ""))
	mock.ExpectExec(`UPDATE episodes SET note_path`).WithArgs(sqlmock.AnyArg(), "e7").WillReturnResult(sqlmock.NewResult(0, 1))

	exp := exporter.New(config.ExportConfig{Enabled: true, Dir: dir}, "", nil, nil)
	handler := NewTaskHandler(nil, exp)

	task := asynq.NewTask(tasks.TypeSyncEpisode, mustMarshal(t, tasks.SyncEpisodeTaskPayload{Eid: "e7"}))
	require.NoError(t, handler.HandleSyncEpisodeTask(context.Background(), task))

	ep := models.Episode{Eid: "e7", PodcastName: "Pod", Title: "Seven"}
	got, err := os.ReadFile(exp.NotePath(ep, "Pod"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "progress_seconds: 60.0\n")
	assert.Contains(t, string(got), "duration_seconds: 3600\n")
	assert.Equal(t, "e7-Seven.md", notes.NoteFileName(ep))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSyncAllEpisodesTask(t *testing.T) {
	_, mock := test.NewMockDB(t)
	rows := sqlmock.NewRows([]string{"eid", "podcast_name"}).AddRow("a", "P").AddRow("b", "P")
	mock.ExpectQuery(`SELECT eid, COALESCE\(podcast_name, ''\) AS podcast_name FROM episodes`).WillReturnRows(rows)

	enqueuer := &test.MockTaskEnqueuer{}
	handler := NewTaskHandler(enqueuer, &mockSyncer{})

	task, err := tasks.NewSyncAllEpisodesTask()
	require.NoError(t, err)
	require.NoError(t, handler.HandleSyncAllEpisodesTask(context.Background(), task))

	require.Len(t, enqueuer.EnqueuedTasks, 2)
	for i, eid := range []string{"a", "b"} {
		assert.Equal(t, tasks.TypeSyncEpisode, enqueuer.EnqueuedTasks[i].Type())
		var p tasks.SyncEpisodeTaskPayload
		require.NoError(t, json.Unmarshal(enqueuer.EnqueuedTasks[i].Payload(), &p))
		assert.Equal(t, eid, p.Eid)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSyncAllEpisodesTaskEnqueueFailure(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectQuery(`SELECT eid`).WillReturnRows(sqlmock.NewRows([]string{"eid", "podcast_name"}).AddRow("a", "P"))

	enqueuer := &test.MockTaskEnqueuer{Err: errors.New("redis down")}
	handler := NewTaskHandler(enqueuer, &mockSyncer{})

	task, _ := tasks.NewSyncAllEpisodesTask()
	assert.NoError(t, handler.HandleSyncAllEpisodesTask(context.Background(), task))
	assert.Empty(t, enqueuer.EnqueuedTasks)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return b
}
