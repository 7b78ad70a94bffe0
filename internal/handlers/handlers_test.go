package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-notes/internal/test"
	"podcast-notes/pkg/tasks"
)

func withVars(r *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(r, vars)
}

func TestSyncEpisode(t *testing.T) {
	enqueuer := &test.MockTaskEnqueuer{}
	h := New(enqueuer, "")

	form := url.Values{"notion_page_id": {"page-9"}}
	req := httptest.NewRequest(http.MethodPost, "/episodes/e1/sync", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = withVars(req, map[string]string{"eid": "e1"})
	rr := httptest.NewRecorder()

	h.SyncEpisode(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"task_id":"test-task-id","eid":"e1"}`, rr.Body.String())
	require.Len(t, enqueuer.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypeSyncEpisode, enqueuer.EnqueuedTasks[0].Type())

	var p tasks.SyncEpisodeTaskPayload
	require.NoError(t, json.Unmarshal(enqueuer.EnqueuedTasks[0].Payload(), &p))
	assert.Equal(t, tasks.SyncEpisodeTaskPayload{Eid: "e1", NotionPageID: "page-9"}, p)
}

func TestSyncEpisodeEnqueueFailure(t *testing.T) {
	h := New(&test.MockTaskEnqueuer{Err: errors.New("redis down")}, "")
	req := withVars(httptest.NewRequest(http.MethodPost, "/episodes/e1/sync", nil), map[string]string{"eid": "e1"})
	rr := httptest.NewRecorder()

	h.SyncEpisode(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSyncAll(t *testing.T) {
	enqueuer := &test.MockTaskEnqueuer{}
	h := New(enqueuer, "")
	rr := httptest.NewRecorder()

	h.SyncAll(rr, httptest.NewRequest(http.MethodPost, "/sync", nil))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, enqueuer.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypeSyncAllEpisodes, enqueuer.EnqueuedTasks[0].Type())
}

func TestGetPodcastRSS(t *testing.T) {
	_, mock := test.NewMockDB(t)
	rows := sqlmock.NewRows(test.EpisodeColumns).
		AddRow("e1", "Pod", "First", "", nil, nil, "desc", "https://cdn/1.mp3", "", "", int64(1700000000), nil, "", nil, nil)
	mock.ExpectQuery(`SELECT .* FROM episodes WHERE podcast_name = \$1`).WithArgs("Pod").WillReturnRows(rows)

	h := New(nil, "https://notes.example.com")
	req := withVars(httptest.NewRequest(http.MethodGet, "/podcasts/Pod/rss", nil), map[string]string{"name": "Pod"})
	rr := httptest.NewRecorder()

	h.GetPodcastRSS(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/rss+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<title>First</title>")
	assert.Contains(t, rr.Body.String(), "https://cdn/1.mp3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPodcastRSSUnknownPodcast(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM episodes WHERE podcast_name = \$1`).WithArgs("Nope").
		WillReturnRows(sqlmock.NewRows(test.EpisodeColumns))

	h := New(nil, "")
	req := withVars(httptest.NewRequest(http.MethodGet, "/podcasts/Nope/rss", nil), map[string]string{"name": "Nope"})
	rr := httptest.NewRecorder()

	h.GetPodcastRSS(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	New(nil, "").Health(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
