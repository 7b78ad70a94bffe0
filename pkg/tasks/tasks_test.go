package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncEpisodeTask(t *testing.T) {
	task, err := NewSyncEpisodeTask("e1", "page-1")
	require.NoError(t, err)
	assert.Equal(t, TypeSyncEpisode, task.Type())

	var p SyncEpisodeTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, SyncEpisodeTaskPayload{Eid: "e1", NotionPageID: "page-1"}, p)
}

func TestNewSyncAllEpisodesTask(t *testing.T) {
	task, err := NewSyncAllEpisodesTask()
	require.NoError(t, err)
	assert.Equal(t, TypeSyncAllEpisodes, task.Type())
	assert.Empty(t, task.Payload())
}
