package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeSyncEpisode     = "episode:sync"
	TypeSyncAllEpisodes = "episodes:sync-all"
)

type SyncEpisodeTaskPayload struct {
	Eid string
	// NotionPageID overrides the page id stored with the episode when set.
	NotionPageID string
}

func NewSyncEpisodeTask(eid string, notionPageID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncEpisodeTaskPayload{Eid: eid, NotionPageID: notionPageID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSyncEpisode, payload), nil
}

func NewSyncAllEpisodesTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeSyncAllEpisodes, nil), nil
}
