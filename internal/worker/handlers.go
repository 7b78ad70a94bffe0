package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"podcast-notes/internal/db"
	"podcast-notes/internal/exporter"
	"podcast-notes/internal/models"
	"podcast-notes/pkg/tasks"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Syncer exports one episode. *exporter.Exporter implements it.
type Syncer interface {
	Sync(ctx context.Context, ep models.Episode, podcast string, notionPageID string) (exporter.Result, error)
}

type TaskHandler struct {
	asynqClient tasks.TaskEnqueuer
	syncer      Syncer
}

func NewTaskHandler(client tasks.TaskEnqueuer, syncer Syncer) *TaskHandler {
	return &TaskHandler{asynqClient: client, syncer: syncer}
}

// HandleSyncEpisodeTask loads the episode and exports it. Drive failures
// are reported by the exporter and do not fail the task, so asynq only
// retries store and local filesystem errors.
func (h *TaskHandler) HandleSyncEpisodeTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SyncEpisodeTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w: %w", err, asynq.SkipRetry)
	}

	log.Info().Str("eid", p.Eid).Msg("syncing episode")

	episode, err := db.GetEpisodeByEid(p.Eid)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("episode %s not found: %w: %w", p.Eid, err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to get episode by eid: %w", err)
	}

	pageID := episode.NotionPageID
	if p.NotionPageID != "" {
		pageID = p.NotionPageID
	}

	res, err := h.syncer.Sync(ctx, episode, episode.PodcastName, pageID)
	if err != nil {
		return fmt.Errorf("failed to sync episode %s: %w", p.Eid, err)
	}

	if res.Path != "" {
		if err := db.MarkEpisodeExported(episode.Eid, res.Path); err != nil {
			log.Warn().Err(err).Str("eid", episode.Eid).Msg("failed to record exported note")
		}
	}

	log.Info().
		Str("eid", p.Eid).
		Str("path", res.Path).
		Stringer("remote", res.Remote).
		Msg("episode synced")

	return nil
}

// HandleSyncAllEpisodesTask enqueues one sync task per stored episode.
func (h *TaskHandler) HandleSyncAllEpisodesTask(ctx context.Context, t *asynq.Task) error {
	log.Info().Msg("syncing all episodes...")

	refs, err := db.ListEpisodeRefs()
	if err != nil {
		return fmt.Errorf("failed to list episodes: %w", err)
	}

	for _, ref := range refs {
		task, err := tasks.NewSyncEpisodeTask(ref.Eid, "")
		if err != nil {
			log.Error().Err(err).Str("eid", ref.Eid).Msg("failed to create sync task")
			continue
		}

		_, err = h.asynqClient.Enqueue(task)
		if err != nil {
			log.Error().Err(err).Str("eid", ref.Eid).Msg("failed to enqueue sync task")
			continue
		}
	}

	log.Info().Int("episodes", len(refs)).Msg("finished enqueuing episode syncs")
	return nil
}
