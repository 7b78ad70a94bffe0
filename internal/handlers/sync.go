package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"podcast-notes/pkg/tasks"
)

// SyncEpisode enqueues an export of one episode. An optional
// notion_page_id form value overrides the stored page id.
func (h *Handlers) SyncEpisode(w http.ResponseWriter, r *http.Request) {
	eid := mux.Vars(r)["eid"]
	if eid == "" {
		http.Error(w, "Episode id is required", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	task, err := tasks.NewSyncEpisodeTask(eid, r.FormValue("notion_page_id"))
	if err != nil {
		log.Error().Err(err).Str("eid", eid).Msg("error creating sync task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		log.Error().Err(err).Str("eid", eid).Msg("error enqueuing sync task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID, "eid": eid})
}

// SyncAll enqueues a sync of every stored episode.
func (h *Handlers) SyncAll(w http.ResponseWriter, r *http.Request) {
	task, err := tasks.NewSyncAllEpisodesTask()
	if err != nil {
		log.Error().Err(err).Msg("error creating sync-all task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		log.Error().Err(err).Msg("error enqueuing sync-all task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
}
