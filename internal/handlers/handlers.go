package handlers

import (
	"encoding/json"
	"net/http"

	"podcast-notes/pkg/tasks"
)

type Handlers struct {
	asynqClient tasks.TaskEnqueuer
	baseURL     string
}

func New(asynqClient tasks.TaskEnqueuer, baseURL string) *Handlers {
	return &Handlers{
		asynqClient: asynqClient,
		baseURL:     baseURL,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
