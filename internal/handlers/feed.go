package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"podcast-notes/internal/db"
	"podcast-notes/internal/feed"
)

func (h *Handlers) GetPodcastRSS(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	episodes, err := db.GetEpisodesByPodcast(name)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(episodes) == 0 {
		http.Error(w, "Podcast not found", http.StatusNotFound)
		return
	}

	rss, err := feed.GenerateRSS(name, feed.GetBaseURL(h.baseURL, r), episodes)
	if err != nil {
		log.Error().Err(err).Str("podcast", name).Msg("error generating RSS")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}
