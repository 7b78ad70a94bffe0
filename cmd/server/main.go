package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"podcast-notes/internal/config"
	"podcast-notes/internal/db"
	"podcast-notes/internal/handlers"
	"podcast-notes/internal/logging"
	"podcast-notes/internal/middleware"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	db.InitDB(cfg.DatabaseURL)

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	h := handlers.New(client, cfg.BaseURL)
	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(1), 5)
	router := newRouter(h, cfg.APIToken, limiter)

	log.Info().Str("port", cfg.Port).Str("commit", CommitSHA).Msg("starting server")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newRouter(h *handlers.Handlers, apiToken string, limiter *middleware.RateLimiterMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/podcasts/{name}/rss", h.GetPodcastRSS).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware(apiToken), limiter.Middleware)
	api.HandleFunc("/episodes/{eid}/sync", h.SyncEpisode).Methods(http.MethodPost)
	api.HandleFunc("/sync", h.SyncAll).Methods(http.MethodPost)

	return r
}
