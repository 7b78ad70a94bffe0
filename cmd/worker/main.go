package main

import (
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"podcast-notes/internal/config"
	"podcast-notes/internal/db"
	"podcast-notes/internal/exporter"
	"podcast-notes/internal/logging"
	"podcast-notes/internal/worker"
	"podcast-notes/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	db.InitDB(cfg.DatabaseURL)

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// One task at a time: note writes, token refreshes and Drive
			// upserts must not interleave.
			Concurrency: 1,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Minute
				maxDelay := time.Hour

				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				log.Warn().Err(err).Str("task", task.Type()).Int("attempt", n+1).Dur("delay", delay).Msg("task failed, retrying")
				return delay
			},
		},
	)

	exp := exporter.NewFromConfig(cfg, http.DefaultClient)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(client, exp)

	mux.HandleFunc(tasks.TypeSyncEpisode, taskHandler.HandleSyncEpisodeTask)
	mux.HandleFunc(tasks.TypeSyncAllEpisodes, taskHandler.HandleSyncAllEpisodesTask)

	log.Info().Str("commit", CommitSHA).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("could not run server")
	}
}
