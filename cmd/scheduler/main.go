package main

import (
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"podcast-notes/internal/config"
	"podcast-notes/internal/logging"
	"podcast-notes/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{},
	)

	task, err := tasks.NewSyncAllEpisodesTask()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create task")
	}

	_, err = scheduler.Register(cfg.SyncSchedule, task)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("could not register task")
	}

	log.Info().Str("commit", CommitSHA).Str("schedule", cfg.SyncSchedule).Msg("scheduler starting")
	if err := scheduler.Run(); err != nil {
		log.Fatal().Err(err).Msg("could not run scheduler")
	}
}
