// Package config collects the environment settings of the note exporter
// and its worker, server and scheduler processes.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEnvFile      = ".env"
	DefaultTokenURL     = "https://oauth2.googleapis.com/token"
	DefaultDriveURL     = "https://www.googleapis.com"
	DefaultNotionHost   = "www.notion.so"
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultPort         = "8080"
	DefaultSyncSchedule = "@every 1h"
	AccessTokenKey      = "GOOGLE_DRIVE_ACCESS_TOKEN"
)

// Config is the full process configuration. Components receive the parts
// they need at construction instead of reading the environment.
type Config struct {
	EnvFile string

	Export ExportConfig
	Drive  DriveConfig
	OAuth  OAuthConfig

	DatabaseURL  string
	RedisAddr    string
	Port         string
	BaseURL      string
	APIToken     string
	SyncSchedule string
	LogLevel     string
	LogFormat    string
}

type ExportConfig struct {
	Enabled    bool
	Dir        string
	NotionHost string
}

type DriveConfig struct {
	FolderID    string
	AccessToken string
	APIURL      string
	UploadURL   string
}

type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Scope        string
}

// Configured reports whether a refresh exchange can be attempted.
func (o OAuthConfig) Configured() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.RefreshToken != ""
}

// Load reads the dotenv file named by ENV_FILE (default .env) into the
// process environment and builds a Config from it. A missing dotenv file is
// not an error.
func Load() *Config {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info().Str("file", envFile).Msg("no env file loaded")
	}
	cfg := FromLookup(os.LookupEnv)
	cfg.EnvFile = envFile
	return cfg
}

// FromMap builds a Config from explicit values.
func FromMap(values map[string]string) *Config {
	return FromLookup(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}

// FromLookup builds a Config using lookup for every key.
func FromLookup(lookup func(string) (string, bool)) *Config {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
		return def
	}

	return &Config{
		EnvFile: get("ENV_FILE", DefaultEnvFile),
		Export: ExportConfig{
			Enabled:    parseFlag(get("OBSIDIAN_SYNC_ENABLED", "")),
			Dir:        get("OBSIDIAN_EXPORT_DIR", ""),
			NotionHost: get("NOTION_HOST", DefaultNotionHost),
		},
		Drive: DriveConfig{
			FolderID:    get("GOOGLE_DRIVE_FOLDER_ID", ""),
			AccessToken: get(AccessTokenKey, ""),
			APIURL:      strings.TrimRight(get("GOOGLE_DRIVE_API_URL", DefaultDriveURL), "/"),
			UploadURL:   strings.TrimRight(get("GOOGLE_DRIVE_UPLOAD_URL", DefaultDriveURL), "/"),
		},
		OAuth: OAuthConfig{
			TokenURL:     get("GOOGLE_OAUTH_TOKEN_URL", DefaultTokenURL),
			ClientID:     get("GOOGLE_OAUTH_CLIENT_ID", ""),
			ClientSecret: get("GOOGLE_OAUTH_CLIENT_SECRET", ""),
			RefreshToken: get("GOOGLE_OAUTH_REFRESH_TOKEN", ""),
			Scope:        get("GOOGLE_OAUTH_SCOPE", ""),
		},
		DatabaseURL:  get("DATABASE_URL", ""),
		RedisAddr:    get("REDIS_ADDR", DefaultRedisAddr),
		Port:         get("PORT", DefaultPort),
		BaseURL:      get("BASE_URL", ""),
		APIToken:     get("API_TOKEN", ""),
		SyncSchedule: get("SYNC_SCHEDULE", DefaultSyncSchedule),
		LogLevel:     get("LOG_LEVEL", "info"),
		LogFormat:    get("LOG_FORMAT", ""),
	}
}

func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
