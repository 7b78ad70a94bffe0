// Package exporter writes episode notes into the local vault and mirrors
// them to Google Drive.
package exporter

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"

	"podcast-notes/internal/config"
	"podcast-notes/internal/credentials"
	"podcast-notes/internal/drive"
	"podcast-notes/internal/envfile"
	"podcast-notes/internal/models"
	"podcast-notes/internal/notes"
)

// TokenSource yields a Drive bearer token. ok is false when none is
// available.
type TokenSource interface {
	Token(ctx context.Context) (token string, ok bool)
}

// Uploader puts a file into a remote folder.
type Uploader interface {
	Upsert(ctx context.Context, token, folderID, name string, content []byte) (drive.Result, error)
}

type SkipReason int

const (
	NotSkipped SkipReason = iota
	SkipDisabled
	SkipNoExportDir
)

type RemoteStatus int

const (
	RemoteOff RemoteStatus = iota
	RemoteNoToken
	RemoteFailed
	RemoteCreated
	RemoteUpdated
)

func (s RemoteStatus) String() string {
	switch s {
	case RemoteNoToken:
		return "no-token"
	case RemoteFailed:
		return "failed"
	case RemoteCreated:
		return "created"
	case RemoteUpdated:
		return "updated"
	default:
		return "off"
	}
}

// Result describes one Sync call. RemoteErr holds the reason of a
// RemoteFailed upload.
type Result struct {
	Skipped      SkipReason
	Path         string
	Remote       RemoteStatus
	RemoteFileID string
	RemoteErr    error
}

type Exporter struct {
	cfg       config.ExportConfig
	folderID  string
	formatter notes.Formatter
	tokens    TokenSource
	uploader  Uploader
}

// New creates an Exporter. tokens and uploader are only used when folderID
// is set.
func New(cfg config.ExportConfig, folderID string, tokens TokenSource, uploader Uploader) *Exporter {
	return &Exporter{
		cfg:       cfg,
		folderID:  folderID,
		formatter: notes.Formatter{NotionHost: cfg.NotionHost},
		tokens:    tokens,
		uploader:  uploader,
	}
}

// NewFromConfig wires an Exporter with the Drive client and the token
// provider described by cfg. The refreshed token is persisted into
// cfg.EnvFile.
func NewFromConfig(cfg *config.Config, httpClient *http.Client) *Exporter {
	provider := credentials.NewProvider(
		cfg.OAuth,
		credentials.NewTokenCell(cfg.Drive.AccessToken),
		envfile.New(cfg.EnvFile),
		httpClient,
	)
	return New(cfg.Export, cfg.Drive.FolderID, provider, drive.NewClient(cfg.Drive, httpClient))
}

// NotePath returns where the note of ep is written.
func (e *Exporter) NotePath(ep models.Episode, podcast string) string {
	return filepath.Join(e.cfg.Dir, notes.PodcastDir(podcast), notes.NoteFileName(ep))
}

// Sync writes the note of ep and uploads it when a Drive folder is
// configured. Missing configuration and Drive failures are logged and
// reported in Result; only local filesystem failures return an error.
func (e *Exporter) Sync(ctx context.Context, ep models.Episode, podcast string, notionPageID string) (Result, error) {
	if !e.cfg.Enabled {
		return Result{Skipped: SkipDisabled}, nil
	}
	if e.cfg.Dir == "" {
		log.Warn().Msg("obsidian sync enabled but OBSIDIAN_EXPORT_DIR is empty, skip obsidian sync")
		return Result{Skipped: SkipNoExportDir}, nil
	}

	path := e.NotePath(ep, podcast)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create podcast dir: %w", err)
	}

	content := e.formatter.Render(ep, podcast, notionPageID)
	if err := renameio.WriteFile(path, []byte(content), 0o644); err != nil {
		return Result{}, fmt.Errorf("write note %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("obsidian synced")

	res := Result{Path: path}
	if e.folderID == "" {
		return res, nil
	}

	e.upload(ctx, &res)
	return res, nil
}

func (e *Exporter) upload(ctx context.Context, res *Result) {
	token, ok := e.tokens.Token(ctx)
	if !ok {
		log.Warn().Msg("google drive sync skipped: no valid access token")
		res.Remote = RemoteNoToken
		return
	}

	name := filepath.Base(res.Path)
	content, err := os.ReadFile(res.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", res.Path).Msg("google drive sync skipped: cannot read note")
		res.Remote = RemoteFailed
		res.RemoteErr = err
		return
	}

	up, err := e.uploader.Upsert(ctx, token, e.folderID, name, content)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("google drive sync failed")
		res.Remote = RemoteFailed
		res.RemoteErr = err
		return
	}

	res.RemoteFileID = up.FileID
	switch up.Action {
	case drive.Updated:
		res.Remote = RemoteUpdated
		log.Info().Str("file", name).Msg("google drive updated")
	default:
		res.Remote = RemoteCreated
		log.Info().Str("file", name).Msg("google drive uploaded")
	}
}
