package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"podcast-notes/internal/config"
	"podcast-notes/internal/credentials"
	"podcast-notes/internal/envfile"
	"podcast-notes/internal/exporter"
	"podcast-notes/internal/logging"
	"podcast-notes/internal/models"
	"podcast-notes/internal/notes"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

// frontMatterKeys are the keys every rendered note must carry.
var frontMatterKeys = []string{
	"title", "podcast", "eid", "status", "progress_seconds", "duration_seconds",
	"published_at", "played_at", "notion_page_id", "notion_url", "xiaoyuzhou_url", "tongyi_url",
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	episodeFlags := []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "episode JSON file, - for stdin"},
		&cli.StringFlag{Name: "podcast", Aliases: []string{"p"}, Usage: "podcast name, overrides the episode's podcast"},
		&cli.StringFlag{Name: "notion-page-id", Aliases: []string{"n"}, Usage: "Notion page id, overrides the episode's page id"},
	}

	return &cli.Command{
		Name:    "notesync",
		Usage:   "export podcast episodes as Markdown notes",
		Version: CommitSHA,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log.level", Value: "info", Usage: "Log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "log.format", Value: "", Usage: "Log format (console, json)"},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logging.Init(c.String("log.level"), c.String("log.format"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "write the note of an episode and upload it to Google Drive",
				Flags:  episodeFlags,
				Action: syncAction,
			},
			{
				Name:  "render",
				Usage: "print the note of an episode",
				Flags: append(episodeFlags,
					&cli.BoolFlag{Name: "check", Usage: "verify the front matter instead of printing the note"},
				),
				Action: renderAction,
			},
			{
				Name:   "token",
				Usage:  "force an OAuth refresh of the Google Drive access token",
				Action: tokenAction,
			},
		},
	}
}

func syncAction(ctx context.Context, c *cli.Command) error {
	ep, podcast, pageID, err := readEpisode(c)
	if err != nil {
		return err
	}

	cfg := config.Load()
	res, err := exporter.NewFromConfig(cfg, http.DefaultClient).Sync(ctx, ep, podcast, pageID)
	if err != nil {
		return fmt.Errorf("sync episode %s: %w", ep.Eid, err)
	}

	switch res.Skipped {
	case exporter.SkipDisabled:
		fmt.Fprintln(c.Root().Writer, "skipped: OBSIDIAN_SYNC_ENABLED is off")
		return nil
	case exporter.SkipNoExportDir:
		fmt.Fprintln(c.Root().Writer, "skipped: OBSIDIAN_EXPORT_DIR is empty")
		return nil
	}

	fmt.Fprintf(c.Root().Writer, "note: %s\n", res.Path)
	fmt.Fprintf(c.Root().Writer, "drive: %s", res.Remote)
	if res.RemoteFileID != "" {
		fmt.Fprintf(c.Root().Writer, " (%s)", res.RemoteFileID)
	}
	fmt.Fprintln(c.Root().Writer)
	return nil
}

func renderAction(ctx context.Context, c *cli.Command) error {
	ep, podcast, pageID, err := readEpisode(c)
	if err != nil {
		return err
	}

	cfg := config.Load()
	note := notes.Formatter{NotionHost: cfg.Export.NotionHost}.Render(ep, podcast, pageID)

	if !c.Bool("check") {
		_, err := io.WriteString(c.Root().Writer, note)
		return err
	}

	return checkNote(c.Root().Writer, note)
}

func checkNote(out io.Writer, note string) error {
	matter, body, err := notes.ParseFrontMatter(strings.NewReader(note))
	if err != nil {
		return fmt.Errorf("parse front matter: %w", err)
	}

	var missing []string
	for _, key := range frontMatterKeys {
		if _, ok := matter[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("front matter is missing %s", strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(strings.TrimLeft(body, "\n"), "# ") {
		return errors.New("note body does not start with a title heading")
	}

	fmt.Fprintf(out, "ok: %d front matter keys\n", len(matter))
	return nil
}

func tokenAction(ctx context.Context, c *cli.Command) error {
	cfg := config.Load()
	if !cfg.OAuth.Configured() {
		return credentials.ErrNotConfigured
	}

	store := envfile.New(cfg.EnvFile)
	provider := credentials.NewProvider(cfg.OAuth, credentials.NewTokenCell(""), store, http.DefaultClient)

	token, err := provider.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}

	if saved, ok, err := store.Get(config.AccessTokenKey); err == nil && ok && saved == token {
		fmt.Fprintf(c.Root().Writer, "token refreshed (%s), saved to %s\n", maskToken(token), cfg.EnvFile)
	} else {
		fmt.Fprintf(c.Root().Writer, "token refreshed (%s), %s not found so it was not saved\n", maskToken(token), cfg.EnvFile)
	}
	return nil
}

// readEpisode loads the episode named by --file and applies the
// --podcast and --notion-page-id overrides.
func readEpisode(c *cli.Command) (models.Episode, string, string, error) {
	var (
		r   io.Reader
		ep  models.Episode
		src = c.String("file")
	)

	if src == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(src)
		if err != nil {
			return ep, "", "", fmt.Errorf("open episode file: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&ep); err != nil {
		return ep, "", "", fmt.Errorf("decode episode %s: %w", src, err)
	}

	podcast := ep.PodcastName
	if p := c.String("podcast"); p != "" {
		podcast = p
	}
	pageID := ep.NotionPageID
	if n := c.String("notion-page-id"); n != "" {
		pageID = n
	}
	return ep, podcast, pageID, nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
