// Package notes renders podcast episodes as Markdown notes with a YAML
// front matter block, ready to be dropped into an Obsidian vault.
package notes

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"podcast-notes/internal/models"
)

const (
	DefaultNotionHost = "www.notion.so"
	frontMatterFence  = "---"
	timestampLayout   = "2006-01-02 15:04:05"
	emptyDescription  = "(empty)"
	nullLiteral       = "null"
)

// noteZone is the civil time zone notes are written in (UTC+8, no DST).
var noteZone = time.FixedZone("UTC+8", 8*60*60)

// Formatter renders episode notes. The zero value links Notion pages on
// DefaultNotionHost.
type Formatter struct {
	NotionHost string
}

// Render renders an episode with the default Formatter.
func Render(ep models.Episode, podcast string, notionPageID string) string {
	return Formatter{}.Render(ep, podcast, notionPageID)
}

// Render builds the note text. The output depends only on its arguments.
func (f Formatter) Render(ep models.Episode, podcast string, notionPageID string) string {
	title := ep.Title
	if title == "" {
		title = untitledTitle
	}
	published := formatTimestamp(ep.PublishedAt)
	played := formatTimestamp(ep.PlayedAt)
	notionURL := f.notionURL(notionPageID)

	lines := []string{
		frontMatterFence,
		quoted("title", title),
		quoted("podcast", podcast),
		quoted("eid", ep.Eid),
		quoted("status", ep.Status),
		"progress_seconds: " + numberOrNull(ep.Progress),
		"duration_seconds: " + numberOrNull(ep.Duration),
		quoted("published_at", published),
		quoted("played_at", played),
		quoted("notion_page_id", notionPageID),
		quoted("notion_url", notionURL),
		quoted("xiaoyuzhou_url", ep.PlatformURL),
		quoted("tongyi_url", ep.TranscriptURL),
		frontMatterFence,
		"",
		"# " + title,
		"",
		"- Podcast: " + podcast,
		"- Status: " + ep.Status,
		"- Published: " + published,
		"- Played: " + played,
		"- Progress: " + ep.Progress.String(),
		"- Duration: " + ep.Duration.String(),
		"",
		"## Description",
		"",
		orDefault(ep.Description, emptyDescription),
		"",
	}

	links := []struct{ label, url string }{
		{"Audio Link", ep.AudioURL},
		{"Xiaoyuzhou", ep.PlatformURL},
		{"Tongyi Transcript", ep.TranscriptURL},
		{"Notion Page", notionURL},
	}
	for _, l := range links {
		if l.url != "" {
			lines = append(lines, fmt.Sprintf("[%s](%s)", l.label, l.url))
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

func (f Formatter) notionURL(pageID string) string {
	if pageID == "" {
		return ""
	}
	host := f.NotionHost
	if host == "" {
		host = DefaultNotionHost
	}
	return "https://" + host + "/" + strings.ReplaceAll(pageID, "-", "")
}

// EscapeYAML escapes backslashes and double quotes for a double-quoted
// YAML scalar. Nothing else is escaped.
func EscapeYAML(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func quoted(key, value string) string {
	return key + `: "` + EscapeYAML(value) + `"`
}

func numberOrNull(f models.Field) string {
	if f.IsNumber() {
		return f.String()
	}
	return nullLiteral
}

// formatTimestamp renders epoch seconds in UTC+8. Text is passed through,
// absent values render empty.
func formatTimestamp(f models.Field) string {
	switch f.Kind() {
	case models.FieldNumber:
		return time.Unix(int64(f.Float()), 0).In(noteZone).Format(timestampLayout)
	case models.FieldText:
		return f.String()
	default:
		return ""
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ParseFrontMatter splits a rendered note into its front matter values and
// body.
func ParseFrontMatter(r io.Reader) (map[string]any, string, error) {
	meta := map[string]any{}
	body, err := frontmatter.MustParse(r, &meta)
	if err != nil {
		return nil, "", fmt.Errorf("parse front matter: %w", err)
	}
	return meta, string(body), nil
}
