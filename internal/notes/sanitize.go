package notes

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"podcast-notes/internal/models"
)

const (
	fallbackName   = "untitled"
	maxTitleRunes  = 80
	noteExtension  = ".md"
	unknownEid     = "unknown"
	untitledTitle  = "Untitled"
	defaultPodcast = "Podcast"
)

var reservedRun = regexp.MustCompile(`[\\/:*?"<>|]+`)

// SafeFilename replaces every run of characters reserved on common
// filesystems with a single underscore and trims surrounding whitespace.
// It never returns an empty string.
func SafeFilename(raw string) string {
	cleaned := strings.TrimSpace(reservedRun.ReplaceAllString(raw, "_"))
	if cleaned == "" {
		return fallbackName
	}
	return cleaned
}

// NoteFileName returns the file name of an episode note:
// {eid}-{title truncated to 80 runes}.md
func NoteFileName(ep models.Episode) string {
	eid := ep.Eid
	if eid == "" {
		eid = unknownEid
	}
	title := ep.Title
	if title == "" {
		title = untitledTitle
	}
	return SafeFilename(eid) + "-" + truncateRunes(SafeFilename(title), maxTitleRunes) + noteExtension
}

// PodcastDir returns the directory name used for a podcast.
func PodcastDir(podcast string) string {
	if podcast == "" {
		podcast = defaultPodcast
	}
	return SafeFilename(podcast)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
