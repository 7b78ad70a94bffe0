package feed

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"podcast-notes/internal/models"
)

// GetBaseURL returns baseURL when set, otherwise derives it from the request.
func GetBaseURL(baseURL string, r *http.Request) string {
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/")
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if r.Header.Get("X-Forwarded-Proto") != "" {
			scheme = r.Header.Get("X-Forwarded-Proto")
		}
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GenerateRSS renders the episodes of one podcast as an RSS feed. Episodes
// without an audio URL are left out.
func GenerateRSS(podcastName string, baseURL string, episodes []models.Episode) (string, error) {
	now := time.Unix(0, 0).UTC()
	for _, ep := range episodes {
		if t, ok := publishedTime(ep); ok && t.After(now) {
			now = t
		}
	}

	p := podcast.New(
		podcastName,
		fmt.Sprintf("%s/podcasts/%s/rss", baseURL, url.PathEscape(podcastName)),
		fmt.Sprintf("Listening notes for %s.", podcastName),
		&now, &now,
	)

	for _, ep := range episodes {
		if ep.AudioURL == "" {
			continue
		}
		title := ep.Title
		if title == "" {
			title = "Untitled"
		}
		description := ep.Description
		if description == "" {
			description = "(empty)"
		}
		link := ep.PlatformURL
		if link == "" {
			link = ep.AudioURL
		}

		item := podcast.Item{
			GUID:        ep.Eid,
			Title:       title,
			Description: description,
			Link:        link,
		}
		if t, ok := publishedTime(ep); ok {
			item.PubDate = &t
		}
		item.AddEnclosure(ep.AudioURL, enclosureType(ep.AudioURL), 0)
		if _, err := p.AddItem(item); err != nil {
			return "", err
		}
	}

	return p.String(), nil
}

func publishedTime(ep models.Episode) (time.Time, bool) {
	if !ep.PublishedAt.IsNumber() {
		return time.Time{}, false
	}
	return time.Unix(int64(ep.PublishedAt.Float()), 0).UTC(), true
}

func enclosureType(audioURL string) podcast.EnclosureType {
	u, err := url.Parse(audioURL)
	if err != nil {
		return podcast.MP3
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".m4a":
		return podcast.M4A
	case ".mp4":
		return podcast.MP4
	default:
		return podcast.MP3
	}
}
