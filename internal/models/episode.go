package models

import "time"

// Episode is one podcast episode as produced by the ingestion pipeline.
// Progress, Duration, PublishedAt and PlayedAt are loose values: the
// pipeline sends numbers (seconds, epoch seconds) but may omit them or send
// text.
type Episode struct {
	Eid           string     `db:"eid" json:"eid"`
	PodcastName   string     `db:"podcast_name" json:"podcast"`
	Title         string     `db:"title" json:"title"`
	Status        string     `db:"status" json:"status"`
	Progress      Field      `db:"progress" json:"progress"`
	Duration      Field      `db:"duration" json:"duration"`
	Description   string     `db:"description" json:"description"`
	AudioURL      string     `db:"audio_url" json:"audio"`
	PlatformURL   string     `db:"platform_url" json:"link"`
	TranscriptURL string     `db:"transcript_url" json:"tongyi_link"`
	PublishedAt   Field      `db:"published_at" json:"published_at"`
	PlayedAt      Field      `db:"played_at" json:"played_at"`
	NotionPageID  string     `db:"notion_page_id" json:"notion_page_id"`
	NotePath      *string    `db:"note_path" json:"-"`
	ExportedAt    *time.Time `db:"exported_at" json:"-"`
}

// EpisodeRef identifies an episode to sync.
type EpisodeRef struct {
	Eid         string `db:"eid"`
	PodcastName string `db:"podcast_name"`
}
