package db

import (
	"podcast-notes/internal/models"

	"github.com/rs/zerolog/log"
)

// Episodes live in the table filled by the ingestion pipeline:
//
//	episodes(eid text primary key, podcast_name text, title text, status text,
//	         progress double precision, duration double precision, description text,
//	         audio_url text, platform_url text, transcript_url text,
//	         published_at bigint, played_at bigint, notion_page_id text,
//	         note_path text, exported_at timestamptz)
const episodeColumns = `
	eid,
	COALESCE(podcast_name, '') AS podcast_name,
	COALESCE(title, '') AS title,
	COALESCE(status, '') AS status,
	progress,
	duration,
	COALESCE(description, '') AS description,
	COALESCE(audio_url, '') AS audio_url,
	COALESCE(platform_url, '') AS platform_url,
	COALESCE(transcript_url, '') AS transcript_url,
	published_at,
	played_at,
	COALESCE(notion_page_id, '') AS notion_page_id,
	note_path,
	exported_at`

func GetEpisodeByEid(eid string) (models.Episode, error) {
	episode := models.Episode{}
	err := DB.Get(&episode, "SELECT"+episodeColumns+" FROM episodes WHERE eid = $1", eid)
	return episode, err
}

// GetEpisodesByPodcast returns the episodes of a podcast, newest first.
func GetEpisodesByPodcast(podcastName string) ([]models.Episode, error) {
	var episodes []models.Episode
	err := DB.Select(&episodes, "SELECT"+episodeColumns+" FROM episodes WHERE podcast_name = $1 ORDER BY published_at DESC NULLS LAST, eid", podcastName)
	if err != nil {
		log.Error().Err(err).Str("podcast", podcastName).Msg("error getting episodes")
		return nil, err
	}
	return episodes, nil
}

// ListEpisodeRefs returns every episode id known to the store.
func ListEpisodeRefs() ([]models.EpisodeRef, error) {
	var refs []models.EpisodeRef
	err := DB.Select(&refs, "SELECT eid, COALESCE(podcast_name, '') AS podcast_name FROM episodes ORDER BY eid")
	return refs, err
}

// MarkEpisodeExported records where the note of an episode was written.
func MarkEpisodeExported(eid string, notePath string) error {
	_, err := DB.Exec("UPDATE episodes SET note_path = $1, exported_at = NOW() WHERE eid = $2", notePath, eid)
	return err
}
