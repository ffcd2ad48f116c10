package dto

import "github.com/handiism/soundcloud-downloader/internal/model"

// JSONTrack represents the resolver API's track payload.
type JSONTrack struct {
	ID           int64              `json:"id"`
	Kind         string             `json:"kind"`
	Title        string             `json:"title"`
	Description  *string            `json:"description"`
	Genre        *string            `json:"genre"`
	PermalinkURL string             `json:"permalink_url"`
	ArtworkURL   *string            `json:"artwork_url"`
	CreatedAt    string             `json:"created_at"`
	ReleaseDate  *string            `json:"release_date"`
	Duration     int64              `json:"duration"`
	User         *JSONUser          `json:"user"`
	Publisher    *JSONPublisherData `json:"publisher_metadata"`
	Media        *JSONMedia         `json:"media"`
}

// JSONUser is the owner of a track.
type JSONUser struct {
	Username     string  `json:"username"`
	AvatarURL    *string `json:"avatar_url"`
	PermalinkURL string  `json:"permalink_url"`
}

// JSONPublisherData holds label-provided metadata. Every field may be null.
type JSONPublisherData struct {
	Artist         *string `json:"artist"`
	ReleaseTitle   *string `json:"release_title"`
	AlbumTitle     *string `json:"album_title"`
	WriterComposer *string `json:"writer_composer"`
}

// JSONMedia wraps the list of transcodings.
type JSONMedia struct {
	Transcodings []JSONTranscoding `json:"transcodings"`
}

// JSONTranscoding is one encoded variant of a track.
type JSONTranscoding struct {
	URL     string     `json:"url"`
	Preset  string     `json:"preset"`
	Quality string     `json:"quality"`
	Snipped bool       `json:"snipped"`
	Format  JSONFormat `json:"format"`
}

// JSONFormat describes how a transcoding is delivered.
type JSONFormat struct {
	Protocol string `json:"protocol"`
	MimeType string `json:"mime_type"`
}

// JSONStream is the body returned when a transcoding URL is activated.
type JSONStream struct {
	URL string `json:"url"`
}

// ToTrack converts JSONTrack to a model.ResolvedTrack.
func (jt *JSONTrack) ToTrack() *model.ResolvedTrack {
	track := &model.ResolvedTrack{
		ID:           jt.ID,
		Title:        jt.Title,
		Description:  deref(jt.Description),
		Genre:        deref(jt.Genre),
		PermalinkURL: jt.PermalinkURL,
		ArtworkURL:   deref(jt.ArtworkURL),
		CreatedAt:    jt.CreatedAt,
		ReleaseDate:  deref(jt.ReleaseDate),
		Duration:     jt.Duration,
	}

	if jt.User != nil {
		track.User = model.User{
			Username:     jt.User.Username,
			AvatarURL:    deref(jt.User.AvatarURL),
			PermalinkURL: jt.User.PermalinkURL,
		}
	}

	if jt.Publisher != nil {
		track.Publisher = model.Publisher{
			Artist:       deref(jt.Publisher.Artist),
			ReleaseTitle: deref(jt.Publisher.ReleaseTitle),
			AlbumTitle:   deref(jt.Publisher.AlbumTitle),
			Composer:     deref(jt.Publisher.WriterComposer),
		}
	}

	if jt.Media != nil {
		for _, t := range jt.Media.Transcodings {
			track.Transcodings = append(track.Transcodings, t.ToTranscoding())
		}
	}

	return track
}

// ToTranscoding converts JSONTranscoding to a model.Transcoding.
func (jt JSONTranscoding) ToTranscoding() model.Transcoding {
	return model.Transcoding{
		URL:      jt.URL,
		MimeType: jt.Format.MimeType,
		Protocol: jt.Format.Protocol,
		Preset:   jt.Preset,
		Quality:  jt.Quality,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
