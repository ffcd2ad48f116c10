package model

import (
	"regexp"
	"strings"
)

// Delivery protocols a transcoding can be served with.
const (
	ProtocolProgressive = "progressive"
	ProtocolHLS         = "hls"
)

// MimeTypeMPEG is the only encoding family the pipeline downloads.
const MimeTypeMPEG = "audio/mpeg"

// ResolvedTrack is the resolver API's description of a track.
//
// A ResolvedTrack is owned by a single resolution request and is not modified
// after it has been fetched. Optional fields are empty strings when the API
// does not provide them.
type ResolvedTrack struct {
	ID           int64
	Title        string
	Description  string
	Genre        string
	PermalinkURL string
	ArtworkURL   string

	// CreatedAt and ReleaseDate are kept as the API returns them
	// (e.g. "2019-03-01T10:00:00Z"); only their year is used for tagging.
	CreatedAt   string
	ReleaseDate string

	// Duration is the track length in milliseconds.
	Duration int64

	User      User
	Publisher Publisher

	Transcodings []Transcoding
}

// User is the owner of a track.
type User struct {
	Username     string
	AvatarURL    string
	PermalinkURL string
}

// Publisher holds the optional label-provided metadata of a track.
type Publisher struct {
	Artist       string
	ReleaseTitle string
	AlbumTitle   string
	Composer     string
}

// Transcoding is a server-offered encoded variant of a track.
//
// URL is a template that must be activated (with a credential attached)
// to obtain a concrete StreamDescriptor.
type Transcoding struct {
	URL      string
	MimeType string
	Protocol string
	Preset   string
	Quality  string
}

// StreamDescriptor is an activated Transcoding: a concrete, time-limited URL
// plus the protocol needed to assemble the audio behind it.
type StreamDescriptor struct {
	URL      string
	Protocol string
	MimeType string
}

// TagSet is the mapping from track fields to tag frames and file name tokens.
// An empty field means "absent".
type TagSet struct {
	Artist    string
	Title     string
	Year      string
	Genre     string
	Composer  string
	SourceURL string
	Comment   string
	Album     string
	Username  string
}

// Tags derives the TagSet of the track.
//
// Priority rules:
//   - artist: publisher artist, else owner username
//   - title: publisher release title, else track title
//   - year: year of the release date, else year of the creation date
func (t *ResolvedTrack) Tags() TagSet {
	return TagSet{
		Artist:    firstNonEmpty(t.Publisher.Artist, t.User.Username),
		Title:     firstNonEmpty(t.Publisher.ReleaseTitle, t.Title),
		Year:      firstNonEmpty(yearOf(t.ReleaseDate), yearOf(t.CreatedAt)),
		Genre:     t.Genre,
		Composer:  t.Publisher.Composer,
		SourceURL: t.PermalinkURL,
		Comment:   t.Description,
		Album:     t.Publisher.AlbumTitle,
		Username:  t.User.Username,
	}
}

// CoverURL returns the artwork URL to embed: the track artwork, falling back
// to the owner's avatar. Empty when neither is available.
func (t *ResolvedTrack) CoverURL() string {
	return firstNonEmpty(t.ArtworkURL, t.User.AvatarURL)
}

// tokens returns the values available to a NamingTemplate.
func (ts TagSet) tokens() map[string]string {
	return map[string]string{
		"artist":   ts.Artist,
		"title":    ts.Title,
		"year":     ts.Year,
		"genre":    ts.Genre,
		"album":    ts.Album,
		"username": ts.Username,
		"comment":  ts.Comment,
	}
}

var leadingYear = regexp.MustCompile(`^\d{4}`)

// yearOf returns the leading four-digit year of date, or "" when date does
// not start with one.
func yearOf(date string) string {
	return leadingYear.FindString(strings.TrimSpace(date))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
