package model

import (
	"errors"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file", "normal-file"},
		{"file:with:colons", "filewithcolons"},
		{"file<with>brackets", "filewithbrackets"},
		{"file/with\\slashes", "filewithslashes"},
		{"file|with|pipes", "filewithpipes"},
		{"file?with*wildcards", "filewithwildcards"},
		{"file\"with\"quotes", "filewithquotes"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"  surrounding spaces   ", "surrounding spaces"},
		{"tab\tand\nnewline", "tabandnewline"},
		{"dots . . .", "dots"},
		{"???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := SanitizeFileName(got); again != got {
				t.Errorf("SanitizeFileName not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	data := map[string]string{"artist": "Daft Punk", "title": "Around The World", "year": ""}

	tests := []struct {
		format string
		want   string
	}{
		{"{artist} - {title}", "Daft Punk - Around The World"},
		{"{year}{artist}", "Daft Punk"},
		{"{unknown}-{title}", "-Around The World"},
		{"no tokens", "no tokens"},
		{"{artist", "{artist"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := RenderTemplate(tt.format, data); got != tt.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestNamingTemplate_FileName(t *testing.T) {
	track := &ResolvedTrack{Title: "X", User: User{Username: "Y"}}

	tests := []struct {
		name string
		nt   NamingTemplate
		want string
	}{
		{"default lowercase", DefaultNamingTemplate(), "y - x.mp3"},
		{"keep case", NamingTemplate{Format: "{artist} - {title}"}, "Y - X.mp3"},
		{"absent fields render empty", NamingTemplate{Format: "{genre}{album}{title}"}, "X.mp3"},
		{"empty falls back", NamingTemplate{Format: "{comment}"}, "untitled.mp3"},
		{"empty format uses default", NamingTemplate{Lowercase: true}, "y - x.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.nt.FileName(track.Tags()); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvedTrack_Tags(t *testing.T) {
	track := &ResolvedTrack{
		Title:        "Original Title",
		Genre:        "House",
		Description:  "desc",
		PermalinkURL: "https://soundcloud.com/a/b",
		CreatedAt:    "2018-04-02T10:00:00Z",
		User:         User{Username: "uploader"},
		Publisher: Publisher{
			Artist:       "Real Artist",
			ReleaseTitle: "Release Title",
			AlbumTitle:   "Album",
			Composer:     "Composer",
		},
	}

	tags := track.Tags()
	if tags.Artist != "Real Artist" {
		t.Errorf("Artist = %q, want publisher artist", tags.Artist)
	}
	if tags.Title != "Release Title" {
		t.Errorf("Title = %q, want publisher release title", tags.Title)
	}
	if tags.Year != "2018" {
		t.Errorf("Year = %q, want year of created_at", tags.Year)
	}
	if tags.Username != "uploader" || tags.Album != "Album" || tags.Composer != "Composer" {
		t.Errorf("unexpected tags: %+v", tags)
	}

	track.ReleaseDate = "2017-01-01T00:00:00Z"
	if got := track.Tags().Year; got != "2017" {
		t.Errorf("Year = %q, want release year to take priority", got)
	}

	bare := &ResolvedTrack{Title: "t", User: User{Username: "u"}}
	if got := bare.Tags(); got.Artist != "u" || got.Title != "t" || got.Year != "" {
		t.Errorf("fallback tags = %+v", got)
	}
}

func TestYearOf(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2019-03-01T10:00:00Z", "2019"},
		{"2019/03/01", "2019"},
		{" 2020 ", "2020"},
		{"garbage", ""},
		{"19-03-01", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := yearOf(tt.date); got != tt.want {
			t.Errorf("yearOf(%q) = %q, want %q", tt.date, got, tt.want)
		}
	}

	track := &ResolvedTrack{Title: "t", ReleaseDate: "unknown", CreatedAt: "2018-04-02T10:00:00Z"}
	if got := track.Tags().Year; got != "2018" {
		t.Errorf("Year = %q, want created_at year when release date is unparsable", got)
	}
}

func TestResolvedTrack_CoverURL(t *testing.T) {
	track := &ResolvedTrack{User: User{AvatarURL: "https://i1.sndcdn.com/avatar-large.jpg"}}
	if got := track.CoverURL(); got != track.User.AvatarURL {
		t.Errorf("CoverURL() = %q, want avatar fallback", got)
	}

	track.ArtworkURL = "https://i1.sndcdn.com/artworks-large.jpg"
	if got := track.CoverURL(); got != track.ArtworkURL {
		t.Errorf("CoverURL() = %q, want artwork", got)
	}
}

func TestNormalizeLocator(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"https://soundcloud.com/artist/track", "https://soundcloud.com/artist/track", false},
		{"https://soundcloud.com/artist/track?in=artist/sets/x", "https://soundcloud.com/artist/track", false},
		{"/artist/track", "https://soundcloud.com/artist/track", false},
		{"  https://example.com/artist/track#t=1  ", "https://example.com/artist/track", false},
		{"", "", true},
		{"ftp://soundcloud.com/a/b", "", true},
		{"https://soundcloud.com/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeLocator(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrTrackLocatorNotFound) {
					t.Errorf("expected ErrTrackLocatorNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeLocator(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNamedFile_Release(t *testing.T) {
	f := &NamedFile{Name: "a.mp3", Data: []byte{1, 2, 3}}
	if f.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", f.Size())
	}
	f.Release()
	if f.Data != nil || f.Size() != 0 {
		t.Error("Release() should drop the payload")
	}
}
