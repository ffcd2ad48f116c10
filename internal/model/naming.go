package model

import (
	"regexp"
	"strings"
)

// Naming defaults used whenever the preference store is empty or unreadable.
const (
	DefaultFormat    = "{artist} - {title}"
	DefaultLowercase = true

	// FallbackFileName replaces a name that is empty after sanitization.
	FallbackFileName = "untitled"

	// FileExtension is appended to every produced file. The stream selector
	// only accepts audio/mpeg, so the payload is always MP3.
	FileExtension = ".mp3"
)

var (
	tokenPattern        = regexp.MustCompile(`\{(\w+)\}`)
	invalidCharsPattern = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// NamingTemplate turns track fields into a file name.
//
// Format supports the placeholders {artist}, {title}, {year}, {genre},
// {album}, {username} and {comment}. Unknown placeholders and absent values
// render as empty strings.
//
// Example:
//
//	nt := NamingTemplate{Format: "{artist} - {title}", Lowercase: true}
//	nt.FileName(track.Tags()) // "daft punk - around the world.mp3"
type NamingTemplate struct {
	Format    string
	Lowercase bool
}

// DefaultNamingTemplate returns the template used when no preference is stored.
func DefaultNamingTemplate() NamingTemplate {
	return NamingTemplate{Format: DefaultFormat, Lowercase: DefaultLowercase}
}

// FileName renders the template for tags and returns a sanitized file name
// including the extension.
func (nt NamingTemplate) FileName(tags TagSet) string {
	return nt.Render(tags.tokens()) + FileExtension
}

// Render renders the template against arbitrary token data without the
// extension. It is used for previews of user-entered templates.
func (nt NamingTemplate) Render(data map[string]string) string {
	format := nt.Format
	if format == "" {
		format = DefaultFormat
	}

	name := RenderTemplate(format, data)
	if nt.Lowercase {
		name = strings.ToLower(name)
	}

	name = SanitizeFileName(name)
	if name == "" {
		return FallbackFileName
	}
	return name
}

// RenderTemplate replaces every {token} in format with data[token],
// or with an empty string when the token has no value.
func RenderTemplate(format string, data map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(format, func(match string) string {
		token := tokenPattern.FindStringSubmatch(match)[1]
		return data[token]
	})
}

// SanitizeFileName removes characters that are invalid in file names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are removed
//   - Runs of whitespace are collapsed to a single space
//   - Leading spaces, trailing spaces and trailing dots are removed
//
// Applying SanitizeFileName to its own output returns the same string.
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2  ") // Returns "Song Part 12"
func SanitizeFileName(name string) string {
	name = invalidCharsPattern.ReplaceAllString(name, "")
	name = whitespacePattern.ReplaceAllString(name, " ")
	name = strings.TrimLeft(name, " ")

	// Windows refuses names ending with dots.
	return strings.TrimRight(name, ". ")
}
