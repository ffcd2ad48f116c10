// Package model defines the core data structures used throughout
// the soundcloud-downloader application.
//
// # ResolvedTrack
//
// ResolvedTrack is the resolver API's description of a track together with
// its transcodings. Tags derives the values written to the ID3 tag:
//
//	tags := track.Tags()
//	fmt.Println(tags.Artist, tags.Title, tags.Year)
//
// # File Naming
//
// NamingTemplate renders a user-configurable template into a sanitized file name:
//
//	nt := model.NamingTemplate{Format: "{artist} - {title}", Lowercase: true}
//	name := nt.FileName(track.Tags()) // "artist - title.mp3"
//
// Available placeholders: {artist}, {title}, {year}, {genre}, {album}, {username}, {comment}
//
// # Track Locators
//
// NormalizeLocator turns a link found on a page into the absolute URL the
// resolver API expects.
package model
