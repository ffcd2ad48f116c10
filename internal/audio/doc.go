// Package audio turns stream descriptors into tagged MP3 files.
//
// # Assembly
//
// The Assembler fetches the audio behind a stream descriptor:
//
//	assembler := audio.NewAssembler(client, logger, nil)
//	data, err := assembler.Assemble(ctx, stream, clientID)
//
// Progressive streams are fetched with a single request. HLS streams are
// fetched as a playlist whose segments are downloaded concurrently and
// concatenated in playlist order.
//
// # ID3 Tagging
//
// The Tagger prepends an ID3v2.3 tag to the assembled audio and names the
// result:
//
//	file, err := audio.NewTagger().Tag(data, artwork, track, naming)
//
// The tag carries artist, title, year, genre, composer, source URL, comment
// and front cover art, each only when available.
//
// # Playlist Generation
//
// Batch downloads can be listed in a playlist:
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist("soundcloud", entries)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
