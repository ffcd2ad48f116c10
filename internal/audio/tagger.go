package audio

import (
	"bytes"
	"errors"
	"fmt"
	nethttp "net/http"

	"github.com/bogem/id3v2"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

// ArtworkDescription is the description of the embedded cover picture.
const ArtworkDescription = "Track artwork"

// ErrTagFailed is returned when the ID3 tag cannot be serialized.
var ErrTagFailed = errors.New("tagging failed")

// Tagger writes an ID3v2.3 tag in front of an MP3 buffer.
//
// Frames written, each only when its source value is present:
//   - TPE1 artist, TIT2 title, TYER year, TCON genre, TCOM composer
//   - WOAS source (permalink) URL
//   - COMM comment (track description)
//   - APIC front cover, from the artwork bytes
//
// Example:
//
//	tagger := NewTagger()
//	file, err := tagger.Tag(audioBytes, artworkBytes, track, model.DefaultNamingTemplate())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(file.Name) // "daft punk - around the world.mp3"
type Tagger struct {
	// Language is the ISO-639-2 code of the comment frame.
	Language string
}

// NewTagger creates a new Tagger.
func NewTagger() *Tagger {
	return &Tagger{Language: "eng"}
}

// Tag builds the named, tagged file for track.
//
// Any ID3v2 tag already at the start of audio is replaced. Pass nil artwork
// to produce a file without a cover picture.
func (t *Tagger) Tag(audio, artwork []byte, track *model.ResolvedTrack, naming model.NamingTemplate) (*model.NamedFile, error) {
	tags := track.Tags()

	tag := id3v2.NewEmptyTag()
	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF16)

	t.addTextFrames(tag, tags)

	if len(artwork) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    tag.DefaultEncoding(),
			MimeType:    pictureMimeType(artwork),
			PictureType: id3v2.PTFrontCover,
			Description: ArtworkDescription,
			Picture:     artwork,
		})
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTagFailed, err)
	}
	buf.Write(StripID3v2(audio))

	return &model.NamedFile{
		Name:     naming.FileName(tags),
		MimeType: model.MimeTypeMPEG,
		Data:     buf.Bytes(),
	}, nil
}

func (t *Tagger) addTextFrames(tag *id3v2.Tag, tags model.TagSet) {
	enc := tag.DefaultEncoding()

	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Year != "" {
		tag.AddTextFrame("TYER", enc, tags.Year)
	}
	if tags.Genre != "" {
		tag.SetGenre(tags.Genre)
	}
	if tags.Composer != "" {
		tag.AddTextFrame("TCOM", enc, tags.Composer)
	}
	if tags.SourceURL != "" {
		// URL link frames have no encoding byte; the body is the bare
		// ISO-8859-1 URL.
		tag.AddFrame("WOAS", id3v2.UnknownFrame{Body: []byte(tags.SourceURL)})
	}
	if tags.Comment != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    enc,
			Language:    t.Language,
			Description: "",
			Text:        tags.Comment,
		})
	}
}

// StripID3v2 returns audio without its leading ID3v2 tag, if it has one.
func StripID3v2(audio []byte) []byte {
	const headerSize = 10
	if len(audio) < headerSize || string(audio[:3]) != "ID3" {
		return audio
	}

	size := headerSize + syncsafe(audio[6:10])
	if audio[5]&0x10 != 0 {
		size += headerSize // footer
	}
	if size > len(audio) {
		return audio
	}
	return audio[size:]
}

func syncsafe(b []byte) int {
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

func pictureMimeType(data []byte) string {
	switch mime := nethttp.DetectContentType(data); mime {
	case "image/png", "image/gif", "image/webp":
		return mime
	default:
		return "image/jpeg"
	}
}
