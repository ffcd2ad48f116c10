package audio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/grafov/m3u8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/metrics"
	"github.com/handiism/soundcloud-downloader/internal/model"
)

var (
	// ErrUnknownProtocol is returned for a stream whose protocol is neither
	// progressive nor hls.
	ErrUnknownProtocol = errors.New("unknown stream protocol")

	// ErrFetchFailed is returned when the audio, the playlist or any of its
	// segments cannot be fetched.
	ErrFetchFailed = errors.New("audio fetch failed")
)

// Fetcher retrieves a resource fully into memory.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Downloader is a Fetcher that reports bytes as they arrive.
type Downloader interface {
	Fetcher
	Download(ctx context.Context, rawURL string, onProgress func(written, total int64)) ([]byte, error)
}

// Assembler turns a stream descriptor into a single audio buffer.
//
// Progressive streams are one request. HLS streams are a playlist of
// segments which are fetched concurrently and concatenated in playlist
// order, whatever order they arrive in. A single failed segment fails the
// whole assembly.
//
// Example usage:
//
//	assembler := NewAssembler(client, logger, nil)
//	assembler.OnSegment = func(done, total int) {
//	    fmt.Printf("segment %d/%d\n", done, total)
//	}
//	data, err := assembler.Assemble(ctx, stream, clientID)
type Assembler struct {
	fetcher Fetcher
	logger  *zap.Logger
	metrics *metrics.Metrics

	// OnSegment is called after each HLS segment has been fetched.
	// Calls are serialized.
	OnSegment func(done, total int)

	// OnBytes is called with the size of every chunk received, playlists
	// included, when the fetcher is a Downloader. It may be called
	// concurrently.
	OnBytes func(n int64)
}

// NewAssembler creates an Assembler. logger and m may be nil.
func NewAssembler(fetcher Fetcher, logger *zap.Logger, m *metrics.Metrics) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		fetcher: fetcher,
		logger:  logger,
		metrics: m,
	}
}

// Assemble fetches the audio behind stream. The credential is attached to
// the stream URL; HLS segment URLs are used as the playlist lists them.
func (a *Assembler) Assemble(ctx context.Context, stream *model.StreamDescriptor, credential string) ([]byte, error) {
	streamURL, err := http.WithQueryParam(stream.URL, "client_id", credential)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid stream URL: %v", ErrFetchFailed, err)
	}

	var data []byte
	switch stream.Protocol {
	case model.ProtocolProgressive:
		data, err = a.fetch(ctx, streamURL)
	case model.ProtocolHLS:
		data, err = a.assembleHLS(ctx, streamURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, stream.Protocol)
	}
	if err != nil {
		return nil, err
	}

	a.metrics.ObserveAssembled(len(data))
	return data, nil
}

func (a *Assembler) assembleHLS(ctx context.Context, playlistURL string) ([]byte, error) {
	playlist, err := a.fetch(ctx, playlistURL)
	if err != nil {
		return nil, err
	}

	segments, err := SegmentURLs(playlist, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	a.logger.Debug("fetching hls segments", zap.Int("count", len(segments)))

	parts := make([][]byte, len(segments))
	var (
		mu   sync.Mutex
		done int
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, segURL := range segments {
		g.Go(func() error {
			data, err := a.fetch(ctx, segURL)
			if err != nil {
				return err
			}
			parts[i] = data
			a.metrics.ObserveSegment()

			mu.Lock()
			done++
			if a.OnSegment != nil {
				a.OnSegment(done, len(segments))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return bytes.Join(parts, nil), nil
}

func (a *Assembler) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := a.get(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return data, nil
}

func (a *Assembler) get(ctx context.Context, rawURL string) ([]byte, error) {
	d, ok := a.fetcher.(Downloader)
	if !ok || a.OnBytes == nil {
		return a.fetcher.Get(ctx, rawURL)
	}

	var last int64
	return d.Download(ctx, rawURL, func(written, _ int64) {
		a.OnBytes(written - last)
		last = written
	})
}

// SegmentURLs lists the segment URLs of an HLS media playlist in order,
// resolved against playlistURL.
//
// Every non-empty line not starting with '#' is a segment. The m3u8
// decoding is used only when it yields exactly those segments; a URI line
// without a preceding #EXTINF would otherwise be dropped.
func SegmentURLs(playlist []byte, playlistURL string) ([]string, error) {
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, err
	}

	uris := scanSegmentLines(playlist)
	if decoded := decodeMediaSegments(playlist); len(decoded) > 0 && len(decoded) == len(uris) {
		uris = decoded
	}

	resolved := make([]string, 0, len(uris))
	for _, uri := range uris {
		ref, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", uri, err)
		}
		resolved = append(resolved, base.ResolveReference(ref).String())
	}
	return resolved, nil
}

// decodeMediaSegments returns nil unless playlist is a media playlist
// with at least one segment.
func decodeMediaSegments(playlist []byte) []string {
	p, listType, err := m3u8.DecodeFrom(bytes.NewReader(playlist), false)
	if err != nil || listType != m3u8.MEDIA {
		return nil
	}
	media, ok := p.(*m3u8.MediaPlaylist)
	if !ok {
		return nil
	}

	var uris []string
	for _, seg := range media.Segments {
		if seg == nil {
			break
		}
		uris = append(uris, seg.URI)
	}
	return uris
}

func scanSegmentLines(playlist []byte) []string {
	var uris []string
	scanner := bufio.NewScanner(bytes.NewReader(playlist))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}
	return uris
}
