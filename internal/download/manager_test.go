package download

import (
	"bytes"
	"context"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bogem/id3v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/metrics"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

const testClientID = "abcdefghijklmnopqrstuvwxyz012345"

var (
	testAudio   = []byte{0xff, 0xfb, 0x90, 0x64, 1, 2, 3, 4}
	testArtwork = []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F'}
)

// fakeSoundCloud serves the page, script assets, API and CDN of a
// SoundCloud look-alike.
type fakeSoundCloud struct {
	*httptest.Server

	artworkStatus int
	artworkHangs  bool
	mediaStatus   int
	pageFetches   atomic.Int32
	noClientID    bool
}

func newFakeSoundCloud(t *testing.T) *fakeSoundCloud {
	f := &fakeSoundCloud{artworkStatus: nethttp.StatusOK, mediaStatus: nethttp.StatusOK}
	f.Server = httptest.NewServer(nethttp.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSoundCloud) serve(w nethttp.ResponseWriter, r *nethttp.Request) {
	switch {
	case r.URL.Path == "/":
		f.pageFetches.Add(1)
		fmt.Fprint(w, `<html><script src="/sndcdn.com/assets/0-app.js"></script></html>`)
	case r.URL.Path == "/sndcdn.com/assets/0-app.js":
		if f.noClientID {
			fmt.Fprint(w, `var a=1;`)
			return
		}
		fmt.Fprintf(w, `n={},client_id:"%s",x=2`, testClientID)
	case r.URL.Path == "/resolve":
		if r.URL.Query().Get("client_id") != testClientID {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		f.resolve(w, r)
	case strings.HasPrefix(r.URL.Path, "/media/"):
		if f.mediaStatus != nethttp.StatusOK {
			w.WriteHeader(f.mediaStatus)
			return
		}
		fmt.Fprintf(w, `{"url": "%s/cdn/%s.mp3"}`, f.URL, strings.TrimPrefix(r.URL.Path, "/media/"))
	case strings.HasPrefix(r.URL.Path, "/cdn/"):
		w.Write(testAudio)
	case r.URL.Path == "/artworks-t500x500.jpg":
		if f.artworkHangs {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		if f.artworkStatus != nethttp.StatusOK {
			w.WriteHeader(f.artworkStatus)
			return
		}
		w.Write(testArtwork)
	default:
		nethttp.NotFound(w, r)
	}
}

func (f *fakeSoundCloud) resolve(w nethttp.ResponseWriter, r *nethttp.Request) {
	locator := r.URL.Query().Get("url")
	slug := locator[strings.LastIndex(locator, "/")+1:]
	if slug == "missing" {
		nethttp.NotFound(w, r)
		return
	}

	fmt.Fprintf(w, `{
		"id": 1,
		"title": %q,
		"permalink_url": %q,
		"artwork_url": "%s/artworks-large.jpg",
		"created_at": "2019-03-01T10:00:00Z",
		"duration": 180000,
		"user": {"username": "y"},
		"media": {"transcodings": [
			{"url": "%s/media/%s", "format": {"protocol": "progressive", "mime_type": "audio/mpeg"}}
		]}
	}`, slug, locator, f.URL, f.URL, slug)
}

type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) record(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var states []State
	for _, e := range r.events {
		if e.Level != LevelWarning && (len(states) == 0 || states[len(states)-1] != e.State) {
			states = append(states, e.State)
		}
	}
	return states
}

func testSettings(t *testing.T, srv *fakeSoundCloud) *config.Settings {
	settings := config.DefaultSettings()
	settings.OutputDir = t.TempDir()
	settings.APIBaseURL = srv.URL
	settings.SiteURL = srv.URL + "/"
	return settings
}

func TestManager_ResolveAndSave(t *testing.T) {
	srv := newFakeSoundCloud(t)
	settings := testSettings(t, srv)
	rec := &recorder{}
	m := metrics.New(prometheus.NewRegistry())

	manager := NewManager(settings, zaptest.NewLogger(t), m, rec.record)
	path, err := manager.ResolveAndSave(context.Background(), "/y/x?in=playlist")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(settings.OutputDir, "y - x.mp3"), path)
	assert.Equal(t, []State{
		StateResolving,
		StateSelectingStream,
		StateFetchingArtwork,
		StateTagging,
		StateSaved,
	}, rec.states())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, testAudio))

	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	require.NoError(t, err)
	assert.Equal(t, "y", tag.Artist())
	assert.Equal(t, "x", tag.Title())
	assert.Equal(t, "2019", tag.Year())
	require.Len(t, tag.GetFrames("APIC"), 1)

	saved, failed := manager.Stats()
	assert.Equal(t, int32(1), saved)
	assert.Equal(t, int32(0), failed)
	assert.Equal(t, int64(len(testAudio)), manager.ReceivedBytes())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtworkTotal.WithLabelValues("fetched")))
}

func TestManager_ResolveFailedSavesNothing(t *testing.T) {
	srv := newFakeSoundCloud(t)
	settings := testSettings(t, srv)
	rec := &recorder{}

	manager := NewManager(settings, zaptest.NewLogger(t), nil, rec.record)
	_, err := manager.ResolveAndSave(context.Background(), "https://soundcloud.com/y/missing")

	require.ErrorIs(t, err, soundcloud.ErrResolveFailed)
	entries, err := os.ReadDir(settings.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	states := rec.states()
	assert.Equal(t, StateFailed, states[len(states)-1])
}

func TestManager_ArtworkFailureStillSaves(t *testing.T) {
	srv := newFakeSoundCloud(t)
	srv.artworkStatus = nethttp.StatusForbidden
	settings := testSettings(t, srv)
	rec := &recorder{}
	m := metrics.New(prometheus.NewRegistry())

	manager := NewManager(settings, zaptest.NewLogger(t), m, rec.record)
	path, err := manager.ResolveAndSave(context.Background(), "https://soundcloud.com/y/x")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	require.NoError(t, err)
	assert.Empty(t, tag.GetFrames("APIC"))

	var warned bool
	for _, e := range rec.events {
		if e.Level == LevelWarning && e.State == StateFetchingArtwork {
			warned = true
			assert.Contains(t, e.Message, ErrArtworkFetchFailed.Error())
		}
	}
	assert.True(t, warned, "artwork failure should be reported")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtworkTotal.WithLabelValues("failed")))
}

func TestManager_StreamFailureDoesNotReportArtwork(t *testing.T) {
	srv := newFakeSoundCloud(t)
	srv.mediaStatus = nethttp.StatusForbidden
	srv.artworkHangs = true
	settings := testSettings(t, srv)
	rec := &recorder{}
	m := metrics.New(prometheus.NewRegistry())

	manager := NewManager(settings, zaptest.NewLogger(t), m, rec.record)
	_, err := manager.ResolveAndSave(context.Background(), "https://soundcloud.com/y/x")
	require.ErrorIs(t, err, soundcloud.ErrNoUsableStream)

	for _, e := range rec.events {
		assert.NotEqual(t, LevelWarning, e.Level, "unexpected warning: %s", e.Message)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ArtworkTotal.WithLabelValues("failed")))
}

func TestManager_CredentialNotFoundIsSticky(t *testing.T) {
	srv := newFakeSoundCloud(t)
	srv.noClientID = true
	settings := testSettings(t, srv)

	manager := NewManager(settings, zaptest.NewLogger(t), nil, nil)
	for range 2 {
		_, err := manager.ResolveAndSave(context.Background(), "https://soundcloud.com/y/x")
		assert.ErrorIs(t, err, soundcloud.ErrCredentialNotFound)
	}
	assert.Equal(t, int32(1), srv.pageFetches.Load())
}

func TestManager_StaticClientIDSkipsDiscovery(t *testing.T) {
	srv := newFakeSoundCloud(t)
	settings := testSettings(t, srv)
	settings.ClientID = testClientID

	manager := NewManager(settings, zaptest.NewLogger(t), nil, nil)
	file, err := manager.Resolve(context.Background(), "https://soundcloud.com/y/x")
	require.NoError(t, err)
	defer file.Release()

	assert.Equal(t, "y - x.mp3", file.Name)
	assert.Equal(t, int32(0), srv.pageFetches.Load())
}

func TestManager_DownloadAll(t *testing.T) {
	srv := newFakeSoundCloud(t)
	settings := testSettings(t, srv)
	settings.CreatePlaylist = true
	settings.PlaylistFormat = "m3u"
	settings.M3UExtended = true
	settings.PlaylistName = "mix"

	manager := NewManager(settings, zaptest.NewLogger(t), nil, nil)
	results, err := manager.DownloadAll(context.Background(), []string{
		"https://soundcloud.com/y/a",
		"https://soundcloud.com/y/missing",
		"https://soundcloud.com/y/b",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, soundcloud.ErrResolveFailed)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "https://soundcloud.com/y/missing", results[1].Locator)

	playlist, err := os.ReadFile(filepath.Join(settings.OutputDir, "mix.m3u"))
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n#EXTINF:180,y - a\ny - a.mp3\n#EXTINF:180,y - b\ny - b.mp3\n", string(playlist))

	saved, failed := manager.Stats()
	assert.Equal(t, int32(2), saved)
	assert.Equal(t, int32(1), failed)
}

func TestManager_InvalidLocator(t *testing.T) {
	manager := NewManager(config.DefaultSettings(), nil, nil, nil)
	_, err := manager.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, model.ErrTrackLocatorNotFound)
}

func TestArtworkURL(t *testing.T) {
	tests := []struct {
		in, size, want string
	}{
		{"https://i1.sndcdn.com/artworks-000-large.jpg", "t500x500", "https://i1.sndcdn.com/artworks-000-t500x500.jpg"},
		{"https://i1.sndcdn.com/LARGE/a-Large.png", "t500x500", "https://i1.sndcdn.com/t500x500/a-t500x500.png"},
		{"https://i1.sndcdn.com/artworks-000-small.jpg", "t500x500", "https://i1.sndcdn.com/artworks-000-small.jpg"},
		{"https://i1.sndcdn.com/artworks-000-large.jpg", "", "https://i1.sndcdn.com/artworks-000-large.jpg"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ArtworkURL(tt.in, tt.size))
	}
}
