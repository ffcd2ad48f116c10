package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/soundcloud-downloader/internal/audio"
	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/http"
	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
	"github.com/handiism/soundcloud-downloader/internal/metrics"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

// ErrArtworkFetchFailed is reported when cover art cannot be fetched.
// It never fails a resolution: the track is saved without a cover.
var ErrArtworkFetchFailed = errors.New("artwork fetch failed")

var largeArtwork = regexp.MustCompile(`(?i)large`)

// Saver delivers a finished file and returns where it went.
type Saver interface {
	Save(ctx context.Context, file *model.NamedFile) (string, error)
}

// Result is the outcome of one track in a batch.
type Result struct {
	Locator  string
	Path     string
	Tags     model.TagSet
	Duration time.Duration
	Err      error
}

// Manager runs the track resolution pipeline.
//
// A resolution normalizes the locator, obtains the session credential,
// resolves the track, then selects and assembles its audio while fetching
// its artwork, tags the result and hands it to the Saver. Nothing is saved
// unless every step but the artwork succeeded, and no step is retried.
//
// Example:
//
//	manager := download.NewManager(settings, logger, nil, func(event download.ProgressEvent) {
//	    fmt.Println(event.State, event.Message)
//	})
//
//	path, err := manager.ResolveAndSave(ctx, "https://soundcloud.com/artist/track")
type Manager struct {
	settings     *config.Settings
	logger       *zap.Logger
	metrics      *metrics.Metrics
	client       *http.Client
	session      *soundcloud.Session
	api          *soundcloud.API
	assembler    *audio.Assembler
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService
	artwork      *lru.Cache[string, []byte]
	saver        Saver

	savedFiles    atomic.Int32
	failedFiles   atomic.Int32
	receivedBytes atomic.Int64

	onProgress func(ProgressEvent)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithSaver replaces the default directory saver.
func WithSaver(s Saver) Option {
	return func(m *Manager) {
		m.saver = s
	}
}

// WithSession shares a credential session between managers.
func WithSession(s *soundcloud.Session) Option {
	return func(m *Manager) {
		m.session = s
	}
}

// NewManager creates a new Manager. logger, m and onProgress may be nil.
func NewManager(settings *config.Settings, logger *zap.Logger, m *metrics.Metrics, onProgress func(ProgressEvent), opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := http.NewClient(
		http.WithUserAgent(settings.UserAgent),
		http.WithTimeout(settings.RequestTimeout()),
	)

	playlistFormat, err := audio.ParsePlaylistFormat(settings.PlaylistFormat)
	if err != nil {
		logger.Warn("falling back to m3u playlists", zap.Error(err))
	}

	mgr := &Manager{
		settings:     settings,
		logger:       logger,
		metrics:      m,
		client:       client,
		api:          soundcloud.NewAPI(client, settings.APIBaseURL, logger.Named("api"), m),
		assembler:    audio.NewAssembler(client, logger.Named("assembler"), m),
		tagger:       audio.NewTagger(),
		playlist:     audio.NewPlaylistCreator(playlistFormat, settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		saver:        ioutils.NewDirSaver(settings.OutputDir),
		onProgress:   onProgress,
	}

	if settings.ArtworkCacheSize > 0 {
		mgr.artwork, _ = lru.New[string, []byte](settings.ArtworkCacheSize)
	}

	mgr.assembler.OnSegment = func(done, total int) {
		mgr.progress(ProgressEvent{
			Message: fmt.Sprintf("Fetched segment %d/%d", done, total),
			Level:   LevelVerbose,
			State:   StateSelectingStream,
		})
	}

	mgr.assembler.OnBytes = func(n int64) {
		mgr.receivedBytes.Add(n)
	}

	for _, opt := range opts {
		opt(mgr)
	}

	if mgr.session == nil {
		if settings.ClientID != "" {
			mgr.session = soundcloud.NewStaticSession(settings.ClientID)
		} else {
			mgr.session = soundcloud.NewSession(
				soundcloud.NewCredentialResolver(client, settings.SiteURL, logger.Named("credential")),
			)
		}
	}

	return mgr
}

// Session returns the credential session of the manager.
func (m *Manager) Session() *soundcloud.Session {
	return m.session
}

// Stats returns how many tracks were saved and how many failed so far.
func (m *Manager) Stats() (saved, failed int32) {
	return m.savedFiles.Load(), m.failedFiles.Load()
}

// ReceivedBytes returns how many bytes of audio have been downloaded so far.
func (m *Manager) ReceivedBytes() int64 {
	return m.receivedBytes.Load()
}

// Resolve runs the pipeline for locator and returns the tagged file
// without saving it. The caller owns the file and should Release it once
// delivered.
func (m *Manager) Resolve(ctx context.Context, locator string) (*model.NamedFile, error) {
	log := m.requestLogger(locator)
	done := m.metrics.StartResolution()

	file, _, err := m.resolve(ctx, log, locator)
	if err != nil {
		m.fail(log, locator, err)
		done("failed")
		return nil, err
	}

	done("resolved")
	return file, nil
}

// ResolveAndSave runs the pipeline for locator and saves the result.
// It returns the path of the saved file.
func (m *Manager) ResolveAndSave(ctx context.Context, locator string) (string, error) {
	res := m.resolveAndSave(ctx, locator)
	return res.Path, res.Err
}

// DownloadAll resolves and saves every locator, at most
// MaxConcurrentDownloads at a time. A failing track does not stop the
// others. Results are in the order of locators; the returned error joins
// every failure.
//
// When playlists are enabled, a playlist of the saved tracks is written to
// the output directory.
func (m *Manager) DownloadAll(ctx context.Context, locators []string) ([]Result, error) {
	results := make([]Result, len(locators))

	g := new(errgroup.Group)
	g.SetLimit(max(1, m.settings.MaxConcurrentDownloads))
	for i, locator := range locators {
		g.Go(func() error {
			results[i] = m.resolveAndSave(ctx, locator)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	var entries []audio.PlaylistEntry
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Locator, res.Err))
			continue
		}
		entries = append(entries, audio.PlaylistEntry{
			Path:     res.Path,
			Artist:   res.Tags.Artist,
			Title:    res.Tags.Title,
			Duration: res.Duration,
		})
	}

	if m.settings.CreatePlaylist && len(entries) > 0 {
		m.writePlaylist(ctx, entries)
	}

	return results, errors.Join(errs...)
}

func (m *Manager) resolveAndSave(ctx context.Context, locator string) Result {
	log := m.requestLogger(locator)
	done := m.metrics.StartResolution()
	res := Result{Locator: locator}

	file, track, err := m.resolve(ctx, log, locator)
	if err == nil {
		res.Tags = track.Tags()
		res.Duration = time.Duration(track.Duration) * time.Millisecond
		res.Path, err = m.saver.Save(ctx, file)
		file.Release()
	}
	if err != nil {
		m.fail(log, locator, err)
		done("failed")
		res.Err = err
		return res
	}

	m.savedFiles.Add(1)
	done("saved")
	log.Info("track saved", zap.String("path", res.Path))
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Saved: %s", filepath.Base(res.Path)),
		Level:   LevelSuccess,
		State:   StateSaved,
		Locator: locator,
	})
	return res
}

func (m *Manager) resolve(ctx context.Context, log *zap.Logger, locator string) (*model.NamedFile, *model.ResolvedTrack, error) {
	m.transition(log, locator, StateResolving, "Resolving %s", locator)

	normalized, err := model.NormalizeLocator(locator)
	if err != nil {
		return nil, nil, err
	}

	credential, err := m.session.Credential(ctx)
	if err != nil {
		return nil, nil, err
	}

	track, err := m.api.Resolve(ctx, normalized, credential)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("track resolved",
		zap.Int64("track_id", track.ID),
		zap.Int("transcodings", len(track.Transcodings)))

	var audioData, artwork []byte

	m.transition(log, locator, StateSelectingStream, "Selecting stream for %s", track.Title)
	m.transition(log, locator, StateFetchingArtwork, "Fetching artwork for %s", track.Title)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stream, err := m.api.SelectStream(gctx, track.Transcodings, credential)
		if err != nil {
			return err
		}
		log.Debug("stream selected", zap.String("protocol", stream.Protocol))
		audioData, err = m.assembler.Assemble(gctx, stream, credential)
		return err
	})
	g.Go(func() error {
		artwork = m.fetchArtwork(gctx, log, locator, track)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	m.transition(log, locator, StateTagging, "Tagging %s", track.Title)
	file, err := m.tagger.Tag(audioData, artwork, track, m.settings.Naming())
	if err != nil {
		return nil, nil, err
	}

	return file, track, nil
}

// fetchArtwork returns the prepared cover for track, or nil. Failures are
// reported and swallowed.
func (m *Manager) fetchArtwork(ctx context.Context, log *zap.Logger, locator string, track *model.ResolvedTrack) []byte {
	if !m.settings.SaveCoverArtInTags {
		return nil
	}

	coverURL := track.CoverURL()
	if coverURL == "" {
		m.metrics.ObserveArtwork("missing")
		return nil
	}
	coverURL = ArtworkURL(coverURL, m.settings.ArtworkSize)

	if m.artwork != nil {
		if data, ok := m.artwork.Get(coverURL); ok {
			m.metrics.ObserveArtwork("cached")
			return data
		}
	}

	data, err := m.client.Get(ctx, coverURL)
	if err != nil && ctx.Err() != nil {
		// The stream side already failed or the caller gave up.
		log.Debug("artwork fetch cancelled", zap.Error(err))
		return nil
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrArtworkFetchFailed, err)
		m.metrics.ObserveArtwork("failed")
		log.Warn("continuing without artwork", zap.Error(err))
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("No artwork for %s: %v", track.Title, err),
			Level:   LevelWarning,
			State:   StateFetchingArtwork,
			Locator: locator,
		})
		return nil
	}

	maxSize := 0
	if m.settings.CoverArtInTagsResize {
		maxSize = m.settings.CoverArtInTagsMaxSize
	}
	data = m.imageService.PrepareArtwork(ctx, data, maxSize, m.settings.ConvertCoverArtToJPG)

	if m.artwork != nil {
		m.artwork.Add(coverURL, data)
	}
	m.metrics.ObserveArtwork("fetched")
	return data
}

// ArtworkURL substitutes size for every "large" (any case) in rawURL.
// An empty size leaves the URL unchanged.
func ArtworkURL(rawURL, size string) string {
	if size == "" {
		return rawURL
	}
	return largeArtwork.ReplaceAllLiteralString(rawURL, size)
}

func (m *Manager) writePlaylist(ctx context.Context, entries []audio.PlaylistEntry) {
	name := model.SanitizeFileName(m.settings.PlaylistName)
	if name == "" {
		name = model.FallbackFileName
	}
	path := filepath.Join(m.settings.OutputDir, name+m.playlist.Format().Extension())

	content := m.playlist.CreatePlaylist(m.settings.PlaylistName, entries)
	if err := ioutils.WriteFile(ctx, path, []byte(content)); err != nil {
		m.logger.Warn("playlist not written", zap.String("path", path), zap.Error(err))
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", filepath.Base(path)), Level: LevelSuccess})
}

func (m *Manager) requestLogger(locator string) *zap.Logger {
	return m.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("locator", locator),
	)
}

func (m *Manager) transition(log *zap.Logger, locator string, state State, format string, args ...any) {
	log.Debug("state", zap.Stringer("state", state))
	m.progress(ProgressEvent{
		Message: fmt.Sprintf(format, args...),
		Level:   LevelVerbose,
		State:   state,
		Locator: locator,
	})
}

func (m *Manager) fail(log *zap.Logger, locator string, err error) {
	m.failedFiles.Add(1)
	log.Error("resolution failed", zap.Error(err))
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Error downloading %s: %v", locator, err),
		Level:   LevelError,
		State:   StateFailed,
		Locator: locator,
	})
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
