package soundcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/metrics"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud/dto"
)

// DefaultAPIBaseURL is the undocumented v2 API used by the web player.
const DefaultAPIBaseURL = "https://api-v2.soundcloud.com"

// API talks to the resolver and transcoding endpoints of the v2 API.
//
// Example usage:
//
//	api := NewAPI(client, DefaultAPIBaseURL, logger, nil)
//
//	track, err := api.Resolve(ctx, "https://soundcloud.com/artist/track", clientID)
//	if err != nil {
//	    return err
//	}
//
//	stream, err := api.SelectStream(ctx, track.Transcodings, clientID)
type API struct {
	fetcher Fetcher
	baseURL string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewAPI creates an API client. m may be nil.
func NewAPI(fetcher Fetcher, baseURL string, logger *zap.Logger, m *metrics.Metrics) *API {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		metrics: m,
	}
}

// Resolve looks up the track behind locator.
//
// Any non-200 answer is a hard failure reported as ErrResolveFailed.
func (a *API) Resolve(ctx context.Context, locator, credential string) (*model.ResolvedTrack, error) {
	q := url.Values{}
	q.Set("url", locator)
	q.Set("client_id", credential)
	resolveURL := a.baseURL + "/resolve?" + q.Encode()

	body, err := a.fetcher.Get(ctx, resolveURL)
	if err != nil {
		var se *http.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %s: %w", ErrResolveFailed, locator, err)
		}
		return nil, err
	}

	var jt dto.JSONTrack
	if err := json.Unmarshal(body, &jt); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrResolveFailed, locator, err)
	}

	return jt.ToTrack(), nil
}
