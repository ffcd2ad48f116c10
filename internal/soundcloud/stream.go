package soundcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud/dto"
)

// SelectStream activates the first usable transcoding.
//
// Only audio/mpeg transcodings are considered. Progressive ones are tried
// before all others, keeping their relative order. Candidates are tried one
// at a time; a non-200 answer moves on to the next candidate, the first 200
// wins. Returns ErrNoUsableStream when every candidate is refused.
func (a *API) SelectStream(ctx context.Context, transcodings []model.Transcoding, credential string) (*model.StreamDescriptor, error) {
	for _, t := range prioritize(transcodings) {
		a.logger.Debug("trying transcoding",
			zap.String("protocol", t.Protocol),
			zap.String("mime_type", t.MimeType),
			zap.String("preset", t.Preset))

		activationURL, err := http.WithQueryParam(t.URL, "client_id", credential)
		if err != nil {
			a.logger.Warn("invalid transcoding URL", zap.String("url", t.URL), zap.Error(err))
			continue
		}

		body, err := a.fetcher.Get(ctx, activationURL)
		if err != nil {
			var se *http.StatusError
			if errors.As(err, &se) {
				a.metrics.ObserveStreamAttempt(t.Protocol, false)
				a.logger.Debug("transcoding refused", zap.String("protocol", t.Protocol), zap.Int("status", se.StatusCode))
				continue
			}
			return nil, err
		}
		a.metrics.ObserveStreamAttempt(t.Protocol, true)

		var js dto.JSONStream
		if err := json.Unmarshal(body, &js); err != nil {
			return nil, fmt.Errorf("%w: decode %s stream: %v", ErrNoUsableStream, t.Protocol, err)
		}

		return &model.StreamDescriptor{
			URL:      js.URL,
			Protocol: t.Protocol,
			MimeType: t.MimeType,
		}, nil
	}

	return nil, ErrNoUsableStream
}

// prioritize keeps audio/mpeg transcodings, progressive first.
// The partition is stable: two transcodings of the same protocol never swap.
func prioritize(transcodings []model.Transcoding) []model.Transcoding {
	var progressive, others []model.Transcoding
	for _, t := range transcodings {
		if t.MimeType != model.MimeTypeMPEG {
			continue
		}
		if t.Protocol == model.ProtocolProgressive {
			progressive = append(progressive, t)
		} else {
			others = append(others, t)
		}
	}
	return append(progressive, others...)
}
