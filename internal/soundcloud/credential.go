package soundcloud

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultSiteURL is the page whose script assets carry the client_id.
const DefaultSiteURL = "https://soundcloud.com/"

var (
	// DefaultAssetPattern matches the bundled application scripts.
	DefaultAssetPattern = regexp.MustCompile(`sndcdn\.com/assets/[0-9]+`)

	clientIDPattern = regexp.MustCompile(`,client_id:"([a-zA-Z0-9]{32})"`)
)

// Fetcher retrieves a resource fully into memory.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// CredentialResolver discovers the short-lived client_id that every API
// call requires.
//
// SoundCloud does not publish the client_id; it is embedded in one of the
// minified application bundles referenced by the web page. The resolver
// fetches the page, walks its <script src> references in page order and
// greps each matching bundle for the client_id assignment.
//
// Example usage:
//
//	resolver := NewCredentialResolver(client, DefaultSiteURL, logger)
//	clientID, err := resolver.Resolve(ctx)
//	if errors.Is(err, ErrCredentialNotFound) {
//	    // SoundCloud changed its bundles
//	}
type CredentialResolver struct {
	fetcher Fetcher
	pageURL string
	logger  *zap.Logger

	// AssetPattern selects which script URLs are candidates.
	AssetPattern *regexp.Regexp
}

// NewCredentialResolver creates a resolver that scans pageURL.
func NewCredentialResolver(fetcher Fetcher, pageURL string, logger *zap.Logger) *CredentialResolver {
	if pageURL == "" {
		pageURL = DefaultSiteURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialResolver{
		fetcher:      fetcher,
		pageURL:      pageURL,
		logger:       logger,
		AssetPattern: DefaultAssetPattern,
	}
}

// Resolve returns the first client_id found in the page's script assets.
//
// A candidate that cannot be fetched is skipped. Returns
// ErrCredentialNotFound if no candidate yields a client_id.
func (r *CredentialResolver) Resolve(ctx context.Context) (string, error) {
	page, err := r.fetcher.Get(ctx, r.pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: fetch %s: %v", ErrCredentialNotFound, r.pageURL, err)
	}

	sources, err := scriptSources(page, r.pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrCredentialNotFound, r.pageURL, err)
	}

	for _, src := range sources {
		if !r.AssetPattern.MatchString(src) {
			continue
		}

		script, err := r.fetcher.Get(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			r.logger.Debug("skipping script asset", zap.String("src", src), zap.Error(err))
			continue
		}

		if clientID := extractClientID(script); clientID != "" {
			r.logger.Info("found client_id", zap.String("src", src))
			return clientID, nil
		}
	}

	return "", ErrCredentialNotFound
}

// scriptSources lists the absolute src of every <script> element in page order.
func scriptSources(page []byte, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var sources []string
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		ref, err := url.Parse(src)
		if err != nil || src == "" {
			return
		}
		sources = append(sources, base.ResolveReference(ref).String())
	})
	return sources, nil
}

// extractClientID finds the client_id assignment in a script bundle.
func extractClientID(script []byte) string {
	match := clientIDPattern.FindSubmatch(script)
	if match == nil {
		return ""
	}
	return string(match[1])
}
