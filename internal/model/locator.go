package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// SiteOrigin is prefixed to relative track links.
const SiteOrigin = "https://soundcloud.com"

// ErrTrackLocatorNotFound is returned when no track URL can be derived from
// the caller's input.
var ErrTrackLocatorNotFound = errors.New("track locator not found")

// NormalizeLocator turns a page link into an absolute track URL.
//
// The query string and fragment are dropped, and relative paths such as
// "/artist/track" are resolved against SiteOrigin.
//
// Example:
//
//	NormalizeLocator("/daftpunk/around-the-world?in=x") // "https://soundcloud.com/daftpunk/around-the-world"
func NormalizeLocator(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrTrackLocatorNotFound
	}

	if strings.HasPrefix(raw, "/") {
		raw = SiteOrigin + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTrackLocatorNotFound, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme in %q", ErrTrackLocatorNotFound, raw)
	}
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return "", fmt.Errorf("%w: %q has no track path", ErrTrackLocatorNotFound, raw)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
