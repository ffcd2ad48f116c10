// Package http provides the HTTP client used to talk to SoundCloud's web
// site, its v2 API and its media CDN.
//
// The Client in this package handles:
//   - User-Agent headers
//   - In-memory downloads with progress tracking
//   - StatusError for non-200 answers, so callers can decide whether a
//     refusal is fatal or means "try the next candidate"
//
// # Basic Usage
//
//	client := http.NewClient()
//
//	// Fetch an API resource
//	body, err := client.Get(ctx, resolveURL)
//
//	// Download audio with a progress callback
//	data, err := client.Download(ctx, streamURL, func(written, total int64) {
//	    fmt.Printf("%d/%d\n", written, total)
//	})
//
// # Credentials
//
// WithQueryParam attaches the client_id credential to a URL. URLs reported
// in StatusError have the credential redacted.
package http
