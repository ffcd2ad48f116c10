package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// StatusError is returned when a server answers with anything but 200 OK.
//
// Callers use errors.As to tell "the server said no" apart from transport
// failures:
//
//	var se *http.StatusError
//	if errors.As(err, &se) && se.StatusCode == 404 { ... }
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Client wraps HTTP operations with SoundCloud-specific configuration.
//
// Client provides:
//   - Configured User-Agent header
//   - Optional timeout handling (none by default, callers bound requests with their context)
//   - In-memory downloads with progress tracking
//
// Example usage:
//
//	client := NewClient(WithTimeout(30 * time.Second))
//
//	// Fetch a page
//	page, err := client.Get(ctx, "https://soundcloud.com/")
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets an overall timeout on every request. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client, e.g. with one returned
// by httptest.Server.Client().
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new HTTP client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: &buf,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header), -1 if unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns a *StatusError if the response status is not 200 OK.
//
// Example:
//
//	data, err := client.Get(ctx, "https://i1.sndcdn.com/artworks-t500x500.jpg")
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Download(ctx, rawURL, nil)
}

// Download fetches a resource fully into memory with an optional progress
// callback.
//
// Parameters:
//   - ctx: Context for cancellation
//   - rawURL: URL to download from
//   - onProgress: Optional callback called with (bytesWritten, totalBytes).
//     Pass nil to disable progress tracking
func (c *Client) Download(ctx context.Context, rawURL string, onProgress func(written, total int64)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: redact(rawURL)}
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}

	var writer io.Writer = &buf
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   &buf,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WithQueryParam returns rawURL with key set to value in its query string,
// replacing any existing value.
//
// Example:
//
//	WithQueryParam("https://api-v2.soundcloud.com/media/x/stream/hls", "client_id", id)
func WithQueryParam(rawURL, key, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact hides the client_id in URLs that end up in error messages and logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("client_id") {
		q.Set("client_id", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
