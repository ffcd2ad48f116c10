package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Get(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(WithUserAgent("test-agent"), WithHTTPClient(srv.Client()))

	body, err := client.Get(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
}

func TestClient_StatusError(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(WithHTTPClient(srv.Client()))

	_, err := client.Get(context.Background(), srv.URL+"/missing?client_id=secret")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.NotContains(t, se.Error(), "secret")
	assert.Contains(t, se.Error(), "REDACTED")
}

func TestClient_DownloadProgress(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(WithUserAgent("test-agent"), WithHTTPClient(srv.Client()))

	var last int64
	data, err := client.Download(context.Background(), srv.URL+"/ok", func(written, _ int64) {
		last = written
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, int64(5), last)
}

func TestWithQueryParam(t *testing.T) {
	got, err := WithQueryParam("https://api.example.com/stream?a=1&client_id=old", "client_id", "new")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/stream?a=1&client_id=new", got)

	_, err = WithQueryParam("://bad", "client_id", "x")
	assert.Error(t, err)
}
