package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

func TestDirSaver_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "music")
	saver := NewDirSaver(dir)
	ctx := context.Background()

	first, err := saver.Save(ctx, &model.NamedFile{Name: "y - x.mp3", Data: []byte("one")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "y - x.mp3"), first)

	second, err := saver.Save(ctx, &model.NamedFile{Name: "y - x.mp3", Data: []byte("two")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "y - x (1).mp3"), second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must not be left behind")
}

func TestDirSaver_CancelledContextWritesNothing(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirSaver(dir).Save(ctx, &model.NamedFile{Name: "a.mp3", Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFile_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.m3u")
	ctx := context.Background()

	require.NoError(t, WriteFile(ctx, path, []byte("old")))
	require.NoError(t, WriteFile(ctx, path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageService_ResizeImage(t *testing.T) {
	svc := NewImageService()

	out, err := svc.ResizeImage(context.Background(), testPNG(t, 300, 200), 150, 150)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestImageService_PrepareArtwork(t *testing.T) {
	svc := NewImageService()
	ctx := context.Background()

	t.Run("converts to jpeg", func(t *testing.T) {
		out := svc.PrepareArtwork(ctx, testPNG(t, 10, 10), 0, true)
		_, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("undecodable art is kept", func(t *testing.T) {
		raw := []byte("not an image")
		assert.Equal(t, raw, svc.PrepareArtwork(ctx, raw, 500, true))
	})

	t.Run("no processing requested", func(t *testing.T) {
		raw := testPNG(t, 4, 4)
		assert.Equal(t, raw, svc.PrepareArtwork(ctx, raw, 0, false))
	})
}
