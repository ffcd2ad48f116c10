package ioutils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

// MaxCollisionSuffix bounds the " (n)" suffixes tried before giving up.
const MaxCollisionSuffix = 999

// ErrNoFreeName is returned when every collision suffix is taken.
var ErrNoFreeName = errors.New("no free file name")

// DirSaver delivers named files into a directory.
//
// Files are written atomically: the data goes to a hidden temporary file
// which is then linked under its final name, so a reader never sees a
// partially written MP3. When the name is taken, " (1)", " (2)", ... is
// inserted before the extension, as browsers do for downloads.
//
// Example:
//
//	saver := NewDirSaver("/home/me/Music")
//	path, err := saver.Save(ctx, file)
//	// "/home/me/Music/daft punk - around the world.mp3"
type DirSaver struct {
	dir string
}

// NewDirSaver creates a saver writing into dir.
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{dir: dir}
}

// Dir returns the output directory.
func (s *DirSaver) Dir() string {
	return s.dir
}

// Save writes file into the output directory and returns its path.
func (s *DirSaver) Save(ctx context.Context, file *model.NamedFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := EnsureDir(s.dir); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".scdl-*.part")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(file.Data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return "", err
	}

	return claimName(tmpPath, s.dir, filepath.Base(file.Name))
}

// claimName moves tmpPath to the first free name derived from name.
func claimName(tmpPath, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 0; n <= MaxCollisionSuffix; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)

		err := os.Link(tmpPath, path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}

		// Filesystems without hard links: check, then rename.
		if _, statErr := os.Stat(path); statErr == nil {
			continue
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return "", err
		}
		return path, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoFreeName, name)
}

// WriteFile writes data to path atomically, replacing any existing file.
//
// Example:
//
//	playlistContent := []byte("#EXTM3U\n...")
//	err := WriteFile(ctx, "/music/soundcloud.m3u", playlistContent)
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".scdl-*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
