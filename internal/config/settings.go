package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
	"github.com/handiism/soundcloud-downloader/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. SCDL_OUTPUT_DIR.
const EnvPrefix = "SCDL"

// ErrUnknownKey is returned by Set for a key Settings does not have.
var ErrUnknownKey = errors.New("unknown settings key")

// Settings holds all configuration options.
type Settings struct {
	// File naming (the user preference store)
	Format    string `json:"format" mapstructure:"format"`
	Lowercase bool   `json:"lowercase" mapstructure:"lowercase"`
	OutputDir string `json:"output_dir" mapstructure:"output_dir"`

	// SoundCloud endpoints
	ClientID           string `json:"client_id" mapstructure:"client_id"` // skips discovery when set
	APIBaseURL         string `json:"api_base_url" mapstructure:"api_base_url"`
	SiteURL            string `json:"site_url" mapstructure:"site_url"`
	UserAgent          string `json:"user_agent" mapstructure:"user_agent"`
	RequestTimeoutSecs int    `json:"request_timeout_secs" mapstructure:"request_timeout_secs"` // 0 means none

	// Cover art settings
	ArtworkSize           string `json:"artwork_size" mapstructure:"artwork_size"` // replaces "large" in artwork URLs
	SaveCoverArtInTags    bool   `json:"save_cover_art_in_tags" mapstructure:"save_cover_art_in_tags"`
	CoverArtInTagsResize  bool   `json:"cover_art_in_tags_resize" mapstructure:"cover_art_in_tags_resize"`
	CoverArtInTagsMaxSize int    `json:"cover_art_in_tags_max_size" mapstructure:"cover_art_in_tags_max_size"`
	ConvertCoverArtToJPG  bool   `json:"convert_cover_art_to_jpg" mapstructure:"convert_cover_art_to_jpg"`
	ArtworkCacheSize      int    `json:"artwork_cache_size" mapstructure:"artwork_cache_size"`

	// Batch settings
	MaxConcurrentDownloads int `json:"max_concurrent_downloads" mapstructure:"max_concurrent_downloads"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist" mapstructure:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" mapstructure:"playlist_format"` // m3u, pls, wpl, zpl
	PlaylistName   string `json:"playlist_name" mapstructure:"playlist_name"`
	M3UExtended    bool   `json:"m3u_extended" mapstructure:"m3u_extended"`

	// Companion server
	ServerAddr string `json:"server_addr" mapstructure:"server_addr"`

	LogLevel string `json:"log_level" mapstructure:"log_level"` // debug, info, warn, error
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		Format:    model.DefaultFormat,
		Lowercase: model.DefaultLowercase,
		OutputDir: filepath.Join(homeDir, "Music", "SoundCloud"),

		APIBaseURL: "https://api-v2.soundcloud.com",
		SiteURL:    "https://soundcloud.com/",

		ArtworkSize:           "t500x500",
		SaveCoverArtInTags:    true,
		CoverArtInTagsResize:  false,
		CoverArtInTagsMaxSize: 1000,
		ConvertCoverArtToJPG:  false,
		ArtworkCacheSize:      64,

		MaxConcurrentDownloads: 3,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		PlaylistName:   "soundcloud",
		M3UExtended:    true,

		ServerAddr: "127.0.0.1:8765",

		LogLevel: "info",
	}
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "scdl", "settings.json")
}

// NewViper returns a viper instance that knows every settings key, with
// defaults applied and SCDL_* environment overrides enabled. Callers may
// bind command-line flags on it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range DefaultSettings().asMap() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads settings from the JSON file at path, layered as
// defaults < file < environment < bound flags.
//
// A missing file is not an error. A file that cannot be read or parsed
// yields the defaults (still subject to environment and flags) together
// with the error, which the caller is expected to log.
func Load(v *viper.Viper, path string) (*Settings, error) {
	var fileErr error
	if path != "" {
		fileErr = readFile(v, path)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return DefaultSettings(), errors.Join(fileErr, fmt.Errorf("decode settings: %w", err))
	}
	return settings, fileErr
}

func readFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("read settings %s: file is empty", path)
	}

	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}
	return nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return ioutils.WriteFile(context.Background(), path, data)
}

// Set assigns value to the setting named key, converting it to the
// setting's type ("true", "42", ...).
func (s *Settings) Set(key, value string) error {
	current := s.asMap()
	if _, ok := current[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	v := viper.New()
	for k, val := range current {
		v.Set(k, val)
	}
	v.Set(key, value)

	updated := &Settings{}
	if err := v.Unmarshal(updated); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	*s = *updated
	return nil
}

// Keys lists every settings key in sorted order.
func (s *Settings) Keys() []string {
	m := s.asMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Naming returns the file naming template.
func (s *Settings) Naming() model.NamingTemplate {
	return model.NamingTemplate{Format: s.Format, Lowercase: s.Lowercase}
}

// RequestTimeout returns the per-request timeout, zero for none.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// asMap returns the settings keyed by their JSON names.
func (s *Settings) asMap() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
