// Package config provides configuration management for soundcloud-downloader.
//
// This package handles:
//   - Loading settings from a JSON file, SCDL_* environment variables and flags
//   - Saving settings back to the JSON file
//   - Default configuration values
//   - Previewing the file naming format
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Files named "{artist} - {title}", lowercased
//	// Saved to ~/Music/SoundCloud
//
// # Loading
//
//	v := config.NewViper()
//	_ = v.BindPFlag("output_dir", cmd.Flags().Lookup("output"))
//	settings, err := config.Load(v, config.DefaultPath())
//	if err != nil {
//	    // settings still holds usable values; log err
//	}
//
// # Saving Settings
//
//	_ = settings.Set("lowercase", "false")
//	err := settings.Save(config.DefaultPath())
package config
