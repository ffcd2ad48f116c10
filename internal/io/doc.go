// Package ioutils provides file delivery and image processing utilities.
//
// # Delivery
//
// DirSaver writes finished tracks into the output directory atomically,
// adding a " (n)" suffix when the name is already taken:
//
//	saver := ioutils.NewDirSaver("/music")
//	path, err := saver.Save(ctx, file)
//
// WriteFile and EnsureDir cover the remaining file needs (playlists,
// configuration).
//
// # Image Processing
//
// The ImageService handles cover art manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Fit within 500x500 and convert to JPEG; undecodable art is kept as is
//	art := svc.PrepareArtwork(ctx, imageData, 500, true)
package ioutils
