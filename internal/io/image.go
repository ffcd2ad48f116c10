package ioutils

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// ImageService prepares cover art for embedding.
//
// ImageService is used to:
//   - Resize images to fit maximum dimensions
//   - Convert images to JPEG format (for better compatibility)
//
// Example usage:
//
//	svc := NewImageService()
//
//	// Fit within 500x500 and re-encode as JPEG
//	art := svc.PrepareArtwork(ctx, artworkBytes, 500, true)
type ImageService struct {
	// Quality is the JPEG quality used when re-encoding.
	Quality int
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{Quality: 90}
}

// PrepareArtwork resizes data to fit within maxSize x maxSize (when maxSize
// is positive) and/or re-encodes it as JPEG.
//
// Artwork that cannot be decoded is returned unchanged: a cover the
// decoders do not know is still better than no cover.
func (s *ImageService) PrepareArtwork(ctx context.Context, data []byte, maxSize int, toJPEG bool) []byte {
	switch {
	case maxSize > 0:
		if out, err := s.ResizeImage(ctx, data, maxSize, maxSize); err == nil {
			return out
		}
	case toJPEG:
		if out, err := s.ConvertToJPEG(ctx, data); err == nil {
			return out
		}
	}
	return data
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. Images already within bounds keep their
// size but are still re-encoded. Returns JPEG-encoded bytes.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x666
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			// Height is the limiting factor
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return s.encode(dst)
}

// ConvertToJPEG converts an image to JPEG format.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return s.encode(img)
}

func (s *ImageService) encode(img image.Image) ([]byte, error) {
	quality := s.Quality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
