// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package imaging turns uploaded images into the WebP files stored as pages and
covers.

Pages wider than 1200px are scaled down to 1200px. A page that is still taller
than 16000px is cut into equal horizontal strips, each stored with a _partN
suffix. A page needing more strips than readers probe for is rejected, as is
any source image above the pixel cap. Covers are scaled to fit 400x600 and
never cut.
*/
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Profiles

// Purpose selects the transform profile.
type Purpose string

const (
	PurposePage  Purpose = "page"
	PurposeCover Purpose = "cover"
)

// Profile bounds the output of one purpose.
type Profile struct {
	MaxWidth  int
	MaxHeight int
	Quality   float32
	Split     bool
}

var profiles = map[Purpose]Profile{
	PurposePage:  {MaxWidth: 1200, MaxHeight: 16000, Quality: 82, Split: true},
	PurposeCover: {MaxWidth: 400, MaxHeight: 600, Quality: 85, Split: false},
}

// ProfileFor returns the profile of a purpose.
func ProfileFor(purpose Purpose) (Profile, bool) {
	profile, ok := profiles[purpose]
	return profile, ok
}

// # Encoding

// Encoder writes an image in the stored format.
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality float32) error
}

// WebPEncoder encodes lossy WebP.
type WebPEncoder struct{}

// Encode writes img as WebP at quality (0-100).
func (WebPEncoder) Encode(w io.Writer, img image.Image, quality float32) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: quality})
}

// # Transformer

// Output is one encoded file. Suffix is empty for a single output and _partN
// for the strips of a split page.
type Output struct {
	Data   []byte
	Suffix string
	Width  int
	Height int
}

// Transformer decodes, scales, splits and encodes images.
type Transformer struct {
	encoder Encoder
}

// NewTransformer builds a transformer. A nil encoder selects WebP.
func NewTransformer(encoder Encoder) *Transformer {
	if encoder == nil {
		encoder = WebPEncoder{}
	}
	return &Transformer{encoder: encoder}
}

/*
Transform converts one uploaded image.

Parameters:
  - data: []byte (JPEG, PNG, GIF or WebP)
  - purpose: Purpose (page or cover)

Returns:
  - []Output: One output, or the ordered strips of a split page
  - error: VALIDATION_ERROR for an unknown purpose or a page needing too many
    strips, UNPROCESSABLE for undecodable or oversized input
*/
func (transformer *Transformer) Transform(data []byte, purpose Purpose) ([]Output, error) {
	profile, ok := profiles[purpose]
	if !ok {
		return nil, apperr.ValidationError(fmt.Sprintf("Unknown image purpose %q", purpose))
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, undecodable(err)
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, apperr.Unprocessable("Image has no pixels")
	}
	if int64(config.Width)*int64(config.Height) > constants.MaxSourcePixels {
		return nil, apperr.Unprocessable(fmt.Sprintf("Image of %dx%d exceeds %d pixels", config.Width, config.Height, constants.MaxSourcePixels))
	}
	if profile.Split {
		_, height := limitWidth(config.Width, config.Height, profile.MaxWidth)
		if parts := StripCount(height, profile.MaxHeight); parts > constants.MaxParts {
			return nil, apperr.ValidationError(fmt.Sprintf("Image would be cut into %d parts, at most %d are allowed", parts, constants.MaxParts))
		}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, undecodable(err)
	}
	bounds := src.Bounds()

	if !profile.Split {
		width, height := fit(bounds.Dx(), bounds.Dy(), profile.MaxWidth, profile.MaxHeight)
		output, err := transformer.render(src, bounds, width, height, profile.Quality, "")
		if err != nil {
			return nil, err
		}
		return []Output{output}, nil
	}

	width, height := limitWidth(bounds.Dx(), bounds.Dy(), profile.MaxWidth)
	if height <= profile.MaxHeight {
		output, err := transformer.render(src, bounds, width, height, profile.Quality, "")
		if err != nil {
			return nil, err
		}
		return []Output{output}, nil
	}

	strips := Strips(height, bounds.Dy(), profile.MaxHeight)
	outputs := make([]Output, 0, len(strips))
	for i, strip := range strips {
		region := image.Rect(bounds.Min.X, bounds.Min.Y+strip.SourceY, bounds.Max.X, bounds.Min.Y+strip.SourceY+strip.SourceHeight)
		output, err := transformer.render(src, region, width, strip.Height, profile.Quality, PartSuffix(i+1))
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output)
	}
	return outputs, nil
}

func undecodable(err error) error {
	unprocessable := apperr.Unprocessable("Image could not be decoded")
	unprocessable.Cause = err
	return unprocessable
}

func (transformer *Transformer) render(src image.Image, region image.Rectangle, width, height int, quality float32, suffix string) (Output, error) {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, region, draw.Src, nil)

	var buffer bytes.Buffer
	if err := transformer.encoder.Encode(&buffer, dst, quality); err != nil {
		return Output{}, apperr.Internal(fmt.Errorf("imaging: encode: %w", err))
	}

	return Output{Data: buffer.Bytes(), Suffix: suffix, Width: width, Height: height}, nil
}

// # Geometry

// Strip is one horizontal slice of a split page.
type Strip struct {
	// SourceY and SourceHeight address the original image.
	SourceY      int
	SourceHeight int
	// Height is the output height of the strip.
	Height int
}

// StripCount is the number of strips a page of scaledHeight is cut into.
func StripCount(scaledHeight, maxHeight int) int {
	if scaledHeight <= maxHeight {
		return 1
	}
	return (scaledHeight + maxHeight - 1) / maxHeight
}

// Strips cuts a page of scaledHeight (naturalHeight before scaling) into
// StripCount strips of equal output height. Strip i covers source rows
// [round(i*H/n), round((i+1)*H/n)), so the strips tile the source exactly.
func Strips(scaledHeight, naturalHeight, maxHeight int) []Strip {
	count := StripCount(scaledHeight, maxHeight)
	partHeight := (scaledHeight + count - 1) / count

	boundary := func(i int) int {
		return int(math.Round(float64(i) * float64(naturalHeight) / float64(count)))
	}

	strips := make([]Strip, count)
	for i := range strips {
		top, bottom := boundary(i), boundary(i+1)
		strips[i] = Strip{SourceY: top, SourceHeight: bottom - top, Height: partHeight}
	}
	return strips
}

// PartSuffix names the n-th strip.
func PartSuffix(part int) string {
	return fmt.Sprintf("_part%d", part)
}

// limitWidth scales down to maxWidth keeping the aspect ratio.
func limitWidth(width, height, maxWidth int) (int, int) {
	if width <= maxWidth {
		return width, height
	}
	ratio := float64(maxWidth) / float64(width)
	return maxWidth, int(math.Round(float64(height) * ratio))
}

// fit scales down to fit inside maxWidth x maxHeight keeping the aspect ratio.
func fit(width, height, maxWidth, maxHeight int) (int, int) {
	scale := math.Min(1, math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height)))
	return max(1, int(math.Round(float64(width)*scale))), max(1, int(math.Round(float64(height)*scale)))
}
