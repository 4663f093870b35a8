// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package imaging_test

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/imaging"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// sizeEncoder writes the encoded dimensions instead of pixels.
type sizeEncoder struct {
	qualities []float32
}

func (encoder *sizeEncoder) Encode(w io.Writer, img image.Image, quality float32) error {
	encoder.qualities = append(encoder.qualities, quality)
	_, err := w.Write([]byte{byte(img.Bounds().Dx() % 256)})
	return err
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y += 97 {
		img.SetGray(0, y, color.Gray{Y: 200})
	}

	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, img))
	return buffer.Bytes()
}

// pngHeader returns a PNG holding only its signature and IHDR chunk, enough
// for the dimensions to be read without any pixel data.
func pngHeader(width, height uint32) []byte {
	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, width)
	chunk = binary.BigEndian.AppendUint32(chunk, height)
	chunk = append(chunk, 8, 0, 0, 0, 0)

	data := []byte("\x89PNG\r\n\x1a\n")
	data = binary.BigEndian.AppendUint32(data, 13)
	data = append(data, chunk...)
	return binary.BigEndian.AppendUint32(data, crc32.ChecksumIEEE(chunk))
}

/*
TestTransform_Page verifies scaling and splitting of pages.
*/
func TestTransform_Page(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		wantWidth  int
		wantHeight []int
		wantSuffix []string
	}{
		{"Unchanged", 800, 1200, 800, []int{1200}, []string{""}},
		{"ScaledDown", 2400, 3000, 1200, []int{1500}, []string{""}},
		{"ExactlyMax", 100, 16000, 100, []int{16000}, []string{""}},
		{"Split", 100, 33000, 100, []int{11000, 11000, 11000}, []string{"_part1", "_part2", "_part3"}},
		{"ScaledThenSplit", 1250, 17500, 1200, []int{8400, 8400}, []string{"_part1", "_part2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder := &sizeEncoder{}
			outputs, err := imaging.NewTransformer(encoder).Transform(pngBytes(t, tt.width, tt.height), imaging.PurposePage)
			require.NoError(t, err)
			require.Len(t, outputs, len(tt.wantHeight))

			for i, output := range outputs {
				assert.Equal(t, tt.wantWidth, output.Width)
				assert.Equal(t, tt.wantHeight[i], output.Height)
				assert.Equal(t, tt.wantSuffix[i], output.Suffix)
			}
			assert.Equal(t, float32(82), encoder.qualities[0])
		})
	}
}

/*
TestTransform_Cover verifies covers are fitted inside 400x600 and never split.
*/
func TestTransform_Cover(t *testing.T) {
	encoder := &sizeEncoder{}
	outputs, err := imaging.NewTransformer(encoder).Transform(pngBytes(t, 1000, 3000), imaging.PurposeCover)
	require.NoError(t, err)

	require.Len(t, outputs, 1)
	assert.Equal(t, 200, outputs[0].Width)
	assert.Equal(t, 600, outputs[0].Height)
	assert.Empty(t, outputs[0].Suffix)
	assert.Equal(t, float32(85), encoder.qualities[0])
}

/*
TestTransform_Errors verifies bad input is rejected with a taxonomy code.
*/
func TestTransform_Errors(t *testing.T) {
	transformer := imaging.NewTransformer(&sizeEncoder{})

	_, err := transformer.Transform([]byte("not an image"), imaging.PurposePage)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnprocessable))

	_, err = transformer.Transform(pngBytes(t, 10, 10), imaging.Purpose("banner"))
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

/*
TestTransform_WebP verifies the default encoder produces a WebP container.
*/
func TestTransform_WebP(t *testing.T) {
	outputs, err := imaging.NewTransformer(nil).Transform(pngBytes(t, 64, 64), imaging.PurposePage)
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	data := outputs[0].Data
	require.Greater(t, len(data), 12)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WEBP", string(data[8:12]))
}

/*
TestStrips verifies strip geometry against the source image.
*/
func TestStrips(t *testing.T) {
	strips := imaging.Strips(20000, 40000, 16000)
	assert.Equal(t, []imaging.Strip{
		{SourceY: 0, SourceHeight: 20000, Height: 10000},
		{SourceY: 20000, SourceHeight: 20000, Height: 10000},
	}, strips)

	uneven := imaging.Strips(16001, 16001, 16000)
	require.Len(t, uneven, 2)
	assert.Equal(t, 8001, uneven[0].Height)
	assert.Equal(t, 16001, uneven[1].SourceY+uneven[1].SourceHeight)
}

/*
TestTransform_Limits verifies oversized sources and pages needing more strips
than readers look for are rejected before any pixel is decoded.
*/
func TestTransform_Limits(t *testing.T) {
	tests := []struct {
		name      string
		data      func(t *testing.T) []byte
		purpose   imaging.Purpose
		wantCode  string
		wantParts int
	}{
		{
			name:      "MaxParts",
			data:      func(t *testing.T) []byte { return pngBytes(t, 10, 16000*constants.MaxParts) },
			purpose:   imaging.PurposePage,
			wantParts: constants.MaxParts,
		},
		{
			name:     "TooManyParts",
			data:     func(*testing.T) []byte { return pngHeader(10, 16000*constants.MaxParts+1) },
			purpose:  imaging.PurposePage,
			wantCode: apperr.CodeValidation,
		},
		{
			name:     "TooManyPixels",
			data:     func(*testing.T) []byte { return pngHeader(12000, 10001) },
			purpose:  imaging.PurposePage,
			wantCode: apperr.CodeUnprocessable,
		},
		{
			name:     "TooManyPixelsCover",
			data:     func(*testing.T) []byte { return pngHeader(20000, 20000) },
			purpose:  imaging.PurposeCover,
			wantCode: apperr.CodeUnprocessable,
		},
		{
			name:     "NoPixels",
			data:     func(*testing.T) []byte { return pngHeader(0, 10) },
			purpose:  imaging.PurposePage,
			wantCode: apperr.CodeUnprocessable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputs, err := imaging.NewTransformer(&sizeEncoder{}).Transform(tt.data(t), tt.purpose)
			if tt.wantCode != "" {
				assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
				assert.Empty(t, outputs)
				return
			}
			require.NoError(t, err)
			assert.Len(t, outputs, tt.wantParts)
		})
	}
}

/*
TestStrips_CoverSource verifies strips tile the source rows with no gap and no
overlap.
*/
func TestStrips_CoverSource(t *testing.T) {
	tests := []struct {
		name          string
		scaledHeight  int
		naturalHeight int
		wantCount     int
	}{
		{"ThreeEven", 40000, 40000, 3},
		{"FourUneven", 48005, 48005, 4},
		{"Scaled", 17500, 18229, 2},
		{"Odd", 100001, 333337, 7},
		{"Single", 16000, 16000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strips := imaging.Strips(tt.scaledHeight, tt.naturalHeight, 16000)
			require.Len(t, strips, tt.wantCount)

			next := 0
			for _, strip := range strips {
				assert.Equal(t, next, strip.SourceY)
				assert.Positive(t, strip.SourceHeight)
				assert.LessOrEqual(t, strip.Height, 16000)
				next = strip.SourceY + strip.SourceHeight
			}
			assert.Equal(t, tt.naturalHeight, next)
		})
	}
}
