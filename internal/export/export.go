// Package export turns a selected cover into a downloadable PNG.
package export

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	"bookcover-studio/internal/slug"
)

// Scale is the upscale factor applied on export, matching the 3x capture
// of the original preview.
const Scale = 3

// CoverPNG decodes a cover data URL, upscales it Scale times onto a
// transparent canvas and re-encodes it as PNG.
func CoverPNG(imageDataURL string) ([]byte, error) {
	raw, err := decodeDataURL(imageDataURL)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode cover image: %w", err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*Scale, bounds.Dy()*Scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

// Filename derives the download name from the book title.
func Filename(title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "book-cover"
	}
	return s + "-cover.png"
}

func decodeDataURL(dataURL string) ([]byte, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return nil, errors.New("empty cover image")
	}

	payload := dataURL
	if idx := strings.IndexByte(dataURL, ','); idx >= 0 {
		payload = dataURL[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}
