package export

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testDataURL(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCoverPNGUpscales(t *testing.T) {
	out, err := CoverPNG(testDataURL(t, 10, 15))
	if err != nil {
		t.Fatalf("CoverPNG: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 10*Scale || bounds.Dy() != 15*Scale {
		t.Fatalf("output is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), 10*Scale, 15*Scale)
	}
}

func TestCoverPNGRejectsGarbage(t *testing.T) {
	if _, err := CoverPNG(""); err == nil {
		t.Fatal("empty input should fail")
	}
	if _, err := CoverPNG("data:image/png;base64,%%%"); err == nil {
		t.Fatal("invalid base64 should fail")
	}
	if _, err := CoverPNG("data:image/png;base64,aGVsbG8="); err == nil {
		t.Fatal("non-image payload should fail")
	}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Deep Focus", "deep-focus-cover.png"},
		{"Crème Brûlée!", "creme-brulee-cover.png"},
		{"", "book-cover-cover.png"},
		{"???", "book-cover-cover.png"},
	}

	for _, tc := range cases {
		if got := Filename(tc.title); got != tc.want {
			t.Errorf("Filename(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}
