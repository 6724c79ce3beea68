package misc

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/BrugadaSyndrome/bslogger"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(60 * x), G: uint8(80 * y), B: 200, A: 255})
		}
	}
	return img
}

func TestParseImageFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ImageFormat
		wantErr error
	}{
		{"", PNG, nil},
		{"png", PNG, nil},
		{".JPG", JPEG, nil},
		{"jpeg", JPEG, nil},
		{"bmp", BMP, nil},
		{"tif", TIFF, nil},
		{"gif", 0, ErrUnknownImageFormat},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseImageFormat(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseImageFormat(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseImageFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if JPEG.Extension() != "jpg" || TIFF.Extension() != "tiff" || BMP.ContentType() != "image/bmp" {
		t.Error("unexpected extension or content type")
	}
}

func TestEncodeImageLossless(t *testing.T) {
	src := testImage()
	for _, format := range []ImageFormat{PNG, BMP, TIFF} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := EncodeImage(src, format)
			if err != nil {
				t.Fatalf("EncodeImage: %v", err)
			}
			img, err := DecodeImage(data, format)
			if err != nil {
				t.Fatalf("DecodeImage: %v", err)
			}
			if img.Bounds() != src.Bounds() {
				t.Fatalf("bounds = %v, want %v", img.Bounds(), src.Bounds())
			}
			for y := 0; y < 3; y++ {
				for x := 0; x < 4; x++ {
					r, g, b, a := img.At(x, y).RGBA()
					want := src.RGBAAt(x, y)
					if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B || uint8(a>>8) != want.A {
						t.Errorf("pixel (%d, %d) = (%d, %d, %d, %d), want %v", x, y, r>>8, g>>8, b>>8, a>>8, want)
					}
				}
			}
		})
	}
}

func TestEncodeImageJPEG(t *testing.T) {
	data, err := EncodeImage(testImage(), JPEG)
	if err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	img, err := DecodeImage(data, JPEG)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v", img.Bounds())
	}

	if _, err := EncodeImage(testImage(), ImageFormat(9)); !errors.Is(err, ErrUnknownImageFormat) {
		t.Errorf("unknown format error = %v", err)
	}
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3", "5", "2.png")
	n, err := WriteFile(path, []byte("tile"))
	if err != nil || n != 4 {
		t.Fatalf("WriteFile = %d, %v", n, err)
	}
	got, err := ReadFile(path)
	if err != nil || string(got) != "tile" {
		t.Fatalf("ReadFile = %q, %v", got, err)
	}

	if _, err := ReadFile(""); err == nil {
		t.Error("ReadFile accepted an empty name")
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) = %v, want os.ErrNotExist", err)
	}
}

func TestCheckError(t *testing.T) {
	logger := bslogger.NewLogger("MiscTest", bslogger.Normal, nil)
	if CheckError(nil, logger, Fatal) {
		t.Error("CheckError(nil) reported an error")
	}
	if !CheckError(errors.New("boom"), logger, Debug) {
		t.Error("CheckError did not report the error")
	}
}

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("GetFreePort: %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Errorf("port = %d", port)
	}
}
