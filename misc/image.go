package misc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

const (
	PNG ImageFormat = iota
	JPEG
	BMP
	TIFF
)

var ErrUnknownImageFormat = errors.New("unknown image format")

type ImageFormat int

func (f ImageFormat) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	}
	return fmt.Sprintf("ImageFormat(%d)", int(f))
}

// ParseImageFormat accepts a format name or file extension, with or without the leading dot.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	case "tiff", "tif":
		return TIFF, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownImageFormat, s)
}

func (f ImageFormat) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return f.String()
}

func (f ImageFormat) ContentType() string {
	return "image/" + f.String()
}

func (f ImageFormat) MarshalText() ([]byte, error) {
	if f < PNG || f > TIFF {
		return nil, fmt.Errorf("%w: %d", ErrUnknownImageFormat, int(f))
	}
	return []byte(f.String()), nil
}

func (f *ImageFormat) UnmarshalText(text []byte) error {
	format, err := ParseImageFormat(string(text))
	if err != nil {
		return err
	}
	*f = format
	return nil
}

func WriteImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %d", ErrUnknownImageFormat, int(format))
}

func EncodeImage(img image.Image, format ImageFormat) ([]byte, error) {
	var buffer bytes.Buffer
	if err := WriteImage(&buffer, img, format); err != nil {
		return nil, fmt.Errorf("encoding %s - %w", format, err)
	}
	return buffer.Bytes(), nil
}

func DecodeImage(data []byte, format ImageFormat) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case PNG:
		return png.Decode(r)
	case JPEG:
		return jpeg.Decode(r)
	case BMP:
		return bmp.Decode(r)
	case TIFF:
		return tiff.Decode(r)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownImageFormat, int(format))
}
