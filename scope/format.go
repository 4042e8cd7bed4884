package scope

import (
	"fmt"
	"strings"
)

// ImageFormat is a screen image format accepted by ":DISP:DATA?".
type ImageFormat string

// Image formats offered by the DS1000Z.
const (
	PNG   ImageFormat = "PNG"
	BMP24 ImageFormat = "BMP24"
	BMP8  ImageFormat = "BMP8"
	JPEG  ImageFormat = "JPEG"
	TIFF  ImageFormat = "TIFF"
)

// Extension returns the file name extension, without the dot.
func (f ImageFormat) Extension() string {
	switch f {
	case BMP24, BMP8:
		return "bmp"
	case JPEG:
		return "jpg"
	case TIFF:
		return "tiff"
	default:
		return "png"
	}
}

// Valid reports whether f is one of the supported formats.
func (f ImageFormat) Valid() bool {
	switch f {
	case PNG, BMP24, BMP8, JPEG, TIFF:
		return true
	default:
		return false
	}
}

func (f ImageFormat) String() string {
	return string(f)
}

// ParseImageFormat accepts the format names used on the command line
// ("png", "bmp", "bmp24", "bmp8", "jpeg", "jpg", "tiff"), case-insensitively.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "bmp", "bmp24":
		return BMP24, nil
	case "bmp8":
		return BMP8, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "tiff", "tif":
		return TIFF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}
