// Package texture decodes image files into raw 4-channel, 8-bit pixel buffers
// and resolves the companion textures that sit next to a model file.
package texture

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Decode errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecodeFailed      = errors.New("image decode failed")
	ErrEmptyData         = errors.New("image data is empty")
)

// Format identifies an image container. It is chosen from the file
// extension only; content is never sniffed.
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatJPEG
	FormatBMP
	FormatTGA
	FormatWebP
)

var formatByExt = map[string]Format{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".bmp":  FormatBMP,
	".tga":  FormatTGA,
	".webp": FormatWebP,
}

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "PNG"
	case FormatJPEG:
		return "JPEG"
	case FormatBMP:
		return "BMP"
	case FormatTGA:
		return "TGA"
	case FormatWebP:
		return "WebP"
	default:
		return "Unknown"
	}
}

// FormatFromPath maps a file extension (case-insensitive) to a Format.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := formatByExt[ext]; ok {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
