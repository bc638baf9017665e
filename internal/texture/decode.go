package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"github.com/Faultbox/meshloader/internal/meshtree"
)

// ChannelOrder is the byte order of each 4-byte pixel.
type ChannelOrder int

const (
	BGRA ChannelOrder = iota // engine default
	RGBA
)

func (o ChannelOrder) String() string {
	if o == RGBA {
		return "rgba"
	}
	return "bgra"
}

// ParseChannelOrder accepts "bgra" or "rgba" in any case.
func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch strings.ToLower(s) {
	case "bgra":
		return BGRA, nil
	case "rgba":
		return RGBA, nil
	}
	return BGRA, fmt.Errorf("unknown channel order %q", s)
}

// DecodedImage is a tightly packed pixel buffer with straight alpha, rows top
// to bottom. len(Pixels) is always Width*Height*4.
type DecodedImage struct {
	Width  int
	Height int
	Pixels []byte
	Order  ChannelOrder
}

// ByteLength returns the size of the pixel buffer.
func (d *DecodedImage) ByteLength() int {
	return len(d.Pixels)
}

// Image returns the pixels as an NRGBA image, for re-encoding previews.
func (d *DecodedImage) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, d.Width, d.Height))
	copy(img.Pix, d.Pixels)
	if d.Order == BGRA {
		swapRB(img.Pix)
	}
	return img
}

type decodeFunc func(io.Reader) (image.Image, error)

var decoders = map[Format]decodeFunc{
	FormatPNG:  png.Decode,
	FormatJPEG: jpeg.Decode,
	FormatBMP:  bmp.Decode,
	FormatTGA:  tga.Decode,
	FormatWebP: webp.Decode,
}

// Decoder turns encoded image bytes into a DecodedImage.
type Decoder struct {
	Order ChannelOrder
}

// Decode uses the default BGRA decoder.
func Decode(data []byte, format Format) (*DecodedImage, error) {
	return Decoder{}.Decode(data, format)
}

// Decode decodes data as the given format. Errors are *meshtree.Error of kind
// KindDecode and no partial image is ever returned.
func (d Decoder) Decode(data []byte, format Format) (*DecodedImage, error) {
	fail := func(cause error) error {
		return &meshtree.Error{Kind: meshtree.KindDecode, Op: "decode", Err: cause}
	}

	if len(data) == 0 {
		return nil, fail(ErrEmptyData)
	}
	dec, ok := decoders[format]
	if !ok {
		return nil, fail(fmt.Errorf("%w: %s", ErrUnsupportedFormat, format))
	}

	src, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, fail(fmt.Errorf("%w: %s: %v", ErrDecodeFailed, format, err))
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fail(fmt.Errorf("%w: %s: empty image %dx%d", ErrDecodeFailed, format, b.Dx(), b.Dy()))
	}

	img := toNRGBA(src)
	if d.Order == BGRA {
		swapRB(img.Pix)
	}
	return &DecodedImage{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: img.Pix,
		Order:  d.Order,
	}, nil
}

// ReadFile reads and decodes path, picking the format from its extension.
func (d Decoder) ReadFile(path string) (*DecodedImage, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &meshtree.Error{Kind: meshtree.KindDecode, Op: "decode", Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &meshtree.Error{Kind: meshtree.KindInput, Op: "read", Path: path, Err: err}
	}
	img, err := d.Decode(data, format)
	if err != nil {
		if e, ok := err.(*meshtree.Error); ok {
			e.Path = path
		}
		return nil, err
	}
	return img, nil
}

// toNRGBA returns a tightly packed, zero-origin NRGBA copy of src.
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// swapRB swaps the red and blue bytes of every pixel in place.
func swapRB(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
