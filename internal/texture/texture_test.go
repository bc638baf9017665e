package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/meshloader/internal/meshtree"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.png", FormatPNG, false},
		{"dir/A.PNG", FormatPNG, false},
		{"b.jpg", FormatJPEG, false},
		{"b.jpeg", FormatJPEG, false},
		{"c.bmp", FormatBMP, false},
		{"d.tga", FormatTGA, false},
		{"e.webp", FormatWebP, false},
		{"f.dds", FormatUnknown, true},
		{"noext", FormatUnknown, true},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFromPath(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("FormatFromPath(%q) err = %v, want ErrUnsupportedFormat", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("FormatFromPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDecode_PNG(t *testing.T) {
	data := encodePNG(t, testImage(3, 2))

	tests := []struct {
		name  string
		order ChannelOrder
		want  [4]byte
	}{
		{"bgra", BGRA, [4]byte{50, 100, 200, 255}},
		{"rgba", RGBA, [4]byte{200, 100, 50, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decoder{Order: tt.order}.Decode(data, FormatPNG)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Width != 3 || img.Height != 2 {
				t.Errorf("size = %dx%d, want 3x2", img.Width, img.Height)
			}
			if img.ByteLength() != img.Width*img.Height*4 {
				t.Errorf("ByteLength = %d, want %d", img.ByteLength(), img.Width*img.Height*4)
			}
			var got [4]byte
			copy(got[:], img.Pixels[:4])
			if got != tt.want {
				t.Errorf("first pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecode_OtherFormats(t *testing.T) {
	src := testImage(4, 4)
	var jpg, bm, wp bytes.Buffer
	if err := jpeg.Encode(&jpg, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bm, src); err != nil {
		t.Fatal(err)
	}
	if err := nativewebp.Encode(&wp, src, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"jpeg", jpg.Bytes(), FormatJPEG},
		{"bmp", bm.Bytes(), FormatBMP},
		{"webp", wp.Bytes(), FormatWebP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.data, tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Width != 4 || img.Height != 4 || img.ByteLength() != 64 {
				t.Errorf("got %dx%d with %d bytes", img.Width, img.Height, img.ByteLength())
			}
			if a := img.Pixels[3]; a != 255 {
				t.Errorf("alpha = %d, want 255", a)
			}
		})
	}
}

func TestDecode_TGA(t *testing.T) {
	// 2x1 uncompressed 32-bit true-color, top-left origin.
	data := []byte{
		0, 0, 2, 0, 0, 0, 0, 0,
		0, 0, 0, 0, // origin
		2, 0, 1, 0, // width, height
		32, 0x28, // bpp, descriptor: top-left, 8 alpha bits
		50, 100, 200, 255, // BGRA
		0, 0, 255, 128,
	}
	img, err := Decoder{Order: RGBA}.Decode(data, FormatTGA)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 2 || img.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", img.Width, img.Height)
	}
	if img.Pixels[0] != 200 || img.Pixels[2] != 50 {
		t.Errorf("first pixel = %v, want R=200 B=50", img.Pixels[:4])
	}
}

func TestDecode_Errors(t *testing.T) {
	good := encodePNG(t, testImage(8, 8))

	tests := []struct {
		name    string
		data    []byte
		format  Format
		wantErr error
	}{
		{"empty", nil, FormatPNG, ErrEmptyData},
		{"truncated png", good[:len(good)/2], FormatPNG, ErrDecodeFailed},
		{"garbage", []byte("definitely not an image"), FormatPNG, ErrDecodeFailed},
		{"png labeled jpeg", good, FormatJPEG, ErrDecodeFailed},
		{"unknown format", good, FormatUnknown, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.data, tt.format)
			if img != nil {
				t.Error("expected no image on failure")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if meshtree.KindOf(err) != meshtree.KindDecode {
				t.Errorf("kind = %v, want DecodeError", meshtree.KindOf(err))
			}
		})
	}
}

func TestDecodedImage_ImageRoundTrip(t *testing.T) {
	src := testImage(2, 2)
	img, err := Decode(encodePNG(t, src), FormatPNG)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	back := img.Image()
	if back.NRGBAAt(1, 1) != src.NRGBAAt(1, 1) {
		t.Errorf("pixel = %v, want %v", back.NRGBAAt(1, 1), src.NRGBAAt(1, 1))
	}
}

func TestParseChannelOrder(t *testing.T) {
	for in, want := range map[string]ChannelOrder{"bgra": BGRA, "BGRA": BGRA, "rgba": RGBA, "Rgba": RGBA} {
		got, err := ParseChannelOrder(in)
		if err != nil || got != want {
			t.Errorf("ParseChannelOrder(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseChannelOrder("argb"); err == nil {
		t.Error("expected error for argb")
	}
}

func TestCompanionPaths(t *testing.T) {
	tests := []struct {
		model       string
		wantDiffuse string
		wantNormal  string
	}{
		{
			filepath.Join("content", "props", "barrel.fbx"),
			filepath.Join("content", "props", "barrel_T.png"),
			filepath.Join("content", "props", "barrel_N.png"),
		},
		{"crate.obj", "crate_T.png", "crate_N.png"},
		{filepath.Join("a.b", "mesh.v2.gltf"), filepath.Join("a.b", "mesh.v2_T.png"), filepath.Join("a.b", "mesh.v2_N.png")},
	}
	for _, tt := range tests {
		d, n := CompanionPaths(tt.model)
		if d != tt.wantDiffuse || n != tt.wantNormal {
			t.Errorf("CompanionPaths(%q) = %q, %q; want %q, %q", tt.model, d, n, tt.wantDiffuse, tt.wantNormal)
		}
	}
}

func TestDecoder_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.png")
	if err := os.WriteFile(path, encodePNG(t, testImage(5, 3)), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := Decoder{}.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if img.Width != 5 || img.Height != 3 {
		t.Errorf("size = %dx%d", img.Width, img.Height)
	}

	if _, err := (Decoder{}).ReadFile(filepath.Join(dir, "missing.png")); meshtree.KindOf(err) != meshtree.KindInput {
		t.Errorf("missing file kind = %v, want InputError", meshtree.KindOf(err))
	}
	if _, err := (Decoder{}).ReadFile(filepath.Join(dir, "wall.xyz")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown extension err = %v", err)
	}
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 3)
	for i := range paths {
		paths[i] = filepath.Join(dir, string(rune('a'+i))+".png")
		if err := os.WriteFile(paths[i], encodePNG(t, testImage(i+1, 1)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c := NewCache(Decoder{}, 2)

	var wg sync.WaitGroup
	results := make([]*DecodedImage, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := c.ReadFile(paths[0])
			if err != nil {
				t.Errorf("ReadFile: %v", err)
			}
			results[i] = img
		}(i)
	}
	wg.Wait()
	for i := range results {
		if results[i] != results[0] {
			t.Fatal("concurrent reads returned different images")
		}
	}

	c.ReadFile(paths[1])
	c.ReadFile(paths[2])
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2 after eviction", c.Len())
	}

	c.Forget(paths[2])
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1 after Forget", c.Len())
	}

	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ReadFile(corrupt); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("corrupt file err = %v, want ErrDecodeFailed", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want decode failure cached", c.Len())
	}
}

func TestCache_MissingFileNotCached(t *testing.T) {
	dir := t.TempDir()
	late := filepath.Join(dir, "late.png")
	c := NewCache(Decoder{}, 0)

	_, err := c.ReadFile(late)
	if meshtree.KindOf(err) != meshtree.KindInput {
		t.Fatalf("missing file err = %v, want InputError", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, read failure was cached", c.Len())
	}

	if err := os.WriteFile(late, encodePNG(t, testImage(2, 2)), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := c.ReadFile(late)
	if err != nil {
		t.Fatalf("ReadFile after the file appeared: %v", err)
	}
	if img.Width != 2 || c.Len() != 1 {
		t.Errorf("width = %d, Len = %d", img.Width, c.Len())
	}
}
