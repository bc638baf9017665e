package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// createTestGND builds a version 1.7 ground with one blank 8x8 lightmap and
// flat tiles without surfaces.
func createTestGND(width, height uint32, textures []string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("GRGN")
	buf.WriteByte(1)
	buf.WriteByte(7)

	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)
	binary.Write(buf, binary.LittleEndian, float32(10.0))

	textureNameLen := uint32(80)
	binary.Write(buf, binary.LittleEndian, uint32(len(textures)))
	binary.Write(buf, binary.LittleEndian, textureNameLen)
	for _, tex := range textures {
		nameBytes := make([]byte, textureNameLen)
		copy(nameBytes, tex)
		buf.Write(nameBytes)
	}

	binary.Write(buf, binary.LittleEndian, uint32(1)) // count
	binary.Write(buf, binary.LittleEndian, uint32(8)) // width
	binary.Write(buf, binary.LittleEndian, uint32(8)) // height
	binary.Write(buf, binary.LittleEndian, uint32(1)) // cells
	buf.Write(make([]byte, 8*8*4))

	binary.Write(buf, binary.LittleEndian, uint32(0)) // surfaces

	for i := uint32(0); i < width*height; i++ {
		for j := 0; j < 4; j++ {
			binary.Write(buf, binary.LittleEndian, float32(0.0))
		}
		binary.Write(buf, binary.LittleEndian, int32(-1)) // top
		binary.Write(buf, binary.LittleEndian, int32(-1)) // front
		binary.Write(buf, binary.LittleEndian, int32(-1)) // right
	}

	return buf.Bytes()
}

func TestParseGND_ValidFile(t *testing.T) {
	data := createTestGND(4, 4, []string{"texture1.bmp", "texture2.bmp"})

	gnd, err := ParseGND(data)
	if err != nil {
		t.Fatalf("ParseGND failed: %v", err)
	}
	if gnd.Version != (GNDVersion{1, 7}) {
		t.Errorf("version = %s, want 1.7", gnd.Version)
	}
	if gnd.Width != 4 || gnd.Height != 4 {
		t.Errorf("size = %dx%d, want 4x4", gnd.Width, gnd.Height)
	}
	if gnd.Zoom != 10.0 {
		t.Errorf("zoom = %f, want 10", gnd.Zoom)
	}
	if len(gnd.Textures) != 2 {
		t.Errorf("textures = %d, want 2", len(gnd.Textures))
	}
	if gnd.LightmapCount != 1 || gnd.LightmapWidth != 8 {
		t.Errorf("lightmaps = %d (%dpx), want 1 (8px)", gnd.LightmapCount, gnd.LightmapWidth)
	}
	if len(gnd.Tiles) != 16 {
		t.Errorf("tiles = %d, want 16", len(gnd.Tiles))
	}
	if gnd.Tiles[5].TopSurface != -1 {
		t.Errorf("top surface = %d, want -1", gnd.Tiles[5].TopSurface)
	}
}

func TestParseGND_TextureNames(t *testing.T) {
	textures := []string{"GROUND01.BMP", "WALL_STONE.BMP", "water\\blue.bmp"}
	gnd, err := ParseGND(createTestGND(2, 2, textures))
	if err != nil {
		t.Fatalf("ParseGND failed: %v", err)
	}
	if len(gnd.Textures) != 3 {
		t.Fatalf("textures = %d, want 3", len(gnd.Textures))
	}
	for i, want := range textures {
		if gnd.Textures[i] != want {
			t.Errorf("texture %d = %q, want %q", i, gnd.Textures[i], want)
		}
	}
}

func TestParseGND_Errors(t *testing.T) {
	unsupported := new(bytes.Buffer)
	unsupported.WriteString("GRGN")
	unsupported.Write([]byte{2, 0})
	binary.Write(unsupported, binary.LittleEndian, uint32(4))

	tooWide := createTestGND(1, 1, nil)
	binary.LittleEndian.PutUint32(tooWide[6:], 5000)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"invalid magic", []byte("XXXX\x01\x07\x04\x00\x00\x00\x04\x00\x00\x00"), ErrInvalidGNDMagic},
		{"magic only", []byte("GRGN"), ErrTruncatedGNDData},
		{"unsupported version", unsupported.Bytes(), ErrUnsupportedGNDVersion},
		{"too wide", tooWide, ErrInvalidGNDSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGND(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseGND_Truncated(t *testing.T) {
	data := createTestGND(2, 2, []string{"a.bmp"})
	for _, n := range []int{10, 20, 30, 100, 300, len(data) - 1} {
		if _, err := ParseGND(data[:n]); !errors.Is(err, ErrTruncatedGNDData) {
			t.Errorf("ParseGND(data[:%d]) error = %v, want ErrTruncatedGNDData", n, err)
		}
	}
}

func sampleGND() *GND {
	return &GND{
		Version:        GNDVersion{1, 7},
		Width:          2,
		Height:         1,
		Zoom:           10,
		Textures:       []string{"바닥.bmp", "wall.bmp"},
		LightmapCount:  2,
		LightmapWidth:  8,
		LightmapHeight: 8,
		LightmapCells:  1,
		Surfaces: []GNDSurface{
			{U: [4]float32{0, 1, 0, 1}, V: [4]float32{0, 0, 1, 1}, TextureID: 0, Color: [4]uint8{255, 255, 255, 255}},
			{U: [4]float32{0, 1, 0, 1}, V: [4]float32{0, 0, 1, 1}, TextureID: 1, LightmapID: 1},
		},
		Tiles: []GNDTile{
			{Altitude: [4]float32{0, 0, 0, 0}, TopSurface: 0, FrontSurface: -1, RightSurface: 1},
			{Altitude: [4]float32{-5, -5, -5, -5}, TopSurface: 0, FrontSurface: -1, RightSurface: -1},
		},
	}
}

func TestGND_MarshalRoundTrip(t *testing.T) {
	want := sampleGND()
	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, err := ParseGND(data)
	if err != nil {
		t.Fatalf("ParseGND: %v", err)
	}

	if got.Width != want.Width || got.Height != want.Height || got.Zoom != want.Zoom {
		t.Errorf("header = %dx%d zoom %f", got.Width, got.Height, got.Zoom)
	}
	if got.Textures[0] != want.Textures[0] || got.Textures[1] != want.Textures[1] {
		t.Errorf("textures = %q", got.Textures)
	}
	if got.LightmapCount != 2 {
		t.Errorf("lightmaps = %d, want 2", got.LightmapCount)
	}
	if len(got.Surfaces) != 2 || got.Surfaces[1] != want.Surfaces[1] {
		t.Errorf("surfaces = %+v", got.Surfaces)
	}
	for i := range want.Tiles {
		if got.Tiles[i] != want.Tiles[i] {
			t.Errorf("tile %d = %+v, want %+v", i, got.Tiles[i], want.Tiles[i])
		}
	}
}

func TestGND_MarshalErrors(t *testing.T) {
	g := sampleGND()
	g.Tiles = g.Tiles[:1]
	if _, err := g.MarshalBinary(); !errors.Is(err, ErrInvalidGNDSize) {
		t.Errorf("tile mismatch error = %v, want ErrInvalidGNDSize", err)
	}

	g = sampleGND()
	g.Version = GNDVersion{2, 0}
	if _, err := g.MarshalBinary(); !errors.Is(err, ErrUnsupportedGNDVersion) {
		t.Errorf("version error = %v, want ErrUnsupportedGNDVersion", err)
	}
}

func TestGND_Tile(t *testing.T) {
	gnd, err := ParseGND(createTestGND(4, 4, nil))
	if err != nil {
		t.Fatal(err)
	}

	if gnd.Tile(2, 3) != &gnd.Tiles[3*4+2] {
		t.Error("Tile(2, 3) does not address row-major storage")
	}
	for _, c := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}} {
		if gnd.Tile(c[0], c[1]) != nil {
			t.Errorf("Tile(%d, %d) should return nil", c[0], c[1])
		}
	}
}

func TestGND_Surface(t *testing.T) {
	g := sampleGND()
	if g.Surface(1) != &g.Surfaces[1] {
		t.Error("Surface(1) wrong")
	}
	for _, id := range []int32{-1, 2, 100} {
		if g.Surface(id) != nil {
			t.Errorf("Surface(%d) should return nil", id)
		}
	}
}

func TestGND_AltitudeRange(t *testing.T) {
	gnd, _ := ParseGND(createTestGND(2, 2, nil))
	gnd.Tiles[0].Altitude = [4]float32{-10, -5, 0, 5}
	gnd.Tiles[1].Altitude = [4]float32{10, 20, 30, 40}

	lo, hi := gnd.AltitudeRange()
	if lo != -10 || hi != 40 {
		t.Errorf("AltitudeRange = (%f, %f), want (-10, 40)", lo, hi)
	}

	lo, hi = (&GND{}).AltitudeRange()
	if lo != 0 || hi != 0 {
		t.Errorf("empty AltitudeRange = (%f, %f), want (0, 0)", lo, hi)
	}
}

func TestGNDVersion(t *testing.T) {
	tests := []struct {
		version   GNDVersion
		str       string
		supported bool
	}{
		{GNDVersion{1, 5}, "1.5", true},
		{GNDVersion{1, 7}, "1.7", true},
		{GNDVersion{1, 9}, "1.9", true},
		{GNDVersion{1, 4}, "1.4", false},
		{GNDVersion{2, 0}, "2.0", false},
	}
	for _, tc := range tests {
		if tc.version.String() != tc.str {
			t.Errorf("String() = %q, want %q", tc.version.String(), tc.str)
		}
		if tc.version.Supported() != tc.supported {
			t.Errorf("%s Supported() = %v", tc.str, tc.version.Supported())
		}
	}
}

func TestGND_SurfacesByTexture(t *testing.T) {
	gnd := &GND{
		Surfaces: []GNDSurface{
			{TextureID: 0},
			{TextureID: 0},
			{TextureID: 1},
			{TextureID: -1},
			{TextureID: 0},
		},
	}
	counts := gnd.SurfacesByTexture()
	if counts[0] != 3 || counts[1] != 1 {
		t.Errorf("counts = %v, want 0:3 1:1", counts)
	}
	if _, ok := counts[-1]; ok {
		t.Error("untextured surfaces counted")
	}
}
