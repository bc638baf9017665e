package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
	ErrInvalidGNDSize        = errors.New("invalid GND dimensions")
)

const (
	gndMagic       = "GRGN"
	maxGNDSide     = 1024
	maxGNDEntries  = 1 << 20
	gndTextureName = 80
)

// GNDVersion is the file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Supported reports whether ParseGND reads this version (1.5 to 1.9).
func (v GNDVersion) Supported() bool {
	return v.Major == 1 && v.Minor >= 5 && v.Minor <= 9
}

// GNDSurface is a textured quad shared by tiles.
type GNDSurface struct {
	U          [4]float32 // corner order: top-left, top-right, bottom-left, bottom-right
	V          [4]float32
	TextureID  int16 // -1 = no texture
	LightmapID int16
	Color      [4]uint8 // BGRA
}

// GNDTile is one grid cell. Surface IDs are -1 when the face is absent.
type GNDTile struct {
	Altitude     [4]float32 // bottom-left, bottom-right, top-left, top-right
	TopSurface   int32
	FrontSurface int32
	RightSurface int32
}

// GND is a parsed ground mesh. Lightmap pixels are not kept.
type GND struct {
	Version        GNDVersion
	Width          uint32
	Height         uint32
	Zoom           float32 // tile edge length in world units
	Textures       []string
	LightmapCount  int
	LightmapWidth  uint32
	LightmapHeight uint32
	LightmapCells  uint32
	Surfaces       []GNDSurface
	Tiles          []GNDTile // row-major, Width*Height entries
}

// Tile returns the tile at x, y or nil outside the grid.
func (g *GND) Tile(x, y int) *GNDTile {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Tiles[y*int(g.Width)+x]
}

// Surface returns the surface id refers to, or nil for -1 and bad ids.
func (g *GND) Surface(id int32) *GNDSurface {
	if id < 0 || int(id) >= len(g.Surfaces) {
		return nil
	}
	return &g.Surfaces[id]
}

// AltitudeRange returns the lowest and highest corner altitude.
func (g *GND) AltitudeRange() (lo, hi float32) {
	if len(g.Tiles) == 0 {
		return 0, 0
	}
	lo, hi = g.Tiles[0].Altitude[0], g.Tiles[0].Altitude[0]
	for _, tile := range g.Tiles {
		for _, h := range tile.Altitude {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// ParseGND parses GND data from a byte slice.
func ParseGND(data []byte) (*GND, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedGNDData
	}
	if string(data[:4]) != gndMagic {
		return nil, ErrInvalidGNDMagic
	}

	gnd := &GND{Version: GNDVersion{Major: data[4], Minor: data[5]}}
	if !gnd.Version.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, gnd.Version)
	}

	b := &binReader{r: bytes.NewReader(data[6:]), truncated: ErrTruncatedGNDData}
	b.read(&gnd.Width)
	b.read(&gnd.Height)
	b.read(&gnd.Zoom)
	if b.err != nil {
		return nil, b.err
	}
	if gnd.Width == 0 || gnd.Height == 0 || gnd.Width > maxGNDSide || gnd.Height > maxGNDSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGNDSize, gnd.Width, gnd.Height)
	}

	textures := b.count(maxGNDEntries, "textures")
	var nameLen int32
	b.read(&nameLen)
	if b.err == nil && (nameLen < 0 || nameLen > 1024) {
		return nil, fmt.Errorf("%w: texture name length %d", ErrInvalidElementCount, nameLen)
	}
	gnd.Textures = make([]string, textures)
	for i := range gnd.Textures {
		gnd.Textures[i] = b.fixedString(int(nameLen))
	}

	gnd.LightmapCount = b.count(maxGNDEntries, "lightmaps")
	b.read(&gnd.LightmapWidth)
	b.read(&gnd.LightmapHeight)
	b.read(&gnd.LightmapCells)
	pixels := int64(gnd.LightmapWidth) * int64(gnd.LightmapHeight) * int64(gnd.LightmapCells)
	// brightness plus RGB per pixel
	b.skip(int64(gnd.LightmapCount) * pixels * 4)

	gnd.Surfaces = make([]GNDSurface, b.count(maxGNDEntries, "surfaces"))
	for i := range gnd.Surfaces {
		s := &gnd.Surfaces[i]
		b.read(&s.U)
		b.read(&s.V)
		b.read(&s.TextureID)
		b.read(&s.LightmapID)
		b.read(&s.Color)
	}

	gnd.Tiles = make([]GNDTile, int(gnd.Width)*int(gnd.Height))
	for i := range gnd.Tiles {
		t := &gnd.Tiles[i]
		b.read(&t.Altitude)
		b.read(&t.TopSurface)
		b.read(&t.FrontSurface)
		b.read(&t.RightSurface)
	}

	if b.err != nil {
		return nil, b.err
	}
	return gnd, nil
}

// ParseGNDFile parses a GND file from disk.
func ParseGNDFile(path string) (*GND, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GND file: %w", err)
	}
	return ParseGND(data)
}

// SurfacesByTexture counts the surfaces using each texture id.
func (g *GND) SurfacesByTexture() map[int]int {
	counts := make(map[int]int)
	for _, s := range g.Surfaces {
		if s.TextureID >= 0 {
			counts[int(s.TextureID)]++
		}
	}
	return counts
}
