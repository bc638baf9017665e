package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/meshloader/pkg/encoding"
)

// MarshalBinary encodes the ground mesh in the layout ParseGND reads.
// Lightmaps are written as LightmapCount blank entries.
func (g *GND) MarshalBinary() ([]byte, error) {
	if !g.Version.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, g.Version)
	}
	if len(g.Tiles) != int(g.Width)*int(g.Height) {
		return nil, fmt.Errorf("%w: %d tiles for %dx%d", ErrInvalidGNDSize, len(g.Tiles), g.Width, g.Height)
	}

	var buf bytes.Buffer
	w := func(v any) {
		binary.Write(&buf, binary.LittleEndian, v)
	}

	buf.WriteString(gndMagic)
	buf.WriteByte(g.Version.Major)
	buf.WriteByte(g.Version.Minor)
	w(g.Width)
	w(g.Height)
	w(g.Zoom)

	w(int32(len(g.Textures)))
	w(int32(gndTextureName))
	for _, t := range g.Textures {
		var b [gndTextureName]byte
		if err := encoding.PutFixedString(b[:], t); err != nil {
			return nil, fmt.Errorf("texture name too long: %w", err)
		}
		buf.Write(b[:])
	}

	w(int32(g.LightmapCount))
	w(g.LightmapWidth)
	w(g.LightmapHeight)
	w(g.LightmapCells)
	pixels := int(g.LightmapWidth) * int(g.LightmapHeight) * int(g.LightmapCells)
	buf.Write(make([]byte, g.LightmapCount*pixels*4))

	w(int32(len(g.Surfaces)))
	for _, s := range g.Surfaces {
		w(s.U)
		w(s.V)
		w(s.TextureID)
		w(s.LightmapID)
		w(s.Color)
	}
	for _, t := range g.Tiles {
		w(t.Altitude)
		w(t.TopSurface)
		w(t.FrontSurface)
		w(t.RightSurface)
	}
	return buf.Bytes(), nil
}
