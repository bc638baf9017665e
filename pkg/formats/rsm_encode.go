package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/meshloader/pkg/encoding"
)

// MarshalBinary encodes the model in the layout ParseRSM reads, using the
// version stored in rsm.Version.
func (rsm *RSM) MarshalBinary() ([]byte, error) {
	if !rsm.Version.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	var buf bytes.Buffer
	w := func(v any) {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	name := func(s string) error {
		var b [rsmNameLen]byte
		if err := encoding.PutFixedString(b[:], s); err != nil {
			return fmt.Errorf("name too long: %w", err)
		}
		buf.Write(b[:])
		return nil
	}

	buf.WriteString(rsmMagic)
	w(rsm.Version.Major)
	w(rsm.Version.Minor)
	w(rsm.AnimLength)
	w(rsm.Shading)
	if rsm.Version.AtLeast(1, 4) {
		w(uint8(rsm.Alpha*255 + 0.5))
	}
	buf.Write(make([]byte, rsmReserved))

	w(int32(len(rsm.Textures)))
	for _, t := range rsm.Textures {
		if err := name(t); err != nil {
			return nil, err
		}
	}
	if err := name(rsm.RootNode); err != nil {
		return nil, err
	}

	w(int32(len(rsm.Nodes)))
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if err := name(n.Name); err != nil {
			return nil, err
		}
		if err := name(n.Parent); err != nil {
			return nil, err
		}
		w(int32(len(n.TextureIDs)))
		w(n.TextureIDs)
		w(n.Matrix)
		w(n.Offset)
		w(n.Position)
		w(n.RotAngle)
		w(n.RotAxis)
		w(n.Scale)

		w(int32(len(n.Vertices)))
		w(n.Vertices)

		w(int32(len(n.TexCoords)))
		for _, tc := range n.TexCoords {
			if rsm.Version.AtLeast(1, 2) {
				w(tc.Color)
			}
			w(tc.U)
			w(tc.V)
		}

		w(int32(len(n.Faces)))
		for _, f := range n.Faces {
			w(f.VertexIDs)
			w(f.TexCoordIDs)
			w(f.TextureID)
			w(f.Padding)
			w(f.TwoSide)
			if rsm.Version.AtLeast(1, 2) {
				w(f.SmoothGroup)
			}
		}

		if !rsm.Version.AtLeast(1, 5) {
			w(int32(len(n.PosKeys)))
			for _, k := range n.PosKeys {
				w(k.Frame)
				w(k.Position)
			}
		}
		w(int32(len(n.RotKeys)))
		for _, k := range n.RotKeys {
			w(k.Frame)
			w(k.Quaternion)
		}
		if rsm.Version.AtLeast(1, 5) {
			w(int32(len(n.ScaleKeys)))
			for _, k := range n.ScaleKeys {
				w(k.Frame)
				w(k.Scale)
			}
		}
	}

	w(int32(len(rsm.VolumeBoxes)))
	for _, box := range rsm.VolumeBoxes {
		w(box.Size)
		w(box.Position)
		w(box.Rotation)
		if rsm.Version.AtLeast(1, 3) {
			w(box.Flag)
		}
	}

	return buf.Bytes(), nil
}
