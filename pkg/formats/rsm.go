// Package formats reads the Ragnarok Online model formats the importer accepts
// natively. RSM is the resource model: a named node hierarchy where each node
// owns its own vertices, texture coordinates and triangle faces. GND is the
// ground mesh of a map: a grid of tiles with textured top and wall surfaces.
package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

const (
	rsmMagic      = "GRSM"
	rsmNameLen    = 40
	rsmReserved   = 16
	maxRSMNodes   = 10000
	maxRSMEntries = 1 << 20
)

// RSMVersion is the file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// Supported reports whether the parser understands this version (1.1 - 2.x).
func (v RSMVersion) Supported() bool {
	return v.Major >= 1 && v.Major <= 2 && v.AtLeast(1, 1)
}

// RSMShadingType is the shading mode stored in the header.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with its vertex color (v1.2+).
type RSMTexCoord struct {
	Color [4]uint8
	U, V  float32
}

// RSMFace is a triangle referencing a node's vertex and texcoord arrays.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position key (v < 1.5).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation key, quaternion in X, Y, Z, W order.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale key (v1.5+).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy. Parent refers to another node
// by name; the root has an empty parent.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32

	Matrix   [9]float32 // 3x3, applied to vertices only
	Offset   [3]float32 // applied to vertices only
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSMVolumeBox is a collision volume.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM is a parsed resource model.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32
	Shading     RSMShadingType
	Alpha       float32
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if !rsm.Version.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	b := &binReader{r: bytes.NewReader(data[6:]), truncated: ErrTruncatedRSMData}
	b.read(&rsm.AnimLength)
	b.read(&rsm.Shading)

	rsm.Alpha = 1.0
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		b.read(&alpha)
		rsm.Alpha = float32(alpha) / 255.0
	}
	b.skip(rsmReserved)

	rsm.Textures = make([]string, b.count(maxRSMEntries, "textures"))
	for i := range rsm.Textures {
		rsm.Textures[i] = b.fixedString(rsmNameLen)
	}
	rsm.RootNode = b.fixedString(rsmNameLen)

	var nodeCount int32
	b.read(&nodeCount)
	if b.err != nil {
		return nil, b.err
	}
	if nodeCount < 0 || nodeCount > maxRSMNodes {
		return nil, ErrInvalidNodeCount
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		parseRSMNode(b, rsm.Version, &rsm.Nodes[i])
		if b.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, b.err)
		}
	}

	// Volume boxes are optional trailing data.
	if b.r.Len() >= 4 {
		rsm.VolumeBoxes = make([]RSMVolumeBox, b.count(maxRSMNodes, "volume boxes"))
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			b.read(&box.Size)
			b.read(&box.Position)
			b.read(&box.Rotation)
			if rsm.Version.AtLeast(1, 3) {
				b.read(&box.Flag)
			}
		}
		if b.err != nil {
			return nil, fmt.Errorf("parsing volume boxes: %w", b.err)
		}
	}

	return rsm, nil
}

func parseRSMNode(b *binReader, version RSMVersion, node *RSMNode) {
	node.Name = b.fixedString(rsmNameLen)
	node.Parent = b.fixedString(rsmNameLen)

	node.TextureIDs = make([]int32, b.count(maxRSMEntries, "texture ids"))
	b.read(node.TextureIDs)

	b.read(&node.Matrix)
	b.read(&node.Offset)
	b.read(&node.Position)
	b.read(&node.RotAngle)
	b.read(&node.RotAxis)
	b.read(&node.Scale)

	node.Vertices = make([][3]float32, b.count(maxRSMEntries, "vertices"))
	b.read(node.Vertices)

	node.TexCoords = make([]RSMTexCoord, b.count(maxRSMEntries, "texcoords"))
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		if version.AtLeast(1, 2) {
			b.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		b.read(&tc.U)
		b.read(&tc.V)
	}

	node.Faces = make([]RSMFace, b.count(maxRSMEntries, "faces"))
	for i := range node.Faces {
		f := &node.Faces[i]
		b.read(&f.VertexIDs)
		b.read(&f.TexCoordIDs)
		b.read(&f.TextureID)
		b.read(&f.Padding)
		b.read(&f.TwoSide)
		if version.AtLeast(1, 2) {
			b.read(&f.SmoothGroup)
		}
	}

	if !version.AtLeast(1, 5) {
		node.PosKeys = make([]RSMPosKeyframe, b.count(maxRSMEntries, "position keys"))
		for i := range node.PosKeys {
			b.read(&node.PosKeys[i].Frame)
			b.read(&node.PosKeys[i].Position)
		}
	}

	node.RotKeys = make([]RSMRotKeyframe, b.count(maxRSMEntries, "rotation keys"))
	for i := range node.RotKeys {
		b.read(&node.RotKeys[i].Frame)
		b.read(&node.RotKeys[i].Quaternion)
	}

	if version.AtLeast(1, 5) {
		node.ScaleKeys = make([]RSMScaleKeyframe, b.count(maxRSMEntries, "scale keys"))
		for i := range node.ScaleKeys {
			b.read(&node.ScaleKeys[i].Frame)
			b.read(&node.ScaleKeys[i].Scale)
		}
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// TotalVertexCount returns the number of vertices across all nodes.
func (rsm *RSM) TotalVertexCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Faces)
	}
	return total
}

// NodeByName returns the first node with the given name, or nil.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the node named by RootNode. When that name is missing it falls
// back to the first node without a resolvable parent.
func (rsm *RSM) Root() *RSMNode {
	if n := rsm.NodeByName(rsm.RootNode); n != nil {
		return n
	}
	for i := range rsm.Nodes {
		p := rsm.Nodes[i].Parent
		if p == "" || p == rsm.Nodes[i].Name || rsm.NodeByName(p) == nil {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Children returns the nodes whose parent is the named node, in file order.
// A node never counts as its own child.
func (rsm *RSM) Children(parentName string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if n.Parent == parentName && n.Name != parentName {
			children = append(children, n)
		}
	}
	return children
}

// HasAnimation reports whether any node carries keyframes.
func (rsm *RSM) HasAnimation() bool {
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if len(n.PosKeys) > 0 || len(n.RotKeys) > 0 || len(n.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
