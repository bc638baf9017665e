package importer

import "strings"

// Flags selects post-processing steps. Steps run in declaration order no
// matter how the bits are combined.
type Flags uint32

const (
	// Triangulate splits polygons with more than three corners into a fan.
	Triangulate Flags = 1 << iota
	// GenSmoothNormals builds per-vertex normals for meshes that have none.
	GenSmoothNormals
	// CalcTangentSpace derives tangents and bitangents from UV channel 0.
	CalcTangentSpace
	// MakeLeftHanded mirrors the Z axis of geometry and node transforms.
	MakeLeftHanded
	// FlipUVs replaces v with 1 - v.
	FlipUVs
	// FlipWindingOrder reverses the corner order of every face.
	FlipWindingOrder
)

// CanonicalFlags is the one post-process set used for every load. It leaves
// UVs alone; the v flip happens once, in the attribute normalizer.
const CanonicalFlags = Triangulate | MakeLeftHanded | CalcTangentSpace | GenSmoothNormals

var flagNames = []struct {
	flag Flags
	name string
}{
	{Triangulate, "Triangulate"},
	{GenSmoothNormals, "GenSmoothNormals"},
	{CalcTangentSpace, "CalcTangentSpace"},
	{MakeLeftHanded, "MakeLeftHanded"},
	{FlipUVs, "FlipUVs"},
	{FlipWindingOrder, "FlipWindingOrder"},
}

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

func (f Flags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}
