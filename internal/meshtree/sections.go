package meshtree

import "github.com/Faultbox/meshloader/pkg/math"

// Section is one renderable mesh of a load result.
type Section struct {
	Index int // running section number over non-empty meshes
	Node  int
	Mesh  int
	Data  *MeshRecord
}

// Sections lists the meshes a consumer should build render sections from,
// skipping empty meshes. Data points into r.
func Sections(r *LoadResult) []Section {
	var sections []Section
	for n := range r.Nodes {
		for m := range r.Nodes[n].Meshes {
			mesh := &r.Nodes[n].Meshes[m]
			if mesh.Empty() {
				continue
			}
			sections = append(sections, Section{
				Index: len(sections),
				Node:  n,
				Mesh:  m,
				Data:  mesh,
			})
		}
	}
	return sections
}

// minScale replaces near-zero component scale axes.
const minScale = 0.01

// ScaleOrDefault replaces any near-zero axis of a component scale with 0.01 so
// the mesh never collapses to a plane.
func ScaleOrDefault(s math.Vec3) math.Vec3 {
	fix := func(v float32) float32 {
		if v > -1e-8 && v < 1e-8 {
			return minScale
		}
		return v
	}
	return math.Vec3{X: fix(s.X), Y: fix(s.Y), Z: fix(s.Z)}
}
