// Package meshtree converts an imported scene into the flat, engine-agnostic mesh
// hierarchy handed to renderers: a pre-order array of node records whose parent
// links are plain indices, each carrying fully self-contained mesh attributes.
package meshtree

import "github.com/Faultbox/meshloader/pkg/math"

// NodeRecord is one node of the flattened hierarchy.
type NodeRecord struct {
	Name        string
	Transform   math.Mat4 // target engine convention, see ConvertTransform
	ParentIndex int       // -1 for the root, otherwise an earlier index
	Meshes      []MeshRecord
}

// Tangent is a tangent vector plus the bitangent handedness flag.
// FlipBitangent set means the bitangent is -cross(normal, tangent).
type Tangent struct {
	Vector        math.Vec3
	FlipBitangent bool
}

// MeshRecord holds one mesh's attributes. All per-vertex slices have the same
// length and every triangle index is below that length.
type MeshRecord struct {
	Vertices  []math.Vec3
	Normals   []math.Vec3
	UVs       []math.Vec2
	Tangents  []Tangent
	Triangles []int32
}

// Empty reports whether the mesh has nothing to render.
func (m *MeshRecord) Empty() bool {
	return len(m.Vertices) == 0 || len(m.Triangles) == 0
}

// TriangleCount returns the number of triangles.
func (m *MeshRecord) TriangleCount() int {
	return len(m.Triangles) / 3
}

// MeshFailure records a mesh that was replaced by an empty record because a
// structural invariant did not hold.
type MeshFailure struct {
	Node int // index into LoadResult.Nodes
	Mesh int // index into that node's Meshes
	Err  error
}

// LoadResult is the top-level output of a mesh load. On failure Nodes is empty.
type LoadResult struct {
	Success    bool
	Nodes      []NodeRecord
	MeshErrors []MeshFailure
	Err        error
	Message    string
}

// Failed builds the all-or-nothing failure result.
func Failed(err error) LoadResult {
	return LoadResult{Success: false, Err: err, Message: err.Error()}
}

// MeshCount returns the number of mesh records across all nodes.
func (r *LoadResult) MeshCount() int {
	n := 0
	for i := range r.Nodes {
		n += len(r.Nodes[i].Meshes)
	}
	return n
}
