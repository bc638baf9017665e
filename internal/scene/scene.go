// Package scene holds the importer-side scene graph: an arena of nodes indexed by
// integer handles plus the meshes they reference. It is the read-only input of the
// mesh tree flattener.
package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshloader/pkg/math"
)

// Scene validation errors.
var (
	ErrNoRoot        = errors.New("scene has no root node")
	ErrBadNodeRef    = errors.New("node reference out of range")
	ErrBadMeshRef    = errors.New("mesh reference out of range")
	ErrNotATree      = errors.New("node graph is not a tree")
	ErrAttributeSize = errors.New("vertex attribute length mismatch")
)

// Matrix is a row-major 4x4 transform in column-vector convention:
// element (row r, col c) is stored at r*4+c and the translation sits in
// column 3 (indices 3, 7, 11).
type Matrix [16]float32

// IdentityMatrix returns the identity transform.
func IdentityMatrix() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// MatrixFromMat4 converts a column-major math.Mat4 into a row-major Matrix.
func MatrixFromMat4(m math.Mat4) Matrix {
	return Matrix(m.Transpose())
}

// Mat4 converts the matrix back into a column-major math.Mat4.
func (m Matrix) Mat4() math.Mat4 {
	return math.Mat4(m).Transpose()
}

// Node is one entry of the scene hierarchy.
type Node struct {
	Name      string
	Transform Matrix
	Meshes    []int // indices into Scene.Meshes
	Children  []int // indices into Scene.Nodes
}

// Face is one polygon as a list of vertex indices.
type Face []uint32

// Mesh holds the vertex streams of one geometry. Optional streams are either nil
// or exactly as long as Positions.
type Mesh struct {
	Name       string
	Positions  []math.Vec3
	Normals    []math.Vec3
	UVs        []math.Vec2 // texture coordinate channel 0
	Tangents   []math.Vec3
	Bitangents []math.Vec3
	Faces      []Face
}

// HasNormals reports whether the mesh carries a normal per vertex.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Positions)
}

// HasUVs reports whether texture coordinate channel 0 is present.
func (m *Mesh) HasUVs() bool {
	return len(m.UVs) > 0 && len(m.UVs) == len(m.Positions)
}

// HasTangentsAndBitangents reports whether the tangent frame is present.
func (m *Mesh) HasTangentsAndBitangents() bool {
	n := len(m.Positions)
	return n > 0 && len(m.Tangents) == n && len(m.Bitangents) == n
}

// Scene is a parsed model. Nodes form a rooted tree starting at Root.
type Scene struct {
	Nodes  []Node
	Meshes []Mesh
	Root   int
}

// New returns a scene holding a single empty root node.
func New(rootName string) *Scene {
	return &Scene{
		Nodes: []Node{{Name: rootName, Transform: IdentityMatrix()}},
		Root:  0,
	}
}

// AddNode appends a node as the last child of parent and returns its handle.
// A negative parent appends a detached node.
func (s *Scene) AddNode(parent int, node Node) int {
	idx := len(s.Nodes)
	s.Nodes = append(s.Nodes, node)
	if parent >= 0 {
		s.Nodes[parent].Children = append(s.Nodes[parent].Children, idx)
	}
	return idx
}

// AddMesh appends a mesh and returns its handle.
func (s *Scene) AddMesh(mesh Mesh) int {
	s.Meshes = append(s.Meshes, mesh)
	return len(s.Meshes) - 1
}

// HasMeshes reports whether the scene holds any geometry.
func (s *Scene) HasMeshes() bool {
	return len(s.Meshes) > 0
}

// CountReachable returns the number of nodes reachable from the root.
func (s *Scene) CountReachable() int {
	if s.Root < 0 || s.Root >= len(s.Nodes) {
		return 0
	}
	count := 0
	stack := []int{s.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, s.Nodes[n].Children...)
	}
	return count
}

// Validate checks the importer contract: a rooted acyclic tree with in-range
// node and mesh references and consistent vertex stream lengths.
func (s *Scene) Validate() error {
	if s.Root < 0 || s.Root >= len(s.Nodes) {
		return ErrNoRoot
	}

	seen := make([]bool, len(s.Nodes))
	stack := []int{s.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			return fmt.Errorf("%w: node %d reached twice", ErrNotATree, n)
		}
		seen[n] = true

		node := &s.Nodes[n]
		for _, m := range node.Meshes {
			if m < 0 || m >= len(s.Meshes) {
				return fmt.Errorf("%w: node %q mesh %d", ErrBadMeshRef, node.Name, m)
			}
		}
		for _, c := range node.Children {
			if c < 0 || c >= len(s.Nodes) {
				return fmt.Errorf("%w: node %q child %d", ErrBadNodeRef, node.Name, c)
			}
			stack = append(stack, c)
		}
	}

	for i := range s.Meshes {
		m := &s.Meshes[i]
		n := len(m.Positions)
		for name, l := range map[string]int{
			"normals":    len(m.Normals),
			"uvs":        len(m.UVs),
			"tangents":   len(m.Tangents),
			"bitangents": len(m.Bitangents),
		} {
			if l != 0 && l != n {
				return fmt.Errorf("%w: mesh %d %s has %d entries for %d vertices", ErrAttributeSize, i, name, l, n)
			}
		}
	}
	return nil
}
