package meshtree

import (
	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/math"
)

// transformRemap maps each destination cell of the target matrix to its source
// cell in the importer's row-major matrix: dst[i] = src[transformRemap[i]].
// It is a transpose, so the importer's column-vector transform becomes the
// row-vector form (translation in cells 12..14).
var transformRemap = [16]int{
	0, 4, 8, 12,
	1, 5, 9, 13,
	2, 6, 10, 14,
	3, 7, 11, 15,
}

// ConvertTransform remaps an importer matrix into the target convention.
func ConvertTransform(src scene.Matrix) math.Mat4 {
	var dst math.Mat4
	for i, from := range transformRemap {
		dst[i] = src[from]
	}
	return dst
}

type visit struct {
	node   int
	parent int
}

// Flatten walks the scene depth-first in pre-order and returns one NodeRecord per
// node. A node's index is its position in the output; children always follow
// their parent. Every value is copied out, so the records do not alias s.
//
// Meshes that break a structural invariant are replaced by an empty record and
// reported in the returned failures; they never abort the walk.
func Flatten(s *scene.Scene) ([]NodeRecord, []MeshFailure) {
	if s == nil || s.Root < 0 || s.Root >= len(s.Nodes) {
		return nil, nil
	}

	nodes := make([]NodeRecord, 0, len(s.Nodes))
	var failures []MeshFailure

	stack := []visit{{node: s.Root, parent: -1}}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		src := &s.Nodes[v.node]
		index := len(nodes)
		record := NodeRecord{
			Name:        src.Name,
			Transform:   ConvertTransform(src.Transform),
			ParentIndex: v.parent,
			Meshes:      make([]MeshRecord, 0, len(src.Meshes)),
		}

		for i, meshIdx := range src.Meshes {
			mesh, err := NormalizeMesh(&s.Meshes[meshIdx])
			if err != nil {
				failures = append(failures, MeshFailure{Node: index, Mesh: i, Err: err})
			}
			record.Meshes = append(record.Meshes, mesh)
		}
		nodes = append(nodes, record)

		// Push in reverse so the first child is visited next.
		for c := len(src.Children) - 1; c >= 0; c-- {
			stack = append(stack, visit{node: src.Children[c], parent: index})
		}
	}

	return nodes, failures
}

// Children rebuilds the child lists from parent indices. Entry i holds the
// indices of node i's children in output order.
func Children(nodes []NodeRecord) [][]int {
	children := make([][]int, len(nodes))
	for i := range nodes {
		if p := nodes[i].ParentIndex; p >= 0 && p < len(nodes) {
			children[p] = append(children[p], i)
		}
	}
	return children
}

// Depth returns how many parent links separate node i from the root.
func Depth(nodes []NodeRecord, i int) int {
	d := 0
	for p := nodes[i].ParentIndex; p >= 0; p = nodes[p].ParentIndex {
		d++
	}
	return d
}
