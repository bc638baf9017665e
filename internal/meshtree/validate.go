package meshtree

import (
	"errors"
	"fmt"
)

// ErrInvalidTree is returned by Validate when the flat encoding is broken.
var ErrInvalidTree = errors.New("invalid mesh tree")

// Validate checks the output invariants: exactly one root at index 0, every
// parent index strictly before its child, matching per-vertex stream lengths,
// whole triangles and in-range triangle indices.
func Validate(nodes []NodeRecord) error {
	for i := range nodes {
		p := nodes[i].ParentIndex
		switch {
		case i == 0 && p != -1:
			return fmt.Errorf("%w: root has parent %d", ErrInvalidTree, p)
		case i > 0 && (p < 0 || p >= i):
			return fmt.Errorf("%w: node %d has parent %d", ErrInvalidTree, i, p)
		}

		for m := range nodes[i].Meshes {
			if err := validateMesh(&nodes[i].Meshes[m]); err != nil {
				return fmt.Errorf("%w: node %d mesh %d: %v", ErrInvalidTree, i, m, err)
			}
		}
	}
	return nil
}

func validateMesh(m *MeshRecord) error {
	n := len(m.Vertices)
	if len(m.Normals) != n || len(m.UVs) != n || len(m.Tangents) != n {
		return fmt.Errorf("stream lengths %d/%d/%d/%d", n, len(m.Normals), len(m.UVs), len(m.Tangents))
	}
	if len(m.Triangles)%3 != 0 {
		return fmt.Errorf("%d triangle indices", len(m.Triangles))
	}
	for _, idx := range m.Triangles {
		if idx < 0 || int(idx) >= n {
			return fmt.Errorf("triangle index %d out of range", idx)
		}
	}
	return nil
}
