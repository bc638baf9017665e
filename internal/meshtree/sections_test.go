package meshtree

import (
	"errors"
	"testing"

	"github.com/Faultbox/meshloader/pkg/math"
)

func TestSections_SkipsEmptyMeshes(t *testing.T) {
	full := MeshRecord{
		Vertices:  make([]math.Vec3, 3),
		Normals:   make([]math.Vec3, 3),
		UVs:       make([]math.Vec2, 3),
		Tangents:  make([]Tangent, 3),
		Triangles: []int32{0, 1, 2},
	}
	r := LoadResult{
		Success: true,
		Nodes: []NodeRecord{
			{ParentIndex: -1, Meshes: []MeshRecord{full, {}}},
			{ParentIndex: 0},
			{ParentIndex: 0, Meshes: []MeshRecord{{Vertices: make([]math.Vec3, 3)}, full}},
		},
	}

	got := Sections(&r)
	if len(got) != 2 {
		t.Fatalf("got %d sections, want 2", len(got))
	}
	want := [][3]int{{0, 0, 0}, {1, 2, 1}}
	for i, w := range want {
		s := got[i]
		if s.Index != w[0] || s.Node != w[1] || s.Mesh != w[2] {
			t.Errorf("section %d = (%d, %d, %d), want %v", i, s.Index, s.Node, s.Mesh, w)
		}
		if s.Data != &r.Nodes[s.Node].Meshes[s.Mesh] {
			t.Errorf("section %d data does not point into result", i)
		}
	}
	if r.MeshCount() != 4 {
		t.Errorf("MeshCount = %d, want 4", r.MeshCount())
	}
}

func TestScaleOrDefault(t *testing.T) {
	tests := []struct {
		in   math.Vec3
		want math.Vec3
	}{
		{math.Vec3{X: 1, Y: 2, Z: 3}, math.Vec3{X: 1, Y: 2, Z: 3}},
		{math.Vec3{}, math.Vec3{X: 0.01, Y: 0.01, Z: 0.01}},
		{math.Vec3{X: -2, Y: 1e-9, Z: 0.5}, math.Vec3{X: -2, Y: 0.01, Z: 0.5}},
	}
	for _, tt := range tests {
		if got := ScaleOrDefault(tt.in); got != tt.want {
			t.Errorf("ScaleOrDefault(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	good := MeshRecord{
		Vertices:  make([]math.Vec3, 3),
		Normals:   make([]math.Vec3, 3),
		UVs:       make([]math.Vec2, 3),
		Tangents:  make([]Tangent, 3),
		Triangles: []int32{0, 1, 2},
	}
	shortNormals := good
	shortNormals.Normals = shortNormals.Normals[:2]
	badIndex := good
	badIndex.Triangles = []int32{0, 1, 3}
	partial := good
	partial.Triangles = []int32{0, 1}

	tests := []struct {
		name    string
		nodes   []NodeRecord
		wantErr bool
	}{
		{"empty", nil, false},
		{"root only", []NodeRecord{{ParentIndex: -1, Meshes: []MeshRecord{good}}}, false},
		{"root with parent", []NodeRecord{{ParentIndex: 0}}, true},
		{"forward parent", []NodeRecord{{ParentIndex: -1}, {ParentIndex: 2}, {ParentIndex: 0}}, true},
		{"second root", []NodeRecord{{ParentIndex: -1}, {ParentIndex: -1}}, true},
		{"stream mismatch", []NodeRecord{{ParentIndex: -1, Meshes: []MeshRecord{shortNormals}}}, true},
		{"index out of range", []NodeRecord{{ParentIndex: -1, Meshes: []MeshRecord{badIndex}}}, true},
		{"partial triangle", []NodeRecord{{ParentIndex: -1, Meshes: []MeshRecord{partial}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.nodes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTree) {
				t.Errorf("error %v does not wrap ErrInvalidTree", err)
			}
		})
	}
}
