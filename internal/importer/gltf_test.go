package importer

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshloader/internal/meshtree"
	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/math"
)

// gltfDoc builds a glTF JSON document holding one indexed quad whose buffer is
// embedded as a data URI. nodes and scenes are passed through as-is.
func gltfDoc(t *testing.T, nodes []map[string]any, scenes []map[string]any) []byte {
	t.Helper()

	var buf bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	write([][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}) // 48 bytes
	write([][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}})             // 32 bytes
	write([]uint16{0, 1, 2, 0, 2, 3})                               // 12 bytes

	doc := map[string]any{
		"asset": map[string]any{"version": "2.0"},
		"buffers": []map[string]any{{
			"byteLength": buf.Len(),
			"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		}},
		"bufferViews": []map[string]any{
			{"buffer": 0, "byteOffset": 0, "byteLength": 48},
			{"buffer": 0, "byteOffset": 48, "byteLength": 32},
			{"buffer": 0, "byteOffset": 80, "byteLength": 12},
		},
		"accessors": []map[string]any{
			{"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3", "min": []float32{0, 0, 0}, "max": []float32{1, 1, 0}},
			{"bufferView": 1, "componentType": 5126, "count": 4, "type": "VEC2"},
			{"bufferView": 2, "componentType": 5123, "count": 6, "type": "SCALAR"},
		},
		"meshes": []map[string]any{{
			"name": "quad",
			"primitives": []map[string]any{{
				"attributes": map[string]int{"POSITION": 0, "TEXCOORD_0": 1},
				"indices":    2,
			}},
		}},
		"nodes": nodes,
	}
	if scenes != nil {
		doc["scenes"] = scenes
		doc["scene"] = 0
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestGLTF_Hierarchy(t *testing.T) {
	data := gltfDoc(t,
		[]map[string]any{
			{"name": "root", "children": []int{1, 2}},
			{"name": "quad", "mesh": 0, "translation": []float64{1, 2, 3}},
			{"name": "pivot"},
		},
		[]map[string]any{{"nodes": []int{0}}},
	)

	s, err := New().Import(data, "scene.gltf", Triangulate)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(s.Nodes) != 3 || s.Nodes[s.Root].Name != "root" {
		t.Fatalf("nodes = %+v", s.Nodes)
	}

	quad := s.Nodes[s.Nodes[s.Root].Children[0]]
	if quad.Name != "quad" || len(quad.Meshes) != 1 {
		t.Fatalf("first child = %+v", quad)
	}
	if p := quad.Transform.Mat4().TransformPoint([3]float32{0, 0, 0}); p != [3]float32{1, 2, 3} {
		t.Errorf("translation = %v, want (1, 2, 3)", p)
	}

	m := s.Meshes[quad.Meshes[0]]
	if m.Name != "quad" || len(m.Positions) != 4 || len(m.Faces) != 2 {
		t.Errorf("mesh = %q with %d vertices, %d faces", m.Name, len(m.Positions), len(m.Faces))
	}
	if m.UVs[2] != (math.Vec2{X: 1, Y: 1}) {
		t.Errorf("uv[2] = %v", m.UVs[2])
	}
	if f := m.Faces[1]; f[0] != 0 || f[1] != 2 || f[2] != 3 {
		t.Errorf("face 1 = %v, want [0 2 3]", f)
	}
}

func TestGLTF_MultipleRootsGetSyntheticRoot(t *testing.T) {
	data := gltfDoc(t,
		[]map[string]any{
			{"name": "a", "mesh": 0},
			{"name": "b", "mesh": 0, "scale": []float64{2, 2, 2}},
		},
		nil,
	)

	s, err := New().Import(data, "pair.gltf", 0)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	root := s.Nodes[s.Root]
	if root.Name != "pair" || len(root.Children) != 2 {
		t.Fatalf("root = %+v", root)
	}
	b := s.Nodes[root.Children[1]]
	if p := b.Transform.Mat4().TransformPoint([3]float32{1, 1, 1}); p != [3]float32{2, 2, 2} {
		t.Errorf("scaled point = %v, want (2, 2, 2)", p)
	}
	// Both nodes share one glTF mesh, converted once.
	if len(s.Meshes) != 1 {
		t.Errorf("got %d scene meshes, want 1", len(s.Meshes))
	}
}

func TestGLTF_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("{broken")},
		{"bad child", gltfDoc(t, []map[string]any{{"name": "r", "children": []int{7}}}, []map[string]any{{"nodes": []int{0}}})},
		{"bad mesh", gltfDoc(t, []map[string]any{{"name": "r", "mesh": 4}}, []map[string]any{{"nodes": []int{0}}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New().Import(tt.data, "bad.gltf", CanonicalFlags); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGLTFFaces(t *testing.T) {
	idx := []uint32{0, 1, 2, 3, 4}
	tests := []struct {
		name string
		mode gltf.PrimitiveMode
		want []scene.Face
	}{
		{"triangles", gltf.PrimitiveTriangles, []scene.Face{{0, 1, 2}}},
		{"strip", gltf.PrimitiveTriangleStrip, []scene.Face{{0, 1, 2}, {2, 1, 3}, {2, 3, 4}}},
		{"fan", gltf.PrimitiveTriangleFan, []scene.Face{{0, 1, 2}, {0, 2, 3}, {0, 3, 4}}},
		{"lines", gltf.PrimitiveLines, []scene.Face{{0, 1}, {2, 3}}},
		{"points", gltf.PrimitivePoints, []scene.Face{{0}, {1}, {2}, {3}, {4}}},
		{"loop", gltf.PrimitiveLineLoop, []scene.Face{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gltfFaces(tt.mode, idx)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				for j := range tt.want[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("face %d = %v, want %v", i, got[i], tt.want[i])
						break
					}
				}
			}
		})
	}
}

func TestGLTFNodeMatrix(t *testing.T) {
	tests := []struct {
		name  string
		scale [3]float64
		want  [3]float32
	}{
		{"default", gltf.DefaultScale, [3]float32{1, 2, 3}},
		{"zero scale hides node", [3]float64{0, 0, 0}, [3]float32{0, 0, 0}},
		{"flattened", [3]float64{1, 0, 1}, [3]float32{1, 0, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := gltf.Node{Matrix: gltf.DefaultMatrix, Rotation: gltf.DefaultRotation, Scale: tt.scale}
			m := gltfNodeMatrix(&n)
			if got := m.TransformPoint([3]float32{1, 2, 3}); got != tt.want {
				t.Errorf("point = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGLTF_ZeroScaleFromFile(t *testing.T) {
	data := gltfDoc(t,
		[]map[string]any{
			{"name": "root", "children": []int{1, 2}},
			{"name": "hidden", "mesh": 0, "scale": []float64{0, 0, 0}},
			{"name": "plain", "mesh": 0},
		},
		[]map[string]any{{"nodes": []int{0}}},
	)
	s, err := New().Import(data, "scale.gltf", 0)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	root := s.Nodes[s.Root]
	hidden := s.Nodes[root.Children[0]].Transform.Mat4()
	if p := hidden.TransformPoint([3]float32{1, 1, 1}); p != [3]float32{0, 0, 0} {
		t.Errorf("hidden node maps (1,1,1) to %v, want origin", p)
	}
	plain := s.Nodes[root.Children[1]].Transform.Mat4()
	if plain != math.Identity() {
		t.Errorf("node without TRS = %v, want identity", plain)
	}
}

// tangentGLB encodes a one-triangle binary glTF facing +Z whose tangents are
// +X with handedness w.
func tangentGLB(t *testing.T, w float32) []byte {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	tan := modeler.WriteTangent(doc, [][4]float32{{1, 0, 0, w}, {1, 0, 0, w}, {1, 0, 0, w}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: gltf.PrimitiveAttributes{
				gltf.POSITION:   pos,
				gltf.NORMAL:     nrm,
				gltf.TANGENT:    tan,
				gltf.TEXCOORD_0: uv,
			},
			Indices: gltf.Index(idx),
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "tri", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []int{0}

	var buf bytes.Buffer
	if err := gltf.NewEncoder(&buf).Encode(doc); err != nil {
		t.Fatalf("encoding glb: %v", err)
	}
	return buf.Bytes()
}

func TestGLTF_TangentHandedness(t *testing.T) {
	tests := []struct {
		name  string
		w     float32
		flags Flags
		flip  bool
	}{
		{"right-handed w=+1", 1, Triangulate, false},
		{"right-handed w=-1", -1, Triangulate, true},
		{"unset w counts as +1", 0, Triangulate, false},
		// mirroring Z reverses handedness
		{"left-handed w=+1", 1, Triangulate | MakeLeftHanded, true},
		{"left-handed w=-1", -1, Triangulate | MakeLeftHanded, false},
		{"canonical w=-1", -1, CanonicalFlags, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New().Import(tangentGLB(t, tt.w), "tri.glb", tt.flags)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			m := s.Meshes[0]
			if !m.HasTangentsAndBitangents() {
				t.Fatal("TANGENT accessor not imported")
			}

			nodes, failures := meshtree.Flatten(s)
			if len(failures) != 0 || len(nodes) != 1 || len(nodes[0].Meshes) != 1 {
				t.Fatalf("flatten: %d nodes, failures %v", len(nodes), failures)
			}
			for i, tan := range nodes[0].Meshes[0].Tangents {
				if tan.FlipBitangent != tt.flip {
					t.Errorf("vertex %d FlipBitangent = %v, want %v", i, tan.FlipBitangent, tt.flip)
				}
				if !approxVec(tan.Vector, math.Vec3{X: 1}) {
					t.Errorf("vertex %d tangent = %v, want +X", i, tan.Vector)
				}
			}
		})
	}
}
