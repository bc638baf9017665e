package importer

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/math"
)

// gltfBackend reads glTF 2.0 JSON and binary files. Every primitive becomes
// its own mesh; strips and fans are expanded to triangle lists here.
type gltfBackend struct{}

func (gltfBackend) Extensions() []string { return []string{".gltf", ".glb"} }

func (gltfBackend) Decode(data []byte, name string, fsys fs.FS) (*scene.Scene, error) {
	var dec *gltf.Decoder
	if fsys != nil {
		dec = gltf.NewDecoderFS(bytes.NewReader(data), fsys)
	} else {
		dec = gltf.NewDecoder(bytes.NewReader(data))
	}
	doc := new(gltf.Document)
	if err := dec.Decode(doc); err != nil {
		return nil, err
	}

	s := &scene.Scene{}
	meshes := make(map[int][]int) // glTF mesh -> scene meshes
	meshesFor := func(idx int) ([]int, error) {
		if ids, ok := meshes[idx]; ok {
			return ids, nil
		}
		if idx < 0 || idx >= len(doc.Meshes) {
			return nil, fmt.Errorf("%w: mesh %d", errMalformed, idx)
		}
		var ids []int
		for p, prim := range doc.Meshes[idx].Primitives {
			m, err := gltfPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, p, err)
			}
			m.Name = doc.Meshes[idx].Name
			ids = append(ids, s.AddMesh(m))
		}
		meshes[idx] = ids
		return ids, nil
	}

	roots := gltfRoots(doc)
	parent := -1
	if len(roots) != 1 {
		s.AddNode(-1, scene.Node{
			Name:      strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
			Transform: scene.IdentityMatrix(),
		})
		parent = 0
	}

	type item struct{ node, parent int }
	visited := make(map[int]bool)
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{node: roots[i], parent: parent})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.node < 0 || it.node >= len(doc.Nodes) {
			return nil, fmt.Errorf("%w: node %d", errMalformed, it.node)
		}
		if visited[it.node] {
			return nil, fmt.Errorf("%w: node %d has more than one parent", errMalformed, it.node)
		}
		visited[it.node] = true

		src := doc.Nodes[it.node]
		n := scene.Node{
			Name:      src.Name,
			Transform: scene.MatrixFromMat4(gltfNodeMatrix(src)),
		}
		if src.Mesh != nil {
			ids, err := meshesFor(*src.Mesh)
			if err != nil {
				return nil, err
			}
			n.Meshes = append([]int(nil), ids...)
		}
		idx := s.AddNode(it.parent, n)
		for c := len(src.Children) - 1; c >= 0; c-- {
			stack = append(stack, item{node: src.Children[c], parent: idx})
		}
	}
	if len(s.Nodes) == 0 {
		s.Root = -1
	}
	return s, nil
}

// gltfRoots returns the root nodes of the default scene, falling back to the
// first scene and then to every node nobody lists as a child.
func gltfRoots(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// gltfNodeMatrix returns the node's local transform. An explicit matrix wins
// over TRS; glTF stores it column-major like math.Mat4. The decoder fills
// absent TRS fields with their defaults, so a zero scale is kept as written.
func gltfNodeMatrix(n *gltf.Node) math.Mat4 {
	var m math.Mat4
	for i, v := range n.Matrix {
		m[i] = float32(v)
	}
	if m != (math.Mat4{}) && m != math.Identity() {
		return m
	}

	t := math.Translate(float32(n.Translation[0]), float32(n.Translation[1]), float32(n.Translation[2]))
	r := math.Quat{
		X: float32(n.Rotation[0]),
		Y: float32(n.Rotation[1]),
		Z: float32(n.Rotation[2]),
		W: float32(n.Rotation[3]),
	}.ToMat4()
	s := math.Scale(float32(n.Scale[0]), float32(n.Scale[1]), float32(n.Scale[2]))
	return t.Mul(r).Mul(s)
}

func gltfAccessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", errMalformed, idx)
	}
	return doc.Accessors[idx], nil
}

func gltfPrimitive(doc *gltf.Document, prim *gltf.Primitive) (scene.Mesh, error) {
	var m scene.Mesh

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return m, fmt.Errorf("%w: primitive without POSITION", errMalformed)
	}
	acc, err := gltfAccessor(doc, posIdx)
	if err != nil {
		return m, err
	}
	positions, err := modeler.ReadPosition(doc, acc, nil)
	if err != nil {
		return m, fmt.Errorf("reading positions: %w", err)
	}
	m.Positions = make([]math.Vec3, len(positions))
	for i, p := range positions {
		m.Positions[i] = math.V3(p)
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acc, err := gltfAccessor(doc, idx)
		if err != nil {
			return m, err
		}
		normals, err := modeler.ReadNormal(doc, acc, nil)
		if err != nil {
			return m, fmt.Errorf("reading normals: %w", err)
		}
		m.Normals = make([]math.Vec3, len(normals))
		for i, n := range normals {
			m.Normals[i] = math.V3(n)
		}
	}

	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		acc, err := gltfAccessor(doc, idx)
		if err != nil {
			return m, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acc, nil)
		if err != nil {
			return m, fmt.Errorf("reading texcoords: %w", err)
		}
		m.UVs = make([]math.Vec2, len(uvs))
		for i, uv := range uvs {
			m.UVs[i] = math.Vec2{X: uv[0], Y: uv[1]}
		}
	}

	// Tangent w is the bitangent sign: B = cross(N, T) * w.
	if idx, ok := prim.Attributes[gltf.TANGENT]; ok && m.HasNormals() {
		acc, err := gltfAccessor(doc, idx)
		if err != nil {
			return m, err
		}
		tangents, err := modeler.ReadTangent(doc, acc, nil)
		if err != nil {
			return m, fmt.Errorf("reading tangents: %w", err)
		}
		if len(tangents) == len(m.Positions) {
			m.Tangents = make([]math.Vec3, len(tangents))
			m.Bitangents = make([]math.Vec3, len(tangents))
			for i, t := range tangents {
				tv := math.Vec3{X: t[0], Y: t[1], Z: t[2]}
				w := t[3]
				if w == 0 {
					w = 1
				}
				m.Tangents[i] = tv
				m.Bitangents[i] = m.Normals[i].Cross(tv).Scale(w)
			}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acc, err := gltfAccessor(doc, *prim.Indices)
		if err != nil {
			return m, err
		}
		if indices, err = modeler.ReadIndices(doc, acc, nil); err != nil {
			return m, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(m.Positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	m.Faces = gltfFaces(prim.Mode, indices)
	return m, nil
}

// gltfFaces groups an index list into faces according to the primitive mode.
// Point and line modes produce one- and two-corner faces.
func gltfFaces(mode gltf.PrimitiveMode, idx []uint32) []scene.Face {
	var faces []scene.Face
	switch mode {
	case gltf.PrimitiveTriangles:
		for i := 0; i+2 < len(idx); i += 3 {
			faces = append(faces, scene.Face{idx[i], idx[i+1], idx[i+2]})
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				faces = append(faces, scene.Face{idx[i], idx[i+1], idx[i+2]})
			} else {
				faces = append(faces, scene.Face{idx[i+1], idx[i], idx[i+2]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			faces = append(faces, scene.Face{idx[0], idx[i], idx[i+1]})
		}
	case gltf.PrimitivePoints:
		for _, v := range idx {
			faces = append(faces, scene.Face{v})
		}
	case gltf.PrimitiveLines:
		for i := 0; i+1 < len(idx); i += 2 {
			faces = append(faces, scene.Face{idx[i], idx[i+1]})
		}
	case gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		for i := 0; i+1 < len(idx); i++ {
			faces = append(faces, scene.Face{idx[i], idx[i+1]})
		}
		if mode == gltf.PrimitiveLineLoop && len(idx) > 2 {
			faces = append(faces, scene.Face{idx[len(idx)-1], idx[0]})
		}
	}
	return faces
}
