package importer

import (
	"io/fs"

	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/formats"
	"github.com/Faultbox/meshloader/pkg/math"
)

// rsmBackend reads Ragnarok Online resource models. Node parents are resolved
// by name. The node's Offset and 3x3 matrix only move its own vertices, so
// they are baked into the mesh instead of the inherited transform.
type rsmBackend struct{}

// badIndex never addresses a vertex.
const badIndex = ^uint32(0)

func (rsmBackend) Extensions() []string { return []string{".rsm", ".rsm2"} }

func (rsmBackend) Decode(data []byte, _ string, _ fs.FS) (*scene.Scene, error) {
	model, err := formats.ParseRSM(data)
	if err != nil {
		return nil, err
	}
	root := model.Root()
	if root == nil {
		return &scene.Scene{Root: -1}, nil
	}

	s := &scene.Scene{}
	visited := make(map[*formats.RSMNode]bool)

	type item struct {
		node   *formats.RSMNode
		parent int
	}
	queue := []item{{node: root, parent: -1}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if visited[it.node] {
			continue
		}
		visited[it.node] = true

		sn := scene.Node{
			Name:      it.node.Name,
			Transform: scene.MatrixFromMat4(rsmLocalMatrix(it.node)),
		}
		if mesh, ok := rsmMesh(it.node); ok {
			sn.Meshes = []int{s.AddMesh(mesh)}
		}
		idx := s.AddNode(it.parent, sn)

		for _, c := range model.Children(it.node.Name) {
			queue = append(queue, item{node: c, parent: idx})
		}
	}
	s.Root = 0
	return s, nil
}

// rsmLocalMatrix is the transform children inherit:
// Translate(Position) * Rotation * Scale. Rotation comes from the first
// rotation key when keys exist, otherwise from the axis-angle pair.
func rsmLocalMatrix(n *formats.RSMNode) math.Mat4 {
	m := math.Translate(n.Position[0], n.Position[1], n.Position[2])

	if len(n.RotKeys) > 0 {
		q := n.RotKeys[0].Quaternion
		m = m.Mul(math.QuatXYZW(q).ToMat4())
	} else if n.RotAngle != 0 {
		axis := math.V3(n.RotAxis)
		if axis.Length() > 1e-6 {
			m = m.Mul(math.RotateAxis(axis.Normalize().Array(), n.RotAngle))
		}
	}

	scale := n.Scale
	if len(n.ScaleKeys) > 0 {
		k := n.ScaleKeys[0].Scale
		scale = [3]float32{scale[0] * k[0], scale[1] * k[1], scale[2] * k[2]}
	}
	return m.Mul(math.Scale(scale[0], scale[1], scale[2]))
}

// rsmMesh unwelds the node's faces into one vertex per distinct
// (vertex, texcoord) pair, with Offset and the 3x3 matrix applied.
func rsmMesh(n *formats.RSMNode) (scene.Mesh, bool) {
	if len(n.Faces) == 0 || len(n.Vertices) == 0 {
		return scene.Mesh{}, false
	}

	vertexMatrix := math.Translate(n.Offset[0], n.Offset[1], n.Offset[2]).Mul(math.FromMat3x3(n.Matrix))
	mesh := scene.Mesh{Name: n.Name}
	hasUV := len(n.TexCoords) > 0

	type key struct{ v, t uint16 }
	lookup := make(map[key]uint32)

	for _, f := range n.Faces {
		face := make(scene.Face, 0, 3)
		for j := 0; j < 3; j++ {
			k := key{v: f.VertexIDs[j], t: f.TexCoordIDs[j]}
			idx, ok := lookup[k]
			if !ok {
				if int(k.v) >= len(n.Vertices) {
					// Keep the face with an impossible index so the mesh is
					// reported instead of silently patched.
					face = append(face, badIndex)
					continue
				}
				idx = uint32(len(mesh.Positions))
				lookup[k] = idx
				mesh.Positions = append(mesh.Positions, math.V3(vertexMatrix.TransformPoint(n.Vertices[k.v])))
				if hasUV {
					var uv math.Vec2
					if int(k.t) < len(n.TexCoords) {
						tc := n.TexCoords[k.t]
						uv = math.Vec2{X: tc.U, Y: tc.V}
					}
					mesh.UVs = append(mesh.UVs, uv)
				}
			}
			face = append(face, idx)
		}
		mesh.Faces = append(mesh.Faces, face)
	}
	return mesh, true
}
