package meshtree

import (
	"fmt"

	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/math"
)

// Fallbacks used when a source mesh lacks an attribute stream.
var (
	DefaultNormal  = math.Vec3{X: 0, Y: 0, Z: 1}
	DefaultUV      = math.Vec2{X: 0, Y: 0}
	DefaultTangent = Tangent{Vector: math.Vec3{X: 1, Y: 0, Z: 0}, FlipBitangent: false}
)

// NormalizeMesh converts one imported mesh into a self-contained MeshRecord.
//
// Every vertex gets a normal, a UV and a tangent, falling back to the package
// defaults when the source stream is missing. UVs have v flipped (v' = 1 - v)
// and both components clamped to [0, 1]. Faces must already be triangles; any
// other face size returns ErrNonTriangularFace and an empty record.
func NormalizeMesh(m *scene.Mesh) (MeshRecord, error) {
	n := len(m.Positions)

	out := MeshRecord{
		Vertices: make([]math.Vec3, n),
		Normals:  make([]math.Vec3, n),
		UVs:      make([]math.Vec2, n),
		Tangents: make([]Tangent, n),
	}
	copy(out.Vertices, m.Positions)

	hasNormals := m.HasNormals()
	hasUVs := m.HasUVs()
	hasTangents := m.HasTangentsAndBitangents()

	for i := 0; i < n; i++ {
		if hasNormals {
			out.Normals[i] = m.Normals[i]
		} else {
			out.Normals[i] = DefaultNormal
		}

		if hasUVs {
			uv := m.UVs[i]
			out.UVs[i] = math.Vec2{X: uv.X, Y: 1 - uv.Y}.Clamp01()
		} else {
			out.UVs[i] = DefaultUV
		}

		if hasTangents {
			t := m.Tangents[i]
			w := t.Cross(m.Bitangents[i]).Dot(out.Normals[i])
			out.Tangents[i] = Tangent{Vector: t, FlipBitangent: w < 0}
		} else {
			out.Tangents[i] = DefaultTangent
		}
	}

	triangles := make([]int32, 0, len(m.Faces)*3)
	for f, face := range m.Faces {
		if len(face) != 3 {
			return MeshRecord{}, &Error{
				Kind: KindMesh,
				Op:   "normalize",
				Err:  fmt.Errorf("%w: mesh %q face %d has %d indices", ErrNonTriangularFace, m.Name, f, len(face)),
			}
		}
		for _, idx := range face {
			if int(idx) >= n {
				return MeshRecord{}, &Error{
					Kind: KindMesh,
					Op:   "normalize",
					Err:  fmt.Errorf("%w: mesh %q face %d index %d >= %d vertices", ErrIndexOutOfRange, m.Name, f, idx, n),
				}
			}
			triangles = append(triangles, int32(idx))
		}
	}
	out.Triangles = triangles

	return out, nil
}
