package importer

import (
	stdmath "math"

	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/math"
)

// PostProcess applies the steps selected by flags to every mesh and node of s.
func PostProcess(s *scene.Scene, flags Flags) {
	for i := range s.Meshes {
		m := &s.Meshes[i]
		if flags.Has(Triangulate) {
			triangulate(m)
		}
		if flags.Has(GenSmoothNormals) && !m.HasNormals() {
			genSmoothNormals(m)
		}
		if flags.Has(CalcTangentSpace) && m.HasNormals() && m.HasUVs() && !m.HasTangentsAndBitangents() {
			calcTangentSpace(m)
		}
		if flags.Has(MakeLeftHanded) {
			mirrorMeshZ(m)
		}
		if flags.Has(FlipUVs) {
			for j := range m.UVs {
				m.UVs[j].Y = 1 - m.UVs[j].Y
			}
		}
		if flags.Has(FlipWindingOrder) {
			for _, f := range m.Faces {
				for a, b := 0, len(f)-1; a < b; a, b = a+1, b-1 {
					f[a], f[b] = f[b], f[a]
				}
			}
		}
	}

	if flags.Has(MakeLeftHanded) {
		for i := range s.Nodes {
			s.Nodes[i].Transform = mirrorMatrixZ(s.Nodes[i].Transform)
		}
	}
}

// triangulate fan-splits every face with more than three corners. Points and
// lines are left as they are.
func triangulate(m *scene.Mesh) {
	needed := false
	for _, f := range m.Faces {
		if len(f) > 3 {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	faces := make([]scene.Face, 0, len(m.Faces)*2)
	for _, f := range m.Faces {
		if len(f) <= 3 {
			faces = append(faces, f)
			continue
		}
		for i := 1; i+1 < len(f); i++ {
			faces = append(faces, scene.Face{f[0], f[i], f[i+1]})
		}
	}
	m.Faces = faces
}

// smoothEpsilon is the grid size used to merge coincident vertices.
const smoothEpsilon float32 = 0.001

// genSmoothNormals accumulates area-weighted face normals per vertex, then
// averages across vertices sharing a position so split seams shade smoothly.
func genSmoothNormals(m *scene.Mesh) {
	n := len(m.Positions)
	acc := make([]math.Vec3, n)

	for _, f := range m.Faces {
		if len(f) < 3 || !inRange(f, n) {
			continue
		}
		p0 := m.Positions[f[0]]
		for i := 1; i+1 < len(f); i++ {
			e1 := m.Positions[f[i]].Sub(p0)
			e2 := m.Positions[f[i+1]].Sub(p0)
			fn := e1.Cross(e2) // length is twice the triangle area
			acc[f[0]] = acc[f[0]].Add(fn)
			acc[f[i]] = acc[f[i]].Add(fn)
			acc[f[i+1]] = acc[f[i+1]].Add(fn)
		}
	}

	groups := make(map[[3]int64][]int, n)
	for i, p := range m.Positions {
		key := [3]int64{gridCell(p.X), gridCell(p.Y), gridCell(p.Z)}
		groups[key] = append(groups[key], i)
	}

	normals := make([]math.Vec3, n)
	for _, idxs := range groups {
		var sum math.Vec3
		for _, i := range idxs {
			sum = sum.Add(acc[i])
		}
		avg := sum.NormalizeOr(math.Vec3{Z: 1})
		for _, i := range idxs {
			normals[i] = avg
		}
	}
	m.Normals = normals
}

// maxGridCell bounds cell coordinates well inside int64.
const maxGridCell = 1 << 62

// gridCell returns the smoothEpsilon cell holding v. Coordinates beyond
// maxGridCell cells share the outermost cell.
func gridCell(v float32) int64 {
	c := stdmath.Floor(float64(v) / float64(smoothEpsilon))
	switch {
	case stdmath.IsNaN(c):
		return 0
	case c >= maxGridCell:
		return maxGridCell
	case c <= -maxGridCell:
		return -maxGridCell
	}
	return int64(c)
}

// calcTangentSpace derives per-vertex tangents and bitangents from position
// and UV deltas, then orthogonalizes each tangent against its normal.
func calcTangentSpace(m *scene.Mesh) {
	n := len(m.Positions)
	tan := make([]math.Vec3, n)
	bit := make([]math.Vec3, n)

	for _, f := range m.Faces {
		if len(f) < 3 || !inRange(f, n) {
			continue
		}
		for i := 1; i+1 < len(f); i++ {
			a, b, c := f[0], f[i], f[i+1]
			e1 := m.Positions[b].Sub(m.Positions[a])
			e2 := m.Positions[c].Sub(m.Positions[a])
			d1 := m.UVs[b].Sub(m.UVs[a])
			d2 := m.UVs[c].Sub(m.UVs[a])

			det := d1.X*d2.Y - d2.X*d1.Y
			if det > -1e-12 && det < 1e-12 {
				continue
			}
			r := 1 / det
			t := e1.Scale(d2.Y).Sub(e2.Scale(d1.Y)).Scale(r)
			bt := e2.Scale(d1.X).Sub(e1.Scale(d2.X)).Scale(r)
			for _, v := range [3]uint32{a, b, c} {
				tan[v] = tan[v].Add(t)
				bit[v] = bit[v].Add(bt)
			}
		}
	}

	for i := 0; i < n; i++ {
		nrm := m.Normals[i]
		t := tan[i].Sub(nrm.Scale(nrm.Dot(tan[i])))
		t = t.NormalizeOr(perpendicular(nrm))
		b := bit[i].NormalizeOr(nrm.Cross(t))
		tan[i] = t
		bit[i] = b
	}
	m.Tangents = tan
	m.Bitangents = bit
}

// perpendicular returns some unit vector orthogonal to n.
func perpendicular(n math.Vec3) math.Vec3 {
	axis := math.Vec3{X: 1}
	if n.X > 0.9 || n.X < -0.9 {
		axis = math.Vec3{Y: 1}
	}
	return axis.Sub(n.Scale(n.Dot(axis))).NormalizeOr(math.Vec3{X: 1})
}

func mirrorMeshZ(m *scene.Mesh) {
	for _, stream := range [][]math.Vec3{m.Positions, m.Normals, m.Tangents, m.Bitangents} {
		for i := range stream {
			stream[i].Z = -stream[i].Z
		}
	}
}

// mirrorMatrixZ returns S*m*S with S = diag(1, 1, -1, 1): every cell in
// exactly one of row 2 or column 2 changes sign.
func mirrorMatrixZ(m scene.Matrix) scene.Matrix {
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			if (r == 2) != (c == 2) {
				m[r*4+c] = -m[r*4+c]
			}
		}
	}
	return m
}

func inRange(f scene.Face, n int) bool {
	for _, idx := range f {
		if int(idx) >= n {
			return false
		}
	}
	return true
}
