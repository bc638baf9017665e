package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/math"
)

// objBackend reads Wavefront OBJ text. Each "o" or "g" statement starts a new
// child node of the root with its own mesh; polygons are kept as n-gons.
type objBackend struct{}

func (objBackend) Extensions() []string { return []string{".obj"} }

// objCorner is one v/vt/vn reference of a face, already resolved to
// zero-based indices. -1 means absent.
type objCorner struct {
	v, vt, vn int
}

type objGroup struct {
	name    string
	mesh    scene.Mesh
	lookup  map[objCorner]uint32
	missUV  bool
	missNrm bool
	anyUV   bool
	anyNrm  bool
}

func (objBackend) Decode(data []byte, name string, _ fs.FS) (*scene.Scene, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	var (
		vs     []math.Vec3
		vts    []math.Vec2
		vns    []math.Vec3
		groups []*objGroup
		cur    *objGroup
	)
	begin := func(groupName string) {
		if cur != nil && len(cur.mesh.Faces) == 0 {
			cur.name = groupName
			return
		}
		cur = &objGroup{name: groupName, lookup: make(map[objCorner]uint32)}
		groups = append(groups, cur)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			vs = append(vs, math.Vec3{X: p[0], Y: p[1], Z: p[2]})
		case "vt":
			p, err := parseFloats(fields[1:], 1)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			uv := math.Vec2{X: p[0]}
			if len(p) > 1 {
				uv.Y = p[1]
			}
			vts = append(vts, uv)
		case "vn":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			vns = append(vns, math.Vec3{X: p[0], Y: p[1], Z: p[2]})
		case "o", "g":
			groupName := base
			if len(fields) > 1 {
				groupName = strings.Join(fields[1:], " ")
			}
			begin(groupName)
		case "f":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: %w: empty face", lineNo, errMalformed)
			}
			if cur == nil {
				begin(base)
			}
			face := make(scene.Face, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				c, err := parseCorner(ref, len(vs), len(vts), len(vns))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				face = append(face, cur.vertex(c, vs, vts, vns))
			}
			cur.mesh.Faces = append(cur.mesh.Faces, face)
		}
		// Materials, smoothing groups and free-form geometry are ignored.
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	s := scene.New(base)
	for _, g := range groups {
		if len(g.mesh.Faces) == 0 {
			continue
		}
		g.finish()
		mesh := s.AddMesh(g.mesh)
		s.AddNode(s.Root, scene.Node{
			Name:      g.name,
			Transform: scene.IdentityMatrix(),
			Meshes:    []int{mesh},
		})
	}
	return s, nil
}

// vertex returns the mesh-local index for corner c, adding a vertex the first
// time a v/vt/vn combination is seen.
func (g *objGroup) vertex(c objCorner, vs []math.Vec3, vts []math.Vec2, vns []math.Vec3) uint32 {
	if idx, ok := g.lookup[c]; ok {
		return idx
	}
	idx := uint32(len(g.mesh.Positions))
	g.lookup[c] = idx
	g.mesh.Positions = append(g.mesh.Positions, vs[c.v])

	var uv math.Vec2
	if c.vt >= 0 {
		uv = vts[c.vt]
		g.anyUV = true
	} else {
		g.missUV = true
	}
	g.mesh.UVs = append(g.mesh.UVs, uv)

	var n math.Vec3
	if c.vn >= 0 {
		n = vns[c.vn]
		g.anyNrm = true
	} else {
		g.missNrm = true
	}
	g.mesh.Normals = append(g.mesh.Normals, n)
	return idx
}

// finish drops streams the file never supplied. Partially supplied normals
// are dropped too so they get regenerated; partial UVs keep zero fill.
func (g *objGroup) finish() {
	g.mesh.Name = g.name
	if !g.anyUV {
		g.mesh.UVs = nil
	}
	if !g.anyNrm || g.missNrm {
		g.mesh.Normals = nil
	}
}

func parseFloats(fields []string, want int) ([]float32, error) {
	if len(fields) < want {
		return nil, fmt.Errorf("%w: want %d values, got %d", errMalformed, want, len(fields))
	}
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn". OBJ indices are
// one-based; negative values count back from the latest element.
func parseCorner(ref string, nv, nvt, nvn int) (objCorner, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return objCorner{}, fmt.Errorf("%w: face corner %q", errMalformed, ref)
	}

	c := objCorner{v: -1, vt: -1, vn: -1}
	var err error
	if c.v, err = resolveIndex(parts[0], nv); err != nil {
		return objCorner{}, err
	}
	if c.v < 0 {
		return objCorner{}, fmt.Errorf("%w: face corner %q has no position", errMalformed, ref)
	}
	if len(parts) > 1 {
		if c.vt, err = resolveIndex(parts[1], nvt); err != nil {
			return objCorner{}, err
		}
	}
	if len(parts) > 2 {
		if c.vn, err = resolveIndex(parts[2], nvn); err != nil {
			return objCorner{}, err
		}
	}
	return c, nil
}

func resolveIndex(s string, n int) (int, error) {
	if s == "" {
		return -1, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q", errMalformed, s)
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, fmt.Errorf("%w: index %d with %d elements", errMalformed, i, n)
	}
}
