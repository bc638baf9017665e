package importer

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/meshloader/internal/scene"
	"github.com/Faultbox/meshloader/pkg/formats"
	"github.com/Faultbox/meshloader/pkg/math"
)

// gndBackend turns a Ragnarok Online map ground into one mesh per texture,
// each under its own child node of the root. World X runs east, Z south and
// Y up; stored altitudes grow downward so they are negated.
type gndBackend struct{}

// wallEpsilon is the smallest altitude step that gets a wall quad.
const wallEpsilon = 0.001

func (gndBackend) Extensions() []string { return []string{".gnd"} }

// untexturedName names the mesh of surfaces whose texture id is unknown.
const untexturedName = "untextured"

type gndBuilder struct {
	g      *formats.GND
	meshes map[int]*scene.Mesh
}

func (gndBackend) Decode(data []byte, name string, _ fs.FS) (*scene.Scene, error) {
	g, err := formats.ParseGND(data)
	if err != nil {
		return nil, err
	}

	b := &gndBuilder{g: g, meshes: make(map[int]*scene.Mesh)}
	for y := range int(g.Height) {
		for x := range int(g.Width) {
			b.tile(x, y)
		}
	}

	ids := make([]int, 0, len(b.meshes))
	for id := range b.meshes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	s := scene.New(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	for _, id := range ids {
		mesh := b.meshes[id]
		mesh.Name = untexturedName
		if id >= 0 && id < len(g.Textures) {
			mesh.Name = g.Textures[id]
		}
		s.AddNode(s.Root, scene.Node{
			Name:      mesh.Name,
			Transform: scene.IdentityMatrix(),
			Meshes:    []int{s.AddMesh(*mesh)},
		})
	}
	return s, nil
}

func (b *gndBuilder) mesh(textureID int16) *scene.Mesh {
	id := int(textureID)
	if id < 0 || id >= len(b.g.Textures) {
		id = -1
	}
	m, ok := b.meshes[id]
	if !ok {
		m = &scene.Mesh{}
		b.meshes[id] = m
	}
	return m
}

// quad appends four corners with their texture coordinates and the two
// triangles (a, b, c) and (d, e, f) given as corner numbers.
func quad(m *scene.Mesh, corners [4]math.Vec3, uvs [4]math.Vec2, tris [6]uint32) {
	base := uint32(len(m.Positions))
	m.Positions = append(m.Positions, corners[:]...)
	m.UVs = append(m.UVs, uvs[:]...)
	m.Faces = append(m.Faces,
		scene.Face{base + tris[0], base + tris[1], base + tris[2]},
		scene.Face{base + tris[3], base + tris[4], base + tris[5]},
	)
}

func (b *gndBuilder) tile(x, y int) {
	g := b.g
	t := g.Tile(x, y)
	size := g.Zoom
	x0, z0 := float32(x)*size, float32(y)*size

	// bottom-left, bottom-right, top-left, top-right
	corners := [4]math.Vec3{
		{X: x0, Y: -t.Altitude[0], Z: z0 + size},
		{X: x0 + size, Y: -t.Altitude[1], Z: z0 + size},
		{X: x0, Y: -t.Altitude[2], Z: z0},
		{X: x0 + size, Y: -t.Altitude[3], Z: z0},
	}

	if s := g.Surface(t.TopSurface); s != nil {
		uvs := [4]math.Vec2{
			{X: s.U[2], Y: s.V[2]},
			{X: s.U[3], Y: s.V[3]},
			{X: s.U[0], Y: s.V[0]},
			{X: s.U[1], Y: s.V[1]},
		}
		quad(b.mesh(s.TextureID), corners, uvs, [6]uint32{0, 1, 2, 2, 1, 3})
	}

	if next := g.Tile(x, y+1); next != nil && steps(t.Altitude[0]-next.Altitude[2], t.Altitude[1]-next.Altitude[3]) {
		wall := [4]math.Vec3{
			corners[0],
			corners[1],
			{X: x0, Y: -next.Altitude[2], Z: z0 + size},
			{X: x0 + size, Y: -next.Altitude[3], Z: z0 + size},
		}
		b.wall(t.FrontSurface, t.TopSurface, wall)
	}

	if next := g.Tile(x+1, y); next != nil && steps(t.Altitude[1]-next.Altitude[0], t.Altitude[3]-next.Altitude[2]) {
		wall := [4]math.Vec3{
			corners[3],
			corners[1],
			{X: x0 + size, Y: -next.Altitude[2], Z: z0},
			{X: x0 + size, Y: -next.Altitude[0], Z: z0 + size},
		}
		b.wall(t.RightSurface, t.TopSurface, wall)
	}
}

// wall adds a vertical quad textured by its own surface, or by the tile's top
// texture stretched over the quad when the wall has none.
func (b *gndBuilder) wall(own, top int32, corners [4]math.Vec3) {
	var (
		s   *formats.GNDSurface
		uvs [4]math.Vec2
	)
	if s = b.g.Surface(own); s != nil {
		for i := range uvs {
			uvs[i] = math.Vec2{X: s.U[i], Y: s.V[i]}
		}
	} else if s = b.g.Surface(top); s != nil {
		uvs = [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	} else {
		return
	}
	quad(b.mesh(s.TextureID), corners, uvs, [6]uint32{0, 2, 1, 1, 2, 3})
}

func steps(a, b float32) bool {
	return a > wallEpsilon || a < -wallEpsilon || b > wallEpsilon || b < -wallEpsilon
}
