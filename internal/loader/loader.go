// Package loader runs a complete model load: resolve the path, import the
// scene, flatten it into the mesh tree and, on request, decode the model's
// companion textures.
package loader

import (
	"fmt"
	"io"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/meshloader/internal/content"
	"github.com/Faultbox/meshloader/internal/importer"
	"github.com/Faultbox/meshloader/internal/meshtree"
	"github.com/Faultbox/meshloader/internal/texture"
	"github.com/Faultbox/meshloader/pkg/math"
)

// PathKind says how a model path is resolved.
type PathKind int

const (
	Absolute PathKind = iota // used as given
	Relative                 // joined to the content root, then searched in archives
)

func (k PathKind) String() string {
	if k == Relative {
		return "relative"
	}
	return "absolute"
}

// Loader loads models into meshtree.LoadResult values. A Loader holds no
// per-load state, so concurrent loads of different files are safe.
type Loader struct {
	importer   *importer.Importer
	root       content.Dir
	archives   []content.Source
	decoder    texture.Decoder
	cache      *texture.Cache
	companions bool
	flags      importer.Flags
	scale      math.Vec3
	closers    []io.Closer
	log        *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithContentRoot sets the directory Relative paths are joined to.
func WithContentRoot(dir string) Option {
	return func(l *Loader) { l.root = content.Dir(dir) }
}

// WithArchives adds sources searched after the content root for Relative
// paths, in order.
func WithArchives(srcs ...content.Source) Option {
	return func(l *Loader) { l.archives = append(l.archives, srcs...) }
}

// WithDecoder sets the texture decoder.
func WithDecoder(d texture.Decoder) Option {
	return func(l *Loader) { l.decoder = d }
}

// WithCache routes texture file reads through c.
func WithCache(c *texture.Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithCompanions turns companion texture loading in LoadWithTextures on or off.
func WithCompanions(on bool) Option {
	return func(l *Loader) { l.companions = on }
}

// WithFlags overrides the post-process flags. Loads use
// importer.CanonicalFlags unless set.
func WithFlags(f importer.Flags) Option {
	return func(l *Loader) { l.flags = f }
}

// WithScale sets the component scale reported in bundles.
func WithScale(s math.Vec3) Option {
	return func(l *Loader) { l.scale = s }
}

// New returns a Loader importing through im.
func New(im *importer.Importer, opts ...Option) *Loader {
	l := &Loader{
		importer:   im,
		companions: true,
		flags:      importer.CanonicalFlags,
		scale:      math.Vec3{X: 1, Y: 1, Z: 1},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close releases archives the Loader opened itself.
func (l *Loader) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// source returns where files of the given kind are looked up.
func (l *Loader) source(kind PathKind) content.Source {
	if kind == Absolute {
		return content.Dir("")
	}
	if len(l.archives) == 0 {
		return l.root
	}
	chain := make(content.Chain, 0, len(l.archives)+1)
	chain = append(chain, l.root)
	return append(chain, l.archives...)
}

// displayPath is the path written to logs.
func (l *Loader) displayPath(kind PathKind, name string) string {
	if kind == Absolute {
		if abs, err := filepath.Abs(name); err == nil {
			return abs
		}
		return name
	}
	return l.root.Path(name)
}

// Load imports and flattens the model at p. It never panics and never
// returns a partially built tree: on failure Nodes is empty and Err holds a
// *meshtree.Error. Meshes that break a structural invariant are replaced by
// empty records and reported in MeshErrors without failing the load.
func (l *Loader) Load(p string, kind PathKind) meshtree.LoadResult {
	result, _ := l.load(p, kind)
	return result
}

func (l *Loader) load(p string, kind PathKind) (meshtree.LoadResult, content.Source) {
	inputErr := func(cause error) meshtree.LoadResult {
		err := &meshtree.Error{Kind: meshtree.KindInput, Op: "load", Path: p, Err: cause}
		l.log.Error("load failed", zap.Error(err))
		return meshtree.Failed(err)
	}

	if p == "" {
		return inputErr(meshtree.ErrEmptyPath), nil
	}

	src := l.source(kind)
	l.log.Info("loading model",
		zap.String("path", l.displayPath(kind, p)),
		zap.Stringer("kind", kind))

	if !src.Exists(p) {
		return inputErr(meshtree.ErrNotExist), nil
	}
	data, err := src.ReadFile(p)
	if err != nil {
		return inputErr(fmt.Errorf("%w: %v", meshtree.ErrNotExist, err)), nil
	}

	fsys := content.FS(src, path.Dir(filepath.ToSlash(p)))
	s, err := l.importer.ImportFS(data, p, l.flags, fsys)
	if err != nil {
		l.log.Error("import failed", zap.String("path", p), zap.Error(err))
		return meshtree.Failed(err), nil
	}

	nodes, failures := meshtree.Flatten(s)
	if err := meshtree.Validate(nodes); err != nil {
		err = &meshtree.Error{Kind: meshtree.KindImport, Op: "flatten", Path: p, Err: err}
		l.log.Error("flatten produced an invalid tree", zap.Error(err))
		return meshtree.Failed(err), nil
	}
	for _, f := range failures {
		l.log.Warn("mesh skipped",
			zap.String("path", p),
			zap.Int("node", f.Node),
			zap.Int("mesh", f.Mesh),
			zap.Error(f.Err))
	}

	result := meshtree.LoadResult{
		Success:    true,
		Nodes:      nodes,
		MeshErrors: failures,
	}
	l.log.Info("model loaded",
		zap.String("path", p),
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("meshes", result.MeshCount()),
		zap.Int("mesh_errors", len(failures)))
	return result, src
}

// LoadTexture decodes the image file at p, through the cache when one is set.
func (l *Loader) LoadTexture(p string) (*texture.DecodedImage, error) {
	if p == "" {
		return nil, &meshtree.Error{Kind: meshtree.KindInput, Op: "load", Err: meshtree.ErrEmptyPath}
	}
	var (
		img *texture.DecodedImage
		err error
	)
	if l.cache != nil {
		img, err = l.cache.ReadFile(p)
	} else {
		img, err = l.decoder.ReadFile(p)
	}
	if err != nil {
		l.log.Debug("texture load failed", zap.String("path", p), zap.Error(err))
		return nil, err
	}
	l.log.Debug("texture loaded",
		zap.String("path", p),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height))
	return img, nil
}
