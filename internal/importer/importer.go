// Package importer parses model files into a scene.Scene and runs the
// post-processing steps the mesh tree flattener expects.
//
// An Importer is built once at startup with New and passed to whoever needs
// it; there is no package-level registry.
package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshloader/internal/meshtree"
	"github.com/Faultbox/meshloader/internal/scene"
)

// Backend decodes one family of model formats.
type Backend interface {
	// Extensions lists the lower-case file extensions handled, with the dot.
	Extensions() []string
	// Decode parses data. fsys resolves side files (external buffers) relative
	// to the model and may be nil.
	Decode(data []byte, name string, fsys fs.FS) (*scene.Scene, error)
}

// Importer dispatches model files to format backends by extension.
type Importer struct {
	backends map[string]Backend
	log      *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.log = l
		}
	}
}

// WithBackend registers b for its extensions, replacing any earlier backend
// for the same extension.
func WithBackend(b Backend) Option {
	return func(im *Importer) {
		im.register(b)
	}
}

// New returns an Importer with the glTF, OBJ, RSM and GND backends registered.
func New(opts ...Option) *Importer {
	im := &Importer{
		backends: make(map[string]Backend),
		log:      zap.NewNop(),
	}
	im.register(gltfBackend{})
	im.register(objBackend{})
	im.register(rsmBackend{})
	im.register(gndBackend{})
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func (im *Importer) register(b Backend) {
	for _, ext := range b.Extensions() {
		im.backends[strings.ToLower(ext)] = b
	}
}

// Supports reports whether a backend is registered for the file's extension.
func (im *Importer) Supports(name string) bool {
	_, ok := im.backends[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions returns the registered extensions.
func (im *Importer) Extensions() []string {
	exts := make([]string, 0, len(im.backends))
	for ext := range im.backends {
		exts = append(exts, ext)
	}
	return exts
}

// ImportFile reads and imports a model from disk. Side files resolve
// relative to the model's directory.
func (im *Importer) ImportFile(path string, flags Flags) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &meshtree.Error{Kind: meshtree.KindImport, Op: "import", Path: path, Err: fmt.Errorf("%w: %v", meshtree.ErrImportFailed, err)}
	}
	return im.ImportFS(data, path, flags, os.DirFS(filepath.Dir(path)))
}

// Import parses data as the format implied by name's extension.
func (im *Importer) Import(data []byte, name string, flags Flags) (*scene.Scene, error) {
	return im.ImportFS(data, name, flags, nil)
}

// ImportFS is Import with a file system for side files.
//
// The returned scene is a validated tree with at least one mesh and the
// requested post-processing applied. Every failure is a *meshtree.Error of
// kind KindImport carrying the backend's diagnostic.
func (im *Importer) ImportFS(data []byte, name string, flags Flags, fsys fs.FS) (s *scene.Scene, err error) {
	fail := func(cause error) error {
		return &meshtree.Error{Kind: meshtree.KindImport, Op: "import", Path: name, Err: cause}
	}

	ext := strings.ToLower(filepath.Ext(name))
	backend, ok := im.backends[ext]
	if !ok {
		return nil, fail(fmt.Errorf("%w: %q", meshtree.ErrUnsupportedModel, ext))
	}

	defer func() {
		if r := recover(); r != nil {
			im.log.Error("backend panic",
				zap.String("file", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			s = nil
			err = fail(fmt.Errorf("%w: %v", meshtree.ErrImportFailed, r))
		}
	}()

	s, err = backend.Decode(data, name, fsys)
	if err != nil {
		return nil, fail(fmt.Errorf("%w: %v", meshtree.ErrImportFailed, err))
	}
	if err := s.Validate(); err != nil {
		return nil, fail(fmt.Errorf("%w: %v", meshtree.ErrImportFailed, err))
	}
	if !s.HasMeshes() {
		return nil, fail(meshtree.ErrNoGeometry)
	}

	PostProcess(s, flags)

	im.log.Debug("imported",
		zap.String("file", name),
		zap.Int("nodes", len(s.Nodes)),
		zap.Int("meshes", len(s.Meshes)),
		zap.Stringer("flags", flags))
	return s, nil
}

// errMalformed marks syntax errors inside a model file.
var errMalformed = errors.New("malformed model data")
