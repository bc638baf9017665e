package loader

import (
	"go.uber.org/zap"

	"github.com/Faultbox/meshloader/internal/content"
	"github.com/Faultbox/meshloader/internal/meshtree"
	"github.com/Faultbox/meshloader/internal/texture"
	"github.com/Faultbox/meshloader/pkg/math"
)

// Bundle is a loaded model together with its companion textures.
type Bundle struct {
	Result  meshtree.LoadResult
	Diffuse *texture.DecodedImage // nil when absent or undecodable
	Normal  *texture.DecodedImage
	Scale   math.Vec3

	// TextureErrors holds decode failures of companion files that exist.
	// They never fail the bundle.
	TextureErrors []error
}

// Sections lists the renderable meshes of the bundle.
func (b *Bundle) Sections() []meshtree.Section {
	return meshtree.Sections(&b.Result)
}

// LoadWithTextures loads the model at p and, when companion loading is on,
// its "<name>_T.png" diffuse and "<name>_N.png" normal textures from the same
// place the model was found.
func (l *Loader) LoadWithTextures(p string, kind PathKind) Bundle {
	result, src := l.load(p, kind)
	b := Bundle{
		Result: result,
		Scale:  meshtree.ScaleOrDefault(l.scale),
	}
	if !result.Success || !l.companions {
		return b
	}

	diffuse, normal := texture.CompanionPaths(p)
	var err error
	if b.Diffuse, err = l.companion(src, kind, diffuse); err != nil {
		b.TextureErrors = append(b.TextureErrors, err)
	}
	if b.Normal, err = l.companion(src, kind, normal); err != nil {
		b.TextureErrors = append(b.TextureErrors, err)
	}
	return b
}

// companion decodes name from src. A missing file yields no image and no error.
func (l *Loader) companion(src content.Source, kind PathKind, name string) (*texture.DecodedImage, error) {
	found := src.Exists(name)
	l.log.Debug("companion texture probe", zap.String("path", name), zap.Bool("found", found))
	if !found {
		return nil, nil
	}

	var (
		img *texture.DecodedImage
		err error
	)
	if kind == Absolute || l.root.Exists(name) {
		img, err = l.LoadTexture(l.diskPath(kind, name))
	} else {
		img, err = l.decodeFrom(src, name)
	}
	if err != nil {
		l.log.Warn("companion texture not decoded", zap.String("path", name), zap.Error(err))
		return nil, err
	}
	return img, nil
}

func (l *Loader) diskPath(kind PathKind, name string) string {
	if kind == Absolute {
		return name
	}
	return l.root.Path(name)
}

// decodeFrom decodes a texture held by a non-disk source such as an archive.
func (l *Loader) decodeFrom(src content.Source, name string) (*texture.DecodedImage, error) {
	format, err := texture.FormatFromPath(name)
	if err != nil {
		return nil, &meshtree.Error{Kind: meshtree.KindDecode, Op: "decode", Path: name, Err: err}
	}
	data, err := src.ReadFile(name)
	if err != nil {
		return nil, &meshtree.Error{Kind: meshtree.KindInput, Op: "read", Path: name, Err: err}
	}
	img, err := l.decoder.Decode(data, format)
	if err != nil {
		if e, ok := err.(*meshtree.Error); ok {
			e.Path = name
		}
		return nil, err
	}
	return img, nil
}
