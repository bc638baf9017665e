package loader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshloader/internal/config"
	"github.com/Faultbox/meshloader/internal/importer"
	"github.com/Faultbox/meshloader/internal/texture"
	"github.com/Faultbox/meshloader/pkg/grf"
)

// FromConfig builds a Loader from cfg, opening the configured archives.
// Extra options are applied after the config. Call Close when done.
func FromConfig(cfg *config.Config, im *importer.Importer, opts ...Option) (*Loader, error) {
	order, err := texture.ParseChannelOrder(cfg.Texture.ChannelOrder)
	if err != nil {
		return nil, err
	}
	decoder := texture.Decoder{Order: order}

	base := []Option{
		WithContentRoot(cfg.Content.Root),
		WithDecoder(decoder),
		WithCompanions(cfg.Texture.LoadCompanions),
	}
	if cfg.Texture.CacheSize > 0 {
		base = append(base, WithCache(texture.NewCache(decoder, cfg.Texture.CacheSize)))
	}
	l := New(im, append(base, opts...)...)

	for _, p := range cfg.Content.Archives {
		a, err := grf.Open(p)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("opening archive %s: %w", p, err)
		}
		l.archives = append(l.archives, a)
		l.closers = append(l.closers, a)
		l.log.Info("archive opened", zap.String("path", p), zap.Int("files", len(a.List())))
	}
	return l, nil
}
