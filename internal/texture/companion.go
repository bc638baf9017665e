package texture

import (
	"path/filepath"
	"strings"
)

// Companion texture suffixes, appended to the model's base name.
const (
	DiffuseSuffix = "_T.png"
	NormalSuffix  = "_N.png"
)

// CompanionPaths returns where the diffuse and normal textures of a model are
// expected: same directory, same base name, "_T.png" and "_N.png".
func CompanionPaths(modelPath string) (diffuse, normal string) {
	dir, file := filepath.Split(modelPath)
	base := strings.TrimSuffix(file, filepath.Ext(file))
	return filepath.Join(dir, base+DiffuseSuffix), filepath.Join(dir, base+NormalSuffix)
}
