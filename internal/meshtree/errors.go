package meshtree

import (
	"errors"
	"fmt"
)

// Kind classifies a load failure.
type Kind int

const (
	KindInput  Kind = iota + 1 // bad or missing path, detected before import
	KindImport                 // importer could not produce geometry
	KindMesh                   // structural invariant broken inside one mesh
	KindDecode                 // texture could not be decoded
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "InputError"
	case KindImport:
		return "ImportError"
	case KindMesh:
		return "MeshError"
	case KindDecode:
		return "DecodeError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Load failure reasons.
var (
	ErrEmptyPath         = errors.New("path is empty")
	ErrNotExist          = errors.New("file does not exist")
	ErrImportFailed      = errors.New("import failed")
	ErrNoGeometry        = errors.New("scene contains no meshes")
	ErrUnsupportedModel  = errors.New("unsupported model format")
	ErrNonTriangularFace = errors.New("face is not a triangle")
	ErrIndexOutOfRange   = errors.New("vertex index out of range")
)

// Error is a classified load failure. Error() is the human-readable
// diagnostic handed to the caller's log.
type Error struct {
	Kind Kind
	Op   string // "load", "import", "normalize", "decode"
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
