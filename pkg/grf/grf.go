// Package grf reads Ragnarok Online GRF archives (version 0x200). An Archive
// is safe for concurrent reads and can serve as a content source for models
// and textures stored inside the archive.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Faultbox/meshloader/pkg/encoding"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200
	entrySize  = 17
)

// Entry flags.
const (
	FlagFile      = 0x01
	FlagEncrypted = 0x02
)

// Archive errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrCorruptTable       = errors.New("corrupt GRF file table")
	ErrNotFound           = errors.New("file not found in archive")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
)

// Archive is an opened GRF archive.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	header  Header
	entries map[string]*Entry
}

// Header is the fixed 46-byte GRF header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry describes one file in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive on disk.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	a, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewReader reads the archive index from r. The caller keeps ownership of r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, entries: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close releases the underlying file when the archive was opened with Open.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.r.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	compressed := make([]byte, compressedSize)
	if _, err := a.r.ReadAt(compressed, tableOffset+8); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	defer zr.Close()

	table := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(zr, table); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}

	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("%w: file count %d below seed", ErrCorruptTable, a.header.FileCount)
	}
	fileCount := a.header.FileCount - a.header.Seed - 7

	offset := 0
	for i := uint32(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 {
			return fmt.Errorf("%w: entry %d has no name terminator", ErrCorruptTable, i)
		}
		name := encoding.EUCKRToUTF8(table[offset : offset+nameEnd])
		offset += nameEnd + 1
		if offset+entrySize > len(table) {
			return fmt.Errorf("%w: entry %d truncated", ErrCorruptTable, i)
		}

		e := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(table[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[offset+8:]),
			Flags:            table[offset+12],
			Offset:           binary.LittleEndian.Uint32(table[offset+13:]),
		}
		offset += entrySize

		if e.Flags&FlagFile != 0 {
			a.entries[e.Name] = e
		}
	}
	return nil
}

// List returns every file path in the archive, sorted.
func (a *Archive) List() []string {
	paths := make([]string, 0, len(a.entries))
	for p := range a.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (*Entry, bool) {
	e, ok := a.entries[normalizePath(path)]
	return e, ok
}

// Exists reports whether the archive holds path. Lookups ignore case and
// accept either slash direction.
func (a *Archive) Exists(path string) bool {
	_, ok := a.entries[normalizePath(path)]
	return ok
}

// ReadFile returns the uncompressed contents of path.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, ok := a.entries[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if e.Flags&FlagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, path)
	}

	size := e.AlignedSize
	if size < e.CompressedSize {
		size = e.CompressedSize
	}
	raw := make([]byte, size)
	n, err := a.r.ReadAt(raw, int64(e.Offset)+headerSize)
	if err != nil && !(errors.Is(err, io.EOF) && n >= int(e.CompressedSize)) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if e.CompressedSize == e.UncompressedSize {
		return raw[:e.UncompressedSize], nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw[:e.CompressedSize]))
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	defer zr.Close()

	out := make([]byte, e.UncompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return out, nil
}

func normalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}
