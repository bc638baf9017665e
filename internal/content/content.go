// Package content locates model and texture bytes. A Source answers the two
// questions a load needs: does this file exist, and what are its bytes.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"
)

// ErrNotFound is returned when no source holds the requested file.
var ErrNotFound = errors.New("content not found")

// Source is a read-only file store.
type Source interface {
	Exists(name string) bool
	ReadFile(name string) ([]byte, error)
}

// Dir is a directory on the OS file system. Relative names are joined to it;
// absolute names are used as they are. The zero value uses names unchanged.
type Dir string

func (d Dir) resolve(name string) string {
	if d == "" || filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(string(d), name)
}

// Exists reports whether name is an existing regular file.
func (d Dir) Exists(name string) bool {
	if name == "" {
		return false
	}
	info, err := os.Stat(d.resolve(name))
	return err == nil && info.Mode().IsRegular()
}

// ReadFile reads name from disk.
func (d Dir) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.resolve(name))
}

// Path returns the OS path name resolves to.
func (d Dir) Path(name string) string {
	return d.resolve(name)
}

// Chain searches several sources in order.
type Chain []Source

// Exists reports whether any source holds name.
func (c Chain) Exists(name string) bool {
	return c.find(name) != nil
}

// ReadFile reads name from the first source that holds it.
func (c Chain) ReadFile(name string) ([]byte, error) {
	src := c.find(name)
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return src.ReadFile(name)
}

func (c Chain) find(name string) Source {
	for _, s := range c {
		if s.Exists(name) {
			return s
		}
	}
	return nil
}

// FS exposes the files of src under dir as an fs.FS, so format decoders can
// resolve side files next to a model wherever the model came from.
func FS(src Source, dir string) fs.FS {
	return sourceFS{src: src, dir: filepath.ToSlash(dir)}
}

type sourceFS struct {
	src Source
	dir string
}

func (s sourceFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	full := path.Join(s.dir, name)
	if !s.src.Exists(full) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	data, err := s.src.ReadFile(full)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(name), size: int64(len(data))}, nil
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return memInfo{f.name, f.size}, nil }
func (f *memFile) Close() error               { return nil }

type memInfo struct {
	name string
	size int64
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o444 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }

// DirectoryExists reports whether path is an existing directory.
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CreateDirectory creates path and any missing parents. It succeeds when the
// directory already exists.
func CreateDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("create directory: empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// ListFolders returns every directory below root, recursively, as paths
// joined to root and sorted. root itself is not included.
func ListFolders(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != root {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}
