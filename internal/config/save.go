package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by SaveTo when the target exists and
// overwrite is not set.
var ErrConfigExists = errors.New("config file already exists")

const fileHeader = "# meshloader configuration\n# Values here override built-in defaults; command-line flags override both.\n\n"

// DefaultPath is the per-user config file Save writes and Load falls back to.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Marshal encodes c as commented YAML with two-space indentation.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes c to DefaultPath.
func (c *Config) Save(overwrite bool) error {
	return c.SaveTo(DefaultPath(), overwrite)
}

// SaveTo writes c to path, creating parent directories. The file is written
// next to the target and renamed into place, so readers never see half a file.
func (c *Config) SaveTo(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".meshloader-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
