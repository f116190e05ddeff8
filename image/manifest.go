package image

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dendrascience/rootimg/toolchain"
)

// Manifest identifies the root namespace and the init program of an image.
type Manifest struct {
	Name toolchain.ObjectID
	Init toolchain.ObjectID
}

// MarshalText renders the manifest in the loader's key=value form.
func (m Manifest) MarshalText() ([]byte, error) {
	if m.Name == "" || m.Init == "" {
		return nil, fmt.Errorf("%w: name and init are both required", ErrBadManifest)
	}
	return []byte("name=" + string(m.Name) + "\ninit=" + string(m.Init) + "\n"), nil
}

// UnmarshalText parses the key=value form. Both keys are required; nothing else is
// accepted.
func (m *Manifest) UnmarshalText(data []byte) error {
	var out Manifest
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%w: %q", ErrBadManifest, line)
		}
		id, err := toolchain.ParseObjectID(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadManifest, key, err)
		}
		switch key {
		case "name":
			out.Name = id
		case "init":
			out.Init = id
		default:
			return fmt.Errorf("%w: unknown key %q", ErrBadManifest, key)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if out.Name == "" || out.Init == "" {
		return fmt.Errorf("%w: name and init are both required", ErrBadManifest)
	}
	*m = out
	return nil
}

// WriteManifest writes m to path atomically.
func WriteManifest(path string, m Manifest) error {
	data, err := m.MarshalText()
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// ReadManifest reads the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	err = m.UnmarshalText(data)
	return m, err
}

// writeAtomic writes data to a scratch-named temporary in path's directory and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "__tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
