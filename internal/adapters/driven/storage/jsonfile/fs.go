// Package jsonfile writes the backup tree: JSON documents and downloaded
// assets under the backup root.
//
// Documents are encoded with sorted keys, a four-space indent and no HTML
// escaping, and replace their target atomically through a temporary file in
// the same directory. Rerunning a backup on unchanged data therefore produces
// byte-identical files.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
	indent   = "    "
)

// Ensure FS implements the interface.
var _ driven.BackupFS = (*FS)(nil)

// FS implements driven.BackupFS on top of an afero filesystem.
type FS struct {
	fs afero.Fs
}

// New returns an FS writing to the operating system's filesystem.
func New() *FS {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs returns an FS backed by fsys.
func NewWithFs(fsys afero.Fs) *FS {
	return &FS{fs: fsys}
}

// EnsureDir creates dir and its parents.
func (f *FS) EnsureDir(dir string) error {
	if err := f.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether path exists.
func (f *FS) Exists(path string) (bool, error) {
	ok, err := afero.Exists(f.fs, path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return ok, nil
}

// WriteJSON encodes v and atomically replaces path with it.
func (f *FS) WriteJSON(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := afero.TempFile(f.fs, filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	name := tmp.Name()

	_, werr := tmp.Write(data)
	if err := errors.Join(werr, tmp.Close()); err != nil {
		_ = f.fs.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.fs.Chmod(name, filePerm); err != nil {
		_ = f.fs.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.fs.Rename(name, path); err != nil {
		_ = f.fs.Remove(name)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Create opens path for writing, truncating it.
func (f *FS) Create(path string) (io.WriteCloser, error) {
	file, err := f.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return file, nil
}

// Size returns the size of the file at path.
func (f *FS) Size(path string) (int64, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Marshal encodes v the way backup documents are stored. Map keys are
// sorted, numbers decoded as json.Number are kept verbatim and non-ASCII
// text is written as UTF-8. U+2028 and U+2029 are still escaped and invalid
// UTF-8 is written as \ufffd.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
