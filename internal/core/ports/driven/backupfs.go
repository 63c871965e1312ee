package driven

import "io"

// BackupFS writes into the backup root.
type BackupFS interface {
	// EnsureDir creates dir and its parents; an existing directory is fine.
	EnsureDir(dir string) error

	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// WriteJSON writes v as stable, indented UTF-8 JSON, replacing path atomically.
	WriteJSON(path string, v any) error

	// Create opens path for writing, truncating it.
	Create(path string) (io.WriteCloser, error)

	// Size returns the size of the file at path.
	Size(path string) (int64, error)
}
