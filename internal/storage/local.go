package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is a disk spool for artifacts the client pulls down: live-channel
// frames and durable videos fetched for offline viewing. Files are written
// under a single configurable directory.
type Local struct {
	dir string
}

// NewLocal creates a Local spool rooted at dir.
// If dir is empty, a videoseek directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "videoseek")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("storage: create spool directory: %w", err)
	}

	return &Local{dir: dir}, nil
}

// Dir returns the spool directory path.
func (l *Local) Dir() string {
	return l.dir
}

// Save writes data to a file named name inside the spool and returns its path.
func (l *Local) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("storage: context cancelled: %w", ctx.Err())
	default:
	}

	dest := filepath.Join(l.dir, filepath.Base(name))
	f, err := os.Create(dest) // #nosec G304 - name is sanitized to its base
	if err != nil {
		return "", fmt.Errorf("storage: create spool file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("storage: write spool file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("storage: close spool file: %w", err)
	}

	return dest, nil
}

// Open reads a previously saved file.
// The caller is responsible for closing the returned ReadCloser.
func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("storage: context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("storage: open spool file: %w", err)
	}

	return f, nil
}

// Cleanup removes the specified spool files. It continues even if some files
// fail to delete, returning the first error encountered.
func (l *Local) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("storage: context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("storage: remove spool file %s: %w", p, err)
			}
		}
	}
	return firstErr
}
