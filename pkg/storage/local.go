// Package storage provides artifact backends for rendered report files.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Local stores report artifacts on a filesystem rooted at a base directory.
type Local struct {
	fs     afero.Fs
	dir    string
	logger zerolog.Logger
}

// NewLocal constructs a filesystem-backed artifact store.
func NewLocal(fs afero.Fs, dir string, logger zerolog.Logger) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory must be provided")
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &Local{
		fs:     fs,
		dir:    dir,
		logger: logger.With().Str("component", "artifact_storage").Logger(),
	}, nil
}

// Save writes the artifact under the base directory and returns its reference.
func (l *Local) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name = filepath.Base(name)
	path := filepath.Join(l.dir, name)

	file, err := l.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write artifact file: %w", err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact file: %w", err)
	}

	l.logger.Info().Str("path", path).Msg("artifact stored")

	return path, nil
}

// Exists reports whether the referenced artifact is still present on disk.
func (l *Local) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ok, err := afero.Exists(l.fs, ref)
	if err != nil {
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}

	return ok, nil
}

// Open returns a reader over the referenced artifact.
func (l *Local) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := l.fs.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}

	return file, nil
}
