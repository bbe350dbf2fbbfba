package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Local stores files on the local disk and serves them under a public base
// URL. It backs the disk fallback used when the object store is unreachable.
type Local struct {
	dir     string
	baseURL string
	logger  zerolog.Logger
}

// NewLocal constructs a disk-backed uploader rooted at dir.
func NewLocal(dir, baseURL string, logger zerolog.Logger) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory must be provided")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Local{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "local_storage").Logger(),
	}, nil
}

// Upload writes the file under a unique name and returns its public URL.
func (s *Local) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	fileName := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(name))
	path := filepath.Join(s.dir, fileName)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("file stored on local disk")

	if s.baseURL == "" {
		return path, nil
	}

	return fmt.Sprintf("%s/uploads/%s", s.baseURL, fileName), nil
}
