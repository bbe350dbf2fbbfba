package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// Uploader stores a named file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// Fallback tries the primary uploader first and falls back to the secondary
// when the primary fails. The upload payload is buffered so it can be
// replayed against the fallback.
type Fallback struct {
	primary   Uploader
	secondary Uploader
	logger    zerolog.Logger
}

// NewFallback builds an uploader chain. Primary may be nil, in which case
// every upload goes straight to the secondary.
func NewFallback(primary, secondary Uploader, logger zerolog.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "storage_fallback").Logger(),
	}
}

// Upload stores the file via the primary uploader, retrying once on the
// secondary when the primary errors.
func (s *Fallback) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	if s.primary != nil {
		url, err := s.primary.Upload(ctx, name, bytes.NewReader(payload))
		if err == nil {
			return url, nil
		}
		s.logger.Warn().Err(err).Str("file", name).Msg("primary upload failed, falling back to local disk")
	}

	return s.secondary.Upload(ctx, name, bytes.NewReader(payload))
}
