//go:build !linux

package input

import (
	"context"
	"log/slog"
)

// EvdevSource is only available on Linux
type EvdevSource struct{}

// NewEvdevSource returns a source whose Run fails with ErrUnsupported
func NewEvdevSource(path string, logger *slog.Logger) *EvdevSource {
	return &EvdevSource{}
}

// Run returns ErrUnsupported
func (s *EvdevSource) Run(ctx context.Context, out chan<- RawKey) error {
	return ErrUnsupported
}
