package config

import (
	"context"
)

// Loader is the interface for a format-specific network description loader.
type Loader interface {
	// Load reads the description from the given files or directories and
	// translates it into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)

	// Extensions lists the file extensions the loader understands, with the
	// leading dot.
	Extensions() []string
}
