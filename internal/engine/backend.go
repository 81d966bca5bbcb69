package engine

import "context"

// Backend is a text-generation provider. Load prepares the backend for use and
// Close releases whatever Load acquired. Generate is called only between the two.
type Backend interface {
	Name() string
	Load(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
