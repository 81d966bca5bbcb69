package port

import "context"

// TextGenerator is the generation-engine capability consumed by the command pipeline:
// a single-shot transform from prompt text to result text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
