package parser

import (
	"context"
	"fmt"
	"strings"

	"invoicer/internal/domain"
	"invoicer/internal/port"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Commands    []domain.Command
	Prompt      string
	RawResponse string
	Sanitized   string
}

// Pipeline turns a natural-language request into a batch of commands using a
// text generator. It holds no per-call state and performs no retries.
type Pipeline struct {
	generator port.TextGenerator
}

// NewPipeline creates a Pipeline backed by the given generator.
func NewPipeline(generator port.TextGenerator) *Pipeline {
	return &Pipeline{generator: generator}
}

// Run builds the prompt, calls the generator exactly once, then sanitizes and parses
// its output. A blank userPrompt fails with domain.ErrInvalidArgument before the
// generator is called. Generator failures are returned wrapped in domain.ErrGeneration;
// defects in the generated text never produce an error.
func (p *Pipeline) Run(ctx context.Context, userPrompt, invoiceContext string) (*Result, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return nil, fmt.Errorf("%w: user prompt must not be empty", domain.ErrInvalidArgument)
	}

	prompt := BuildCommandPrompt(userPrompt, invoiceContext)

	raw, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	sanitized := Sanitize(raw)
	return &Result{
		Commands:    ParseCommands(sanitized),
		Prompt:      prompt,
		RawResponse: raw,
		Sanitized:   sanitized,
	}, nil
}
