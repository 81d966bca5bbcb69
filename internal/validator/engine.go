package validator

import (
	"context"

	"invoicer/internal/domain"
)

// Engine runs every registered rule over a command batch.
type Engine struct {
	registry *Registry
}

// NewEngine creates a new validation engine.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Validate returns findings ordered by command index, then rule registration order.
// The commands are not modified.
func (e *Engine) Validate(ctx context.Context, cmds []domain.Command, vctx *Context) []Finding {
	findings := []Finding{}
	rules := e.registry.All()
	for i, cmd := range cmds {
		for _, rule := range rules {
			for _, p := range rule.Validate(ctx, cmd, vctx) {
				findings = append(findings, Finding{
					Index:    i,
					Action:   cmd.Action(),
					RuleKey:  rule.RuleKey(),
					Field:    p.Field,
					Severity: rule.Severity(),
					Message:  p.Message,
				})
			}
		}
	}
	return findings
}
