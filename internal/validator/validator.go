package validator

import (
	"context"

	"invoicer/internal/domain"
)

// Severity of a Finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one advisory remark about a command in a batch. Findings never
// change or drop commands; consumers decide what to do with them.
type Finding struct {
	Index    int           `json:"index"`
	Action   domain.Action `json:"action"`
	RuleKey  string        `json:"rule_key"`
	Field    string        `json:"field"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
}

// Context carries what is known about the target invoice. A nil Invoice means
// the request had no invoice context and invoice-relative rules are skipped.
type Context struct {
	Invoice *domain.InvoiceSnapshot
}

// LineCount returns the number of invoice lines and whether it is known.
func (c *Context) LineCount() (int, bool) {
	if c == nil || c.Invoice == nil {
		return 0, false
	}
	return len(c.Invoice.Lines), true
}

// Validator is the interface for a single built-in command rule. Validate
// returns a problem per offending field, or nothing when the command is fine
// or of a kind the rule does not inspect.
type Validator interface {
	Validate(ctx context.Context, cmd domain.Command, vctx *Context) []Problem
	RuleKey() string
	RuleName() string
	Severity() Severity
}

// Problem is a rule-local result; the Engine turns it into a Finding.
type Problem struct {
	Field   string
	Message string
}
