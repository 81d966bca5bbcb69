package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoicer/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// commandRule adapts a check function to the Validator interface.
type commandRule struct {
	ruleKey  string
	ruleName string
	severity Severity
	check    func(cmd domain.Command, vctx *Context) []Problem
}

func (r *commandRule) RuleKey() string    { return r.ruleKey }
func (r *commandRule) RuleName() string   { return r.ruleName }
func (r *commandRule) Severity() Severity { return r.severity }

func (r *commandRule) Validate(_ context.Context, cmd domain.Command, vctx *Context) []Problem {
	return r.check(cmd, vctx)
}

// BuiltinValidators returns all built-in command rules.
func BuiltinValidators() []Validator {
	return []Validator{
		&commandRule{
			ruleKey:  "cmd.quantity.positive",
			ruleName: "Positive Quantity",
			severity: SeverityError,
			check:    checkQuantity,
		},
		&commandRule{
			ruleKey:  "cmd.price.non_negative",
			ruleName: "Non-negative Price",
			severity: SeverityError,
			check:    checkPrices,
		},
		&commandRule{
			ruleKey:  "cmd.line_number.range",
			ruleName: "Line Number In Range",
			severity: SeverityError,
			check:    checkLineNumber,
		},
		&commandRule{
			ruleKey:  "cmd.discount.shape",
			ruleName: "Discount Shape",
			severity: SeverityError,
			check:    checkDiscount,
		},
		&commandRule{
			ruleKey:  "cmd.tax_rate.range",
			ruleName: "Tax Rate Range",
			severity: SeverityError,
			check:    checkTaxRate,
		},
		&commandRule{
			ruleKey:  "cmd.required_text",
			ruleName: "Required Text",
			severity: SeverityError,
			check:    checkRequiredText,
		},
		&commandRule{
			ruleKey:  "cmd.due_date.order",
			ruleName: "Due Date After Issue Date",
			severity: SeverityWarning,
			check:    checkDueDate,
		},
		&commandRule{
			ruleKey:  "cmd.summary.query",
			ruleName: "Known Summary Query",
			severity: SeverityWarning,
			check:    checkSummaryQuery,
		},
		&commandRule{
			ruleKey:  "cmd.unknown",
			ruleName: "Unrecognized Request",
			severity: SeverityWarning,
			check:    checkUnknown,
		},
	}
}

func checkQuantity(cmd domain.Command, _ *Context) []Problem {
	c, ok := cmd.(*domain.AddLine)
	if !ok || c.Quantity > 0 {
		return nil
	}
	return []Problem{{Field: "quantity", Message: fmt.Sprintf("quantity must be positive, got %d", c.Quantity)}}
}

func checkPrices(cmd domain.Command, _ *Context) []Problem {
	switch c := cmd.(type) {
	case *domain.AddLine:
		if c.UnitPrice.IsNegative() {
			return []Problem{{Field: "unitPrice", Message: "unit price must not be negative, got " + c.UnitPrice.String()}}
		}
	case *domain.ChangePrice:
		if c.NewPrice.IsNegative() {
			return []Problem{{Field: "newPrice", Message: "new price must not be negative, got " + c.NewPrice.String()}}
		}
	}
	return nil
}

func checkLineNumber(cmd domain.Command, vctx *Context) []Problem {
	var n int
	switch c := cmd.(type) {
	case *domain.RemoveLine:
		n = c.LineNumber
	case *domain.DuplicateLine:
		n = c.LineNumber
	case *domain.ChangePrice:
		n = c.LineNumber
	default:
		return nil
	}

	if n < 1 {
		return []Problem{{Field: "lineNumber", Message: fmt.Sprintf("line number must be at least 1, got %d", n)}}
	}
	if count, known := vctx.LineCount(); known && n > count {
		return []Problem{{Field: "lineNumber", Message: fmt.Sprintf("line %d does not exist; the invoice has %d line(s)", n, count)}}
	}
	return nil
}

func checkDiscount(cmd domain.Command, _ *Context) []Problem {
	c, ok := cmd.(*domain.ApplyDiscount)
	if !ok {
		return nil
	}

	switch {
	case c.Percentage == nil && c.FixedAmount == nil:
		return []Problem{{Field: "percentage", Message: "discount needs a percentage or a fixed amount"}}
	case c.Percentage != nil && c.FixedAmount != nil:
		return []Problem{{Field: "fixedAmount", Message: "discount must not have both a percentage and a fixed amount"}}
	case c.Percentage != nil:
		if c.Percentage.IsNegative() || c.Percentage.GreaterThan(hundred) {
			return []Problem{{Field: "percentage", Message: "percentage must be between 0 and 100, got " + c.Percentage.String()}}
		}
	default:
		if c.FixedAmount.IsNegative() {
			return []Problem{{Field: "fixedAmount", Message: "fixed amount must not be negative, got " + c.FixedAmount.String()}}
		}
	}
	return nil
}

func checkTaxRate(cmd domain.Command, _ *Context) []Problem {
	c, ok := cmd.(*domain.ApplyTax)
	if !ok {
		return nil
	}
	if c.Rate.IsNegative() || c.Rate.GreaterThan(hundred) {
		return []Problem{{Field: "rate", Message: "tax rate must be between 0 and 100, got " + c.Rate.String()}}
	}
	return nil
}

func checkRequiredText(cmd domain.Command, _ *Context) []Problem {
	var field, val string
	switch c := cmd.(type) {
	case *domain.AddLine:
		field, val = "description", c.Description
	case *domain.SetCustomer:
		field, val = "customerName", c.CustomerName
	case *domain.ApplyTax:
		field, val = "taxName", c.TaxName
	case *domain.SummarizeInvoice:
		field, val = "query", c.Query
	default:
		return nil
	}
	if strings.TrimSpace(val) != "" {
		return nil
	}
	return []Problem{{Field: field, Message: field + " is missing or empty"}}
}

func checkDueDate(cmd domain.Command, vctx *Context) []Problem {
	c, ok := cmd.(*domain.UpdateHeader)
	if !ok || c.DueDate == nil || vctx == nil || vctx.Invoice == nil {
		return nil
	}
	issue := vctx.Invoice.IssueDate
	if c.DueDate.Before(issue.Time) {
		return []Problem{{
			Field:   "dueDate",
			Message: fmt.Sprintf("due date %s is before the issue date %s", c.DueDate, issue),
		}}
	}
	return nil
}

var knownSummaryQueries = map[string]bool{
	"totalAmount": true,
	"lineCount":   true,
}

func checkSummaryQuery(cmd domain.Command, _ *Context) []Problem {
	c, ok := cmd.(*domain.SummarizeInvoice)
	if !ok || strings.TrimSpace(c.Query) == "" || knownSummaryQueries[c.Query] {
		return nil
	}
	return []Problem{{Field: "query", Message: fmt.Sprintf("unsupported summary query %q", c.Query)}}
}

func checkUnknown(cmd domain.Command, _ *Context) []Problem {
	c, ok := cmd.(*domain.Unknown)
	if !ok {
		return nil
	}
	return []Problem{{Field: "reason", Message: "request not understood: " + c.Reason()}}
}
