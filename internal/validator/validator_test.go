package validator_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/domain"
	"invoicer/internal/validator"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func snapshotWithLines(n int) *domain.InvoiceSnapshot {
	snap := &domain.InvoiceSnapshot{IssueDate: domain.NewDate(2024, 3, 10)}
	for i := 1; i <= n; i++ {
		snap.Lines = append(snap.Lines, domain.SnapshotLine{LineNumber: i})
	}
	return snap
}

func run(cmds []domain.Command, vctx *validator.Context) []validator.Finding {
	eng := validator.NewEngine(validator.NewDefaultRegistry())
	return eng.Validate(context.Background(), cmds, vctx)
}

func TestEngine_ValidBatchHasNoFindings(t *testing.T) {
	cmds := []domain.Command{
		&domain.AddLine{Description: "Freight", Quantity: 1, UnitPrice: dec("50")},
		&domain.ChangePrice{LineNumber: 2, NewPrice: dec("10.5")},
		&domain.ApplyDiscount{Percentage: decPtr("10")},
		&domain.ApplyTax{TaxName: "VAT", Rate: dec("23")},
		&domain.SummarizeInvoice{Query: "totalAmount"},
	}

	findings := run(cmds, &validator.Context{Invoice: snapshotWithLines(3)})

	assert.Empty(t, findings)
	assert.NotNil(t, findings)
}

func TestEngine_AddLineProblems(t *testing.T) {
	cmds := []domain.Command{
		&domain.AddLine{Description: "  ", Quantity: 0, UnitPrice: dec("-1")},
	}

	findings := run(cmds, nil)

	require.Len(t, findings, 3)
	keys := []string{findings[0].RuleKey, findings[1].RuleKey, findings[2].RuleKey}
	assert.Equal(t, []string{"cmd.quantity.positive", "cmd.price.non_negative", "cmd.required_text"}, keys)
	for _, f := range findings {
		assert.Equal(t, 0, f.Index)
		assert.Equal(t, domain.ActionAddLine, f.Action)
		assert.Equal(t, validator.SeverityError, f.Severity)
	}
}

func TestEngine_LineNumberRange(t *testing.T) {
	tests := []struct {
		name      string
		cmd       domain.Command
		lines     int
		withCtx   bool
		wantCount int
	}{
		{"zero without context", &domain.RemoveLine{LineNumber: 0}, 0, false, 1},
		{"large without context", &domain.RemoveLine{LineNumber: 99}, 0, false, 0},
		{"within invoice", &domain.DuplicateLine{LineNumber: 2}, 2, true, 0},
		{"beyond invoice", &domain.ChangePrice{LineNumber: 3, NewPrice: dec("1")}, 2, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vctx *validator.Context
			if tt.withCtx {
				vctx = &validator.Context{Invoice: snapshotWithLines(tt.lines)}
			}
			findings := run([]domain.Command{tt.cmd}, vctx)
			assert.Len(t, findings, tt.wantCount)
			for _, f := range findings {
				assert.Equal(t, "lineNumber", f.Field)
			}
		})
	}
}

func TestEngine_DiscountShape(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *domain.ApplyDiscount
		field string
	}{
		{"neither", &domain.ApplyDiscount{}, "percentage"},
		{"both", &domain.ApplyDiscount{Percentage: decPtr("5"), FixedAmount: decPtr("5")}, "fixedAmount"},
		{"percentage over 100", &domain.ApplyDiscount{Percentage: decPtr("120")}, "percentage"},
		{"negative fixed", &domain.ApplyDiscount{FixedAmount: decPtr("-3")}, "fixedAmount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := run([]domain.Command{tt.cmd}, nil)
			require.Len(t, findings, 1)
			assert.Equal(t, "cmd.discount.shape", findings[0].RuleKey)
			assert.Equal(t, tt.field, findings[0].Field)
		})
	}
}

func TestEngine_TaxRateRange(t *testing.T) {
	findings := run([]domain.Command{&domain.ApplyTax{TaxName: "VAT", Rate: dec("101")}}, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, "rate", findings[0].Field)
}

func TestEngine_DueDateBeforeIssueIsWarning(t *testing.T) {
	early := domain.NewDate(2024, 3, 1)
	late := domain.NewDate(2024, 4, 1)
	vctx := &validator.Context{Invoice: snapshotWithLines(1)}

	findings := run([]domain.Command{
		&domain.UpdateHeader{DueDate: &early},
		&domain.UpdateHeader{DueDate: &late},
	}, vctx)

	require.Len(t, findings, 1)
	assert.Equal(t, 0, findings[0].Index)
	assert.Equal(t, validator.SeverityWarning, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "2024-03-01")
}

func TestEngine_DueDateSkippedWithoutInvoice(t *testing.T) {
	early := domain.NewDate(1990, 1, 1)
	assert.Empty(t, run([]domain.Command{&domain.UpdateHeader{DueDate: &early}}, nil))
}

func TestEngine_UnknownAndSummaryQueryWarnings(t *testing.T) {
	findings := run([]domain.Command{
		domain.NewUnknown("ambiguous"),
		&domain.SummarizeInvoice{Query: "averagePrice"},
	}, nil)

	require.Len(t, findings, 2)
	assert.Equal(t, domain.ActionUnknown, findings[0].Action)
	assert.Contains(t, findings[0].Message, "ambiguous")
	assert.Equal(t, 1, findings[1].Index)
	assert.Equal(t, "cmd.summary.query", findings[1].RuleKey)
}

func TestEngine_DoesNotModifyCommands(t *testing.T) {
	add := &domain.AddLine{Description: "", Quantity: -2, UnitPrice: dec("-5")}
	add.SetFeedback("ok")
	cmds := []domain.Command{add}

	_ = run(cmds, nil)

	require.Len(t, cmds, 1)
	assert.Same(t, add, cmds[0])
	assert.Equal(t, -2, add.Quantity)
	assert.True(t, add.UnitPrice.Equal(dec("-5")))
	assert.Equal(t, "ok", add.Feedback())
}

func TestRegistry_OrderAndReplace(t *testing.T) {
	r := validator.NewDefaultRegistry()
	all := r.All()
	require.NotEmpty(t, all)
	assert.Equal(t, "cmd.quantity.positive", all[0].RuleKey())

	first := r.Get("cmd.quantity.positive")
	r.Register(first)
	assert.Len(t, r.All(), len(all))
	assert.Nil(t, r.Get("missing"))
}

func TestCommandStatuses(t *testing.T) {
	findings := []validator.Finding{
		{Index: 0, Severity: validator.SeverityWarning},
		{Index: 1, Severity: validator.SeverityWarning},
		{Index: 1, Severity: validator.SeverityError},
		{Index: 7, Severity: validator.SeverityError},
	}

	statuses := validator.CommandStatuses(findings, 3)

	assert.Equal(t, []validator.Status{
		validator.StatusWarning,
		validator.StatusInvalid,
		validator.StatusValid,
	}, statuses)
}
