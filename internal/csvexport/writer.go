package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/domain"
	"invoicer/internal/validator"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row. Payload columns not used by an action stay empty.
var columns = []string{
	"#",
	"Action",
	"Status",
	"Feedback",
	"Description",
	"Quantity",
	"Unit Price",
	"Line Number",
	"New Price",
	"Due Date",
	"PO Number",
	"Invoice Status",
	"Customer",
	"Discount %",
	"Discount Amount",
	"Tax Name",
	"Tax Rate",
	"Query",
	"Reason",
	"Findings",
}

const (
	colIndex = iota
	colAction
	colStatus
	colFeedback
	colDescription
	colQuantity
	colUnitPrice
	colLineNumber
	colNewPrice
	colDueDate
	colPONumber
	colInvoiceStatus
	colCustomer
	colDiscountPct
	colDiscountAmount
	colTaxName
	colTaxRate
	colQuery
	colReason
	colFindings
)

// Writer wraps csv.Writer for exporting command batches as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteCommands writes one row per command, in batch order. Findings are joined
// into the row of the command they refer to.
func (w *Writer) WriteCommands(cmds []domain.Command, findings []validator.Finding) error {
	statuses := validator.CommandStatuses(findings, len(cmds))
	messages := make([][]string, len(cmds))
	for _, f := range findings {
		if f.Index >= 0 && f.Index < len(cmds) {
			messages[f.Index] = append(messages[f.Index], fmt.Sprintf("%s: %s", f.Severity, f.Message))
		}
	}

	for i, cmd := range cmds {
		row := commandToRow(i+1, cmd)
		row[colStatus] = string(statuses[i])
		row[colFindings] = strings.Join(messages[i], "; ")
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func commandToRow(n int, cmd domain.Command) []string {
	row := make([]string, len(columns))
	row[colIndex] = strconv.Itoa(n)
	row[colAction] = string(cmd.Action())
	row[colFeedback] = cmd.Feedback()

	switch c := cmd.(type) {
	case *domain.AddLine:
		row[colDescription] = c.Description
		row[colQuantity] = strconv.Itoa(c.Quantity)
		row[colUnitPrice] = formatMoney(c.UnitPrice)
	case *domain.RemoveLine:
		row[colLineNumber] = strconv.Itoa(c.LineNumber)
	case *domain.DuplicateLine:
		row[colLineNumber] = strconv.Itoa(c.LineNumber)
	case *domain.ChangePrice:
		row[colLineNumber] = strconv.Itoa(c.LineNumber)
		row[colNewPrice] = formatMoney(c.NewPrice)
	case *domain.UpdateHeader:
		if c.DueDate != nil {
			row[colDueDate] = c.DueDate.String()
		}
		row[colPONumber] = deref(c.PONumber)
		row[colInvoiceStatus] = deref(c.Status)
	case *domain.SetCustomer:
		row[colCustomer] = c.CustomerName
	case *domain.ApplyDiscount:
		if c.Percentage != nil {
			row[colDiscountPct] = c.Percentage.String()
		}
		if c.FixedAmount != nil {
			row[colDiscountAmount] = formatMoney(*c.FixedAmount)
		}
	case *domain.ApplyTax:
		row[colTaxName] = c.TaxName
		row[colTaxRate] = c.Rate.String()
	case *domain.SummarizeInvoice:
		row[colQuery] = c.Query
	case *domain.Unknown:
		row[colReason] = c.Reason()
	}
	return row
}

func formatMoney(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_name}_{YYYY-MM-DD}.csv
func BuildFilename(name string, now time.Time) string {
	sanitized := SanitizeFilename(name)
	if sanitized == "" {
		sanitized = "commands"
	}
	return fmt.Sprintf("%s_%s.csv", sanitized, now.Format("2006-01-02"))
}
