// Command seedinvoices converts a workbook of sample invoices into a SQL seed file
// for local development.
// Reads the "Invoices" sheet (one row per invoice) and the "Lines" sheet
// (one row per line, keyed by invoice number).
// Usage: go run ./cmd/seedinvoices -tenant <uuid> [-in invoices.xlsx] [-out db/seeds/invoices.sql]
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"invoicer/internal/domain"
)

const batchSize = 200

type seedCustomer struct {
	id   uuid.UUID
	name string
}

type seedLine struct {
	description string
	quantity    int
	unitPrice   decimal.Decimal
}

type seedInvoice struct {
	id         uuid.UUID
	number     string
	issueDate  domain.Date
	dueDate    domain.Date
	poNumber   string
	status     domain.InvoiceStatus
	taxRate    decimal.Decimal
	customerID *uuid.UUID
	lines      []seedLine
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("seedinvoices", flag.ContinueOnError)
	inPath := fs.String("in", "invoices.xlsx", "source workbook")
	outPath := fs.String("out", "db/seeds/invoices.sql", "output SQL file")
	tenant := fs.String("tenant", "", "tenant ID that owns the seeded invoices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenantID, err := uuid.Parse(*tenant)
	if err != nil {
		return fmt.Errorf("invalid -tenant: %w", err)
	}

	f, err := excelize.OpenFile(*inPath)
	if err != nil {
		return fmt.Errorf("open Excel file: %w", err)
	}
	defer func() { _ = f.Close() }()

	invoiceRows, err := f.GetRows("Invoices")
	if err != nil {
		return fmt.Errorf("read Invoices sheet: %w", err)
	}
	lineRows, err := f.GetRows("Lines")
	if err != nil {
		return fmt.Errorf("read Lines sheet: %w", err)
	}

	invoices, customers, err := parseInvoices(invoiceRows)
	if err != nil {
		return err
	}
	if err := attachLines(invoices, lineRows); err != nil {
		return err
	}
	log.Printf("Parsed %d invoices, %d customers", len(invoices), len(customers))

	out, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if err := writeSQL(out, tenantID, invoices, customers); err != nil {
		return err
	}
	log.Printf("Wrote seed data to %s", *outPath)
	return nil
}

// parseInvoices reads the Invoices sheet. Row 0 is the header.
// Columns: A=number, B=issue date, C=due date, D=PO number, E=status,
// F=tax rate (percent), G=customer name.
func parseInvoices(rows [][]string) ([]*seedInvoice, []seedCustomer, error) {
	var invoices []*seedInvoice
	var customers []seedCustomer
	customerIDs := make(map[string]uuid.UUID)
	numbers := make(map[string]bool)

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		number := cellVal(row, 0)
		if number == "" {
			continue
		}
		if numbers[number] {
			return nil, nil, fmt.Errorf("row %d: duplicate invoice number %q", i+1, number)
		}
		numbers[number] = true

		issue, err := domain.ParseDate(cellVal(row, 1))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: issue date: %w", i+1, err)
		}
		due, err := domain.ParseDate(cellVal(row, 2))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: due date: %w", i+1, err)
		}

		status := domain.InvoiceStatus(strings.ToLower(cellVal(row, 4)))
		if status == "" {
			status = domain.InvoiceStatusDraft
		}

		taxRate := decimal.Zero
		if s := strings.TrimSuffix(cellVal(row, 5), "%"); s != "" {
			taxRate, err = decimal.NewFromString(s)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: tax rate: %w", i+1, err)
			}
		}

		inv := &seedInvoice{
			id:        uuid.New(),
			number:    number,
			issueDate: issue,
			dueDate:   due,
			poNumber:  cellVal(row, 3),
			status:    status,
			taxRate:   taxRate,
		}
		if name := cellVal(row, 6); name != "" {
			key := strings.ToLower(name)
			id, ok := customerIDs[key]
			if !ok {
				id = uuid.New()
				customerIDs[key] = id
				customers = append(customers, seedCustomer{id: id, name: name})
			}
			inv.customerID = &id
		}
		invoices = append(invoices, inv)
	}
	return invoices, customers, nil
}

// attachLines reads the Lines sheet. Row 0 is the header.
// Columns: A=invoice number, B=description, C=quantity, D=unit price.
// Line order follows row order.
func attachLines(invoices []*seedInvoice, rows [][]string) error {
	byNumber := make(map[string]*seedInvoice, len(invoices))
	for _, inv := range invoices {
		byNumber[inv.number] = inv
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		number := cellVal(row, 0)
		if number == "" {
			continue
		}
		inv, ok := byNumber[number]
		if !ok {
			return fmt.Errorf("lines row %d: unknown invoice %q", i+1, number)
		}
		qty, err := strconv.Atoi(cellVal(row, 2))
		if err != nil || qty < 1 {
			return fmt.Errorf("lines row %d: quantity must be a positive integer", i+1)
		}
		price, err := decimal.NewFromString(cellVal(row, 3))
		if err != nil || price.IsNegative() {
			return fmt.Errorf("lines row %d: unit price must be a non-negative number", i+1)
		}
		inv.lines = append(inv.lines, seedLine{description: cellVal(row, 1), quantity: qty, unitPrice: price})
	}
	return nil
}

func writeSQL(out io.Writer, tenantID uuid.UUID, invoices []*seedInvoice, customers []seedCustomer) error {
	var b strings.Builder
	b.WriteString("-- Sample invoice seed data generated from Excel.\n")
	fmt.Fprintf(&b, "-- %d invoices, %d customers for tenant %s.\n", len(invoices), len(customers), tenantID)
	b.WriteString("BEGIN;\n\n")

	for i := 0; i < len(customers); i += batchSize {
		end := min(i+batchSize, len(customers))
		b.WriteString("INSERT INTO customers (id, tenant_id, name) VALUES\n")
		for j, c := range customers[i:end] {
			if j > 0 {
				b.WriteString(",\n")
			}
			fmt.Fprintf(&b, "  ('%s', '%s', '%s')", c.id, tenantID, escapeSQL(c.name))
		}
		b.WriteString(";\n\n")
	}

	for i := 0; i < len(invoices); i += batchSize {
		end := min(i+batchSize, len(invoices))
		b.WriteString("INSERT INTO invoices (id, tenant_id, invoice_number, issue_date, due_date, po_number, status, tax_rate, customer_id) VALUES\n")
		for j, inv := range invoices[i:end] {
			if j > 0 {
				b.WriteString(",\n")
			}
			fmt.Fprintf(&b, "  ('%s', '%s', '%s', '%s', '%s', %s, '%s', %s, %s)",
				inv.id, tenantID, escapeSQL(inv.number), inv.issueDate, inv.dueDate,
				nullableString(inv.poNumber), inv.status, inv.taxRate.StringFixed(2), nullableUUID(inv.customerID))
		}
		b.WriteString(";\n\n")
	}

	var lines []string
	for _, inv := range invoices {
		for pos, l := range inv.lines {
			lines = append(lines, fmt.Sprintf("  ('%s', '%s', %d, '%s', %d, %s)",
				uuid.New(), inv.id, pos+1, escapeSQL(l.description), l.quantity, l.unitPrice.StringFixed(2)))
		}
	}
	for i := 0; i < len(lines); i += batchSize {
		end := min(i+batchSize, len(lines))
		b.WriteString("INSERT INTO invoice_lines (id, invoice_id, position, description, quantity, unit_price) VALUES\n")
		b.WriteString(strings.Join(lines[i:end], ",\n"))
		b.WriteString(";\n\n")
	}

	b.WriteString("COMMIT;\n")
	if _, err := io.WriteString(out, b.String()); err != nil {
		return fmt.Errorf("write seed file: %w", err)
	}
	return nil
}

func nullableString(s string) string {
	if s == "" {
		return "NULL"
	}
	return "'" + escapeSQL(s) + "'"
}

func nullableUUID(id *uuid.UUID) string {
	if id == nil {
		return "NULL"
	}
	return "'" + id.String() + "'"
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func cellVal(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
