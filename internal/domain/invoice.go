package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Company is the issuer of an invoice.
type Company struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Nif       string    `db:"nif" json:"nif"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Customer is the recipient of an invoice.
type Customer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Nif       string    `db:"nif" json:"nif"`
	Address   string    `db:"address" json:"address"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// InvoiceLine is a single billed item. Position orders lines within an invoice.
type InvoiceLine struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	InvoiceID   uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Position    int             `db:"position" json:"position"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// Invoice is the document being edited by natural-language commands.
type Invoice struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	TenantID      uuid.UUID       `db:"tenant_id" json:"tenant_id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	IssueDate     time.Time       `db:"issue_date" json:"issue_date"`
	DueDate       time.Time       `db:"due_date" json:"due_date"`
	PONumber      *string         `db:"po_number" json:"po_number,omitempty"`
	Status        InvoiceStatus   `db:"status" json:"status"`
	TaxRate       decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	CustomerID    *uuid.UUID      `db:"customer_id" json:"customer_id,omitempty"`
	CompanyID     *uuid.UUID      `db:"company_id" json:"company_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Customer *Customer     `db:"-" json:"customer,omitempty"`
	Company  *Company      `db:"-" json:"company,omitempty"`
	Lines    []InvoiceLine `db:"-" json:"lines"`
}

// InvoiceSnapshot is the compact view of an invoice given to the model as context.
// Line numbers are 1-based and follow line position order.
type InvoiceSnapshot struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	IssueDate     Date            `json:"issueDate"`
	DueDate       Date            `json:"dueDate"`
	PONumber      string          `json:"poNumber,omitempty"`
	Status        InvoiceStatus   `json:"status"`
	Customer      string          `json:"customer,omitempty"`
	Company       string          `json:"company,omitempty"`
	Lines         []SnapshotLine  `json:"lines"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	Total         decimal.Decimal `json:"total"`
}

// SnapshotLine is one invoice line as seen by the model.
type SnapshotLine struct {
	LineNumber  int             `json:"lineNumber"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

// Snapshot computes the model-facing view of the invoice, including totals.
// Lines are expected in position order.
func (inv *Invoice) Snapshot() InvoiceSnapshot {
	snap := InvoiceSnapshot{
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     NewDate(inv.IssueDate.Date()),
		DueDate:       NewDate(inv.DueDate.Date()),
		Status:        inv.Status,
		TaxRate:       inv.TaxRate,
		Lines:         make([]SnapshotLine, 0, len(inv.Lines)),
	}
	if inv.PONumber != nil {
		snap.PONumber = *inv.PONumber
	}
	if inv.Customer != nil {
		snap.Customer = inv.Customer.Name
	}
	if inv.Company != nil {
		snap.Company = inv.Company.Name
	}

	subtotal := decimal.Zero
	for i, l := range inv.Lines {
		amount := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(amount)
		snap.Lines = append(snap.Lines, SnapshotLine{
			LineNumber:  i + 1,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      amount,
		})
	}
	tax := subtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	snap.Subtotal = subtotal
	snap.TaxAmount = tax
	snap.Total = subtotal.Add(tax)
	return snap
}

// ContextJSON serializes the snapshot for use as prompt context.
func (snap InvoiceSnapshot) ContextJSON() (string, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
