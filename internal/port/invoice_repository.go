package port

import (
	"context"

	"github.com/google/uuid"

	"invoicer/internal/domain"
)

// InvoiceRepository loads invoices used as command context.
// All query methods include tenantID to enforce tenant isolation at the data layer.
type InvoiceRepository interface {
	// GetByID returns the invoice with its customer, company and lines (in position order).
	GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error)
}
