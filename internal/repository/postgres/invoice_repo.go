package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invoicer/internal/domain"
	"invoicer/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

const invoiceColumns = `id, tenant_id, invoice_number, issue_date, due_date, po_number, status,
	tax_rate, customer_id, company_id, created_at, updated_at`

// GetByID loads an invoice with its lines, customer and company.
func (r *invoiceRepo) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv,
		"SELECT "+invoiceColumns+" FROM invoices WHERE tenant_id = $1 AND id = $2",
		tenantID, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}

	inv.Lines = []domain.InvoiceLine{}
	err = r.db.SelectContext(ctx, &inv.Lines,
		`SELECT id, invoice_id, position, description, quantity, unit_price
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY position, id`,
		inv.ID)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetByID lines: %w", err)
	}

	if inv.CustomerID != nil {
		var c domain.Customer
		err = r.db.GetContext(ctx, &c,
			"SELECT id, tenant_id, name, nif, address, email, created_at FROM customers WHERE tenant_id = $1 AND id = $2",
			tenantID, *inv.CustomerID)
		switch {
		case err == nil:
			inv.Customer = &c
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("invoiceRepo.GetByID customer: %w", err)
		}
	}

	if inv.CompanyID != nil {
		var c domain.Company
		err = r.db.GetContext(ctx, &c,
			"SELECT id, tenant_id, name, nif, address, created_at FROM companies WHERE tenant_id = $1 AND id = $2",
			tenantID, *inv.CompanyID)
		switch {
		case err == nil:
			inv.Company = &c
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("invoiceRepo.GetByID company: %w", err)
		}
	}

	return &inv, nil
}
