package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"fieldforce/m/domain"
	"fieldforce/m/internal/invoice"
)

// InvoiceStore is the PostgreSQL implementation of invoice.Store. Every
// composite operation runs entity, item and audit writes in a single
// transaction.
type InvoiceStore struct {
	db *sqlx.DB
}

// NewInvoiceStore wraps the shared connection pool.
func NewInvoiceStore(db *sqlx.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

const insertInvoiceSQL = `INSERT INTO invoices (
	id, invoice_no, agent_id, created_by, customer_id, customer_snapshot,
	company_name, company_address, company_gst, company_mobile, company_email,
	agent_name, agent_phone, agent_email, agent_department,
	pan_card, aadhaar_card,
	customer_address, customer_gst, customer_mobile, customer_email,
	subtotal, total_discount, tax_amount, shipping, total,
	currency, status, notes,
	bank_name, bank_account_number, bank_holder_name, ifsc_code, account_type, upi_id,
	terms_and_conditions, payment_terms,
	company_logo_url, company_stamp_url, invoice_pdf_url,
	invoice_date, due_date, created_at, updated_at
) VALUES (
	:id, :invoice_no, :agent_id, :created_by, :customer_id, :customer_snapshot,
	:company_name, :company_address, :company_gst, :company_mobile, :company_email,
	:agent_name, :agent_phone, :agent_email, :agent_department,
	:pan_card, :aadhaar_card,
	:customer_address, :customer_gst, :customer_mobile, :customer_email,
	:subtotal, :total_discount, :tax_amount, :shipping, :total,
	:currency, :status, :notes,
	:bank_name, :bank_account_number, :bank_holder_name, :ifsc_code, :account_type, :upi_id,
	:terms_and_conditions, :payment_terms,
	:company_logo_url, :company_stamp_url, :invoice_pdf_url,
	:invoice_date, :due_date, :created_at, :updated_at
)`

const updateInvoiceSQL = `UPDATE invoices SET
	agent_id = :agent_id, customer_id = :customer_id, customer_snapshot = :customer_snapshot,
	company_name = :company_name, company_address = :company_address, company_gst = :company_gst,
	company_mobile = :company_mobile, company_email = :company_email,
	agent_name = :agent_name, agent_phone = :agent_phone, agent_email = :agent_email,
	agent_department = :agent_department,
	pan_card = :pan_card, aadhaar_card = :aadhaar_card,
	customer_address = :customer_address, customer_gst = :customer_gst,
	customer_mobile = :customer_mobile, customer_email = :customer_email,
	subtotal = :subtotal, total_discount = :total_discount, tax_amount = :tax_amount,
	shipping = :shipping, total = :total,
	currency = :currency, notes = :notes,
	bank_name = :bank_name, bank_account_number = :bank_account_number,
	bank_holder_name = :bank_holder_name, ifsc_code = :ifsc_code,
	account_type = :account_type, upi_id = :upi_id,
	terms_and_conditions = :terms_and_conditions, payment_terms = :payment_terms,
	company_logo_url = :company_logo_url, company_stamp_url = :company_stamp_url,
	invoice_pdf_url = :invoice_pdf_url,
	invoice_date = :invoice_date, due_date = :due_date, updated_at = :updated_at
WHERE id = :id`

const insertItemSQL = `INSERT INTO invoice_items
	(invoice_id, product_id, name, sku, unit_price, quantity, discount, tax, line_total)
VALUES
	(:invoice_id, :product_id, :name, :sku, :unit_price, :quantity, :discount, :tax, :line_total)`

const insertAuditSQL = `INSERT INTO invoice_audit (invoice_id, action, actor_id, details, created_at)
VALUES (:invoice_id, :action, :actor_id, :details, :created_at)`

// Create persists invoice, items and the audit row atomically.
func (s *InvoiceStore) Create(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem, audit domain.InvoiceAudit) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertInvoiceSQL, inv); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}
	if _, err := tx.NamedExecContext(ctx, insertAuditSQL, audit); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return tx.Commit()
}

// Get loads one invoice or reports invoice.ErrNotFound.
func (s *InvoiceStore) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.db.GetContext(ctx, &inv, `SELECT * FROM invoices WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invoice.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Replace overwrites the invoice row, swaps the full item set and appends
// the audit row, all in one transaction.
func (s *InvoiceStore) Replace(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem, audit domain.InvoiceAudit) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, updateInvoiceSQL, inv); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}
	if _, err := tx.NamedExecContext(ctx, insertAuditSQL, audit); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return tx.Commit()
}

// SetStatus updates the status field and appends the audit row.
func (s *InvoiceStore) SetStatus(ctx context.Context, id string, status domain.InvoiceStatus, audit domain.InvoiceAudit) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertAuditSQL, audit); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return tx.Commit()
}

// SetPdfURL points the invoice at a stored PDF and appends the audit row.
func (s *InvoiceStore) SetPdfURL(ctx context.Context, id, url string, audit domain.InvoiceAudit) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE invoices SET invoice_pdf_url = $1, updated_at = NOW() WHERE id = $2`, url, id); err != nil {
		return fmt.Errorf("update pdf url: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertAuditSQL, audit); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return tx.Commit()
}

// Delete removes items and invoice but still appends the audit row; the
// audit table has no foreign key, so the row outlives the invoice.
func (s *InvoiceStore) Delete(ctx context.Context, id string, audit domain.InvoiceAudit) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertAuditSQL, audit); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return tx.Commit()
}

// Items returns the invoice's line items in insertion order.
func (s *InvoiceStore) Items(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := s.db.SelectContext(ctx, &items, `SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	return items, err
}

// AuditTrail returns audit rows in creation order.
func (s *InvoiceStore) AuditTrail(ctx context.Context, invoiceID string) ([]domain.InvoiceAudit, error) {
	var rows []domain.InvoiceAudit
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM invoice_audit WHERE invoice_id = $1 ORDER BY created_at ASC, id ASC`, invoiceID)
	return rows, err
}

// NextSequence bumps and returns the per-year invoice counter. The
// single-row upsert keeps the sequence unique under concurrent creates.
func (s *InvoiceStore) NextSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := s.db.GetContext(ctx, &seq,
		`INSERT INTO invoice_counters (year, last_seq) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		 RETURNING last_seq`, year)
	return seq, err
}

// List returns a page of invoices filtered by optional agent and status.
func (s *InvoiceStore) List(ctx context.Context, f invoice.ListFilter) ([]domain.Invoice, error) {
	var (
		args    []any
		clauses []string
	)
	if f.AgentID != "" {
		args = append(args, f.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, strings.ToUpper(f.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT * FROM invoices`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, f.Size)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, f.Page*f.Size)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var invoices []domain.Invoice
	err := s.db.SelectContext(ctx, &invoices, query, args...)
	return invoices, err
}

func insertItems(ctx context.Context, tx *sqlx.Tx, items []domain.InvoiceItem) error {
	for _, item := range items {
		if _, err := tx.NamedExecContext(ctx, insertItemSQL, item); err != nil {
			return fmt.Errorf("insert item %q: %w", item.Name, err)
		}
	}
	return nil
}
