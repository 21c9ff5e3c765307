package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a billing document. Company, agent and customer fields are
// snapshots copied at creation time so the document stays stable even if
// the live records change later.
type Invoice struct {
	ID        string `db:"id" json:"id"`
	InvoiceNo string `db:"invoice_no" json:"invoice_no"`
	AgentID   string `db:"agent_id" json:"agent_id"`
	CreatedBy string `db:"created_by" json:"created_by"`

	CustomerID       *string `db:"customer_id" json:"customer_id,omitempty"`
	CustomerSnapshot *string `db:"customer_snapshot" json:"customer_snapshot,omitempty"`

	CompanyName    *string `db:"company_name" json:"company_name,omitempty"`
	CompanyAddress *string `db:"company_address" json:"company_address,omitempty"`
	CompanyGst     *string `db:"company_gst" json:"company_gst,omitempty"`
	CompanyMobile  *string `db:"company_mobile" json:"company_mobile,omitempty"`
	CompanyEmail   *string `db:"company_email" json:"company_email,omitempty"`

	AgentName       *string `db:"agent_name" json:"agent_name,omitempty"`
	AgentPhone      *string `db:"agent_phone" json:"agent_phone,omitempty"`
	AgentEmail      *string `db:"agent_email" json:"agent_email,omitempty"`
	AgentDepartment *string `db:"agent_department" json:"agent_department,omitempty"`

	PanCard     *string `db:"pan_card" json:"pan_card,omitempty"`
	AadhaarCard *string `db:"aadhaar_card" json:"aadhaar_card,omitempty"`

	CustomerAddress *string `db:"customer_address" json:"customer_address,omitempty"`
	CustomerGst     *string `db:"customer_gst" json:"customer_gst,omitempty"`
	CustomerMobile  *string `db:"customer_mobile" json:"customer_mobile,omitempty"`
	CustomerEmail   *string `db:"customer_email" json:"customer_email,omitempty"`

	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	TotalDiscount decimal.Decimal `db:"total_discount" json:"total_discount"`
	TaxAmount     decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Shipping      decimal.Decimal `db:"shipping" json:"shipping"`
	Total         decimal.Decimal `db:"total" json:"total"`

	Currency string        `db:"currency" json:"currency"`
	Status   InvoiceStatus `db:"status" json:"status"`
	Notes    *string       `db:"notes" json:"notes,omitempty"`

	BankName          *string `db:"bank_name" json:"bank_name,omitempty"`
	BankAccountNumber *string `db:"bank_account_number" json:"bank_account_number,omitempty"`
	BankHolderName    *string `db:"bank_holder_name" json:"bank_holder_name,omitempty"`
	IfscCode          *string `db:"ifsc_code" json:"ifsc_code,omitempty"`
	AccountType       *string `db:"account_type" json:"account_type,omitempty"`
	UpiID             *string `db:"upi_id" json:"upi_id,omitempty"`

	TermsAndConditions *string `db:"terms_and_conditions" json:"terms_and_conditions,omitempty"`
	PaymentTerms       *string `db:"payment_terms" json:"payment_terms,omitempty"`

	CompanyLogoURL  *string `db:"company_logo_url" json:"company_logo_url,omitempty"`
	CompanyStampURL *string `db:"company_stamp_url" json:"company_stamp_url,omitempty"`
	InvoicePdfURL   *string `db:"invoice_pdf_url" json:"invoice_pdf_url,omitempty"`

	InvoiceDate time.Time  `db:"invoice_date" json:"invoice_date"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// InvoiceItem belongs to exactly one invoice; replacing or deleting the
// invoice replaces or deletes its items.
type InvoiceItem struct {
	ID        int64           `db:"id" json:"id"`
	InvoiceID string          `db:"invoice_id" json:"invoice_id"`
	ProductID *int64          `db:"product_id" json:"product_id,omitempty"`
	Name      string          `db:"name" json:"name"`
	Sku       *string         `db:"sku" json:"sku,omitempty"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Discount  decimal.Decimal `db:"discount" json:"discount"`
	Tax       decimal.Decimal `db:"tax" json:"tax"`
	LineTotal decimal.Decimal `db:"line_total" json:"line_total"`
}

// InvoiceAudit is an append-only log row. InvoiceID is a weak reference:
// no foreign key, so the row survives deletion of its invoice.
type InvoiceAudit struct {
	ID        int64     `db:"id" json:"id"`
	InvoiceID string    `db:"invoice_id" json:"invoice_id"`
	Action    string    `db:"action" json:"action"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	Details   *string   `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Audit actions recorded against invoices. Status changes are recorded
// under the status name itself.
const (
	AuditCreated     = "CREATED"
	AuditUpdated     = "UPDATED"
	AuditDeleted     = "DELETED"
	AuditPdfAttached = "PDF_ATTACHED"
)
