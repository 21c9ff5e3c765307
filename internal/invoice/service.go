package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fieldforce/m/domain"
	"fieldforce/m/internal/logger"
)

// Store is the persistence contract for the invoice lifecycle. Composite
// operations (entity + items + audit row) must commit atomically or not
// at all.
type Store interface {
	Create(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem, audit domain.InvoiceAudit) error
	Get(ctx context.Context, id string) (*domain.Invoice, error)
	Replace(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem, audit domain.InvoiceAudit) error
	SetStatus(ctx context.Context, id string, status domain.InvoiceStatus, audit domain.InvoiceAudit) error
	SetPdfURL(ctx context.Context, id, url string, audit domain.InvoiceAudit) error
	Delete(ctx context.Context, id string, audit domain.InvoiceAudit) error
	Items(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error)
	AuditTrail(ctx context.Context, invoiceID string) ([]domain.InvoiceAudit, error)
	NextSequence(ctx context.Context, year int) (int64, error)
	List(ctx context.Context, f ListFilter) ([]domain.Invoice, error)
}

// FileSink stores generated or uploaded documents under an exact name.
type FileSink interface {
	SaveNamed(name string, data []byte) error
}

// ListFilter narrows and pages invoice listings.
type ListFilter struct {
	AgentID string
	Status  string
	Page    int
	Size    int
}

// ItemPayload is one invoice line as supplied by the caller. Missing
// numeric fields default to zero.
type ItemPayload struct {
	ProductID *int64          `json:"product_id"`
	Name      string          `json:"name"`
	Sku       *string         `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  *int            `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Payload carries everything needed to create or fully update an invoice.
// Pointer fields distinguish "absent" from "zero": absent file URLs and
// invoice date preserve previously stored values on update.
type Payload struct {
	AgentID   string `json:"agent_id"`
	CreatedBy string `json:"created_by"`

	CustomerID       *string `json:"customer_id"`
	CustomerSnapshot *string `json:"customer_snapshot"`

	CompanyName    *string `json:"company_name"`
	CompanyAddress *string `json:"company_address"`
	CompanyGst     *string `json:"company_gst"`
	CompanyMobile  *string `json:"company_mobile"`
	CompanyEmail   *string `json:"company_email"`

	AgentName       *string `json:"agent_name"`
	AgentPhone      *string `json:"agent_phone"`
	AgentEmail      *string `json:"agent_email"`
	AgentDepartment *string `json:"agent_department"`

	PanCard     *string `json:"pan_card"`
	AadhaarCard *string `json:"aadhaar_card"`

	CustomerAddress *string `json:"customer_address"`
	CustomerGst     *string `json:"customer_gst"`
	CustomerMobile  *string `json:"customer_mobile"`
	CustomerEmail   *string `json:"customer_email"`

	Items []ItemPayload `json:"items"`

	Subtotal      *decimal.Decimal `json:"subtotal"`
	TotalDiscount *decimal.Decimal `json:"total_discount"`
	TaxAmount     *decimal.Decimal `json:"tax_amount"`
	Shipping      *decimal.Decimal `json:"shipping"`
	Total         *decimal.Decimal `json:"total"`

	Currency *string `json:"currency"`
	Status   *string `json:"status"`
	Notes    *string `json:"notes"`

	BankName          *string `json:"bank_name"`
	BankAccountNumber *string `json:"bank_account_number"`
	BankHolderName    *string `json:"bank_holder_name"`
	IfscCode          *string `json:"ifsc_code"`
	AccountType       *string `json:"account_type"`
	UpiID             *string `json:"upi_id"`

	TermsAndConditions *string `json:"terms_and_conditions"`
	PaymentTerms       *string `json:"payment_terms"`

	CompanyLogoURL  *string `json:"company_logo_url"`
	CompanyStampURL *string `json:"company_stamp_url"`
	InvoicePdfURL   *string `json:"invoice_pdf_url"`

	InvoiceDate *time.Time `json:"invoice_date"`
	DueDate     *time.Time `json:"due_date"`
}

// Service owns invoice creation, guarded update, status transitions,
// deletion and PDF attachment. Every mutation appends to the audit trail
// in the same transaction as the entity write.
type Service struct {
	store Store
	files FileSink
	now   func() time.Time
	log   zerolog.Logger
}

// NewService constructs the invoice lifecycle service.
func NewService(store Store, files FileSink) *Service {
	return &Service{
		store: store,
		files: files,
		now:   time.Now,
		log:   logger.WithComponent("invoice"),
	}
}

// Create validates the payload, assigns an invoice number and persists
// invoice, items and the CREATED audit row atomically.
func (s *Service) Create(ctx context.Context, payload Payload) (*domain.Invoice, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	status := domain.StatusDraft
	if payload.Status != nil {
		parsed, err := domain.ParseInvoiceStatus(*payload.Status)
		if err != nil {
			return nil, validationErr("status", err.Error())
		}
		status = parsed
	}

	invoiceNo, err := s.nextInvoiceNo(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	now := s.now()
	inv := &domain.Invoice{
		ID:        uuid.NewString(),
		InvoiceNo: invoiceNo,
		AgentID:   payload.AgentID,
		CreatedBy: payload.CreatedBy,

		CustomerID:       payload.CustomerID,
		CustomerSnapshot: payload.CustomerSnapshot,

		CompanyName:    payload.CompanyName,
		CompanyAddress: payload.CompanyAddress,
		CompanyGst:     payload.CompanyGst,
		CompanyMobile:  payload.CompanyMobile,
		CompanyEmail:   payload.CompanyEmail,

		AgentName:       payload.AgentName,
		AgentPhone:      payload.AgentPhone,
		AgentEmail:      payload.AgentEmail,
		AgentDepartment: payload.AgentDepartment,

		PanCard:     payload.PanCard,
		AadhaarCard: payload.AadhaarCard,

		CustomerAddress: payload.CustomerAddress,
		CustomerGst:     payload.CustomerGst,
		CustomerMobile:  payload.CustomerMobile,
		CustomerEmail:   payload.CustomerEmail,

		Subtotal:      nullSafe(payload.Subtotal),
		TotalDiscount: nullSafe(payload.TotalDiscount),
		TaxAmount:     nullSafe(payload.TaxAmount),
		Shipping:      nullSafe(payload.Shipping),
		Total:         nullSafe(payload.Total),

		Currency: "INR",
		Status:   status,
		Notes:    payload.Notes,

		BankName:          payload.BankName,
		BankAccountNumber: payload.BankAccountNumber,
		BankHolderName:    payload.BankHolderName,
		IfscCode:          payload.IfscCode,
		AccountType:       payload.AccountType,
		UpiID:             payload.UpiID,

		TermsAndConditions: payload.TermsAndConditions,
		PaymentTerms:       payload.PaymentTerms,

		CompanyLogoURL:  payload.CompanyLogoURL,
		CompanyStampURL: payload.CompanyStampURL,
		InvoicePdfURL:   payload.InvoicePdfURL,

		InvoiceDate: now,
		DueDate:     payload.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if payload.Currency != nil {
		inv.Currency = *payload.Currency
	}
	if payload.InvoiceDate != nil {
		inv.InvoiceDate = *payload.InvoiceDate
	}

	items := buildItems(inv.ID, payload.Items)
	audit := s.auditRow(inv, domain.AuditCreated, payload.CreatedBy, "Invoice created")

	if err := s.store.Create(ctx, inv, items, audit); err != nil {
		return nil, fmt.Errorf("persist invoice: %w", err)
	}

	s.log.Info().Str("invoice_id", inv.ID).Str("invoice_no", inv.InvoiceNo).Msg("invoice created")
	return inv, nil
}

// Update overwrites the mutable fields of a draft or new invoice and
// replaces its item set wholesale. File URLs and the invoice date keep
// their stored values when the payload omits them. Status changes go
// through MarkStatus, never through here.
func (s *Service) Update(ctx context.Context, id string, payload Payload) (*domain.Invoice, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.Editable() {
		return nil, fmt.Errorf("%w: only draft or new invoices can be updated, got %s", ErrInvalidState, existing.Status)
	}
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	existing.AgentID = payload.AgentID
	existing.CustomerID = payload.CustomerID
	existing.CustomerSnapshot = payload.CustomerSnapshot

	existing.CompanyName = payload.CompanyName
	existing.CompanyAddress = payload.CompanyAddress
	existing.CompanyGst = payload.CompanyGst
	existing.CompanyMobile = payload.CompanyMobile
	existing.CompanyEmail = payload.CompanyEmail

	existing.AgentName = payload.AgentName
	existing.AgentPhone = payload.AgentPhone
	existing.AgentEmail = payload.AgentEmail
	existing.AgentDepartment = payload.AgentDepartment

	existing.PanCard = payload.PanCard
	existing.AadhaarCard = payload.AadhaarCard

	existing.CustomerAddress = payload.CustomerAddress
	existing.CustomerGst = payload.CustomerGst
	existing.CustomerMobile = payload.CustomerMobile
	existing.CustomerEmail = payload.CustomerEmail

	existing.Subtotal = nullSafe(payload.Subtotal)
	existing.TotalDiscount = nullSafe(payload.TotalDiscount)
	existing.TaxAmount = nullSafe(payload.TaxAmount)
	existing.Shipping = nullSafe(payload.Shipping)
	existing.Total = nullSafe(payload.Total)
	if payload.Currency != nil {
		existing.Currency = *payload.Currency
	}
	existing.Notes = payload.Notes

	existing.BankName = payload.BankName
	existing.BankAccountNumber = payload.BankAccountNumber
	existing.BankHolderName = payload.BankHolderName
	existing.IfscCode = payload.IfscCode
	existing.AccountType = payload.AccountType
	existing.UpiID = payload.UpiID

	existing.TermsAndConditions = payload.TermsAndConditions
	existing.PaymentTerms = payload.PaymentTerms

	if payload.CompanyLogoURL != nil {
		existing.CompanyLogoURL = payload.CompanyLogoURL
	}
	if payload.CompanyStampURL != nil {
		existing.CompanyStampURL = payload.CompanyStampURL
	}
	if payload.InvoicePdfURL != nil {
		existing.InvoicePdfURL = payload.InvoicePdfURL
	}
	if payload.InvoiceDate != nil {
		existing.InvoiceDate = *payload.InvoiceDate
	}
	existing.DueDate = payload.DueDate
	existing.UpdatedAt = s.now()

	items := buildItems(existing.ID, payload.Items)
	audit := s.auditRow(existing, domain.AuditUpdated, payload.CreatedBy, "Invoice updated")

	if err := s.store.Replace(ctx, existing, items, audit); err != nil {
		return nil, fmt.Errorf("persist invoice update: %w", err)
	}

	s.log.Info().Str("invoice_id", existing.ID).Msg("invoice updated")
	return existing, nil
}

// MarkStatus moves an invoice along the status transition table and
// records the transition in the audit trail under the new status name.
func (s *Service) MarkStatus(ctx context.Context, id, newStatus, actorID string) (*domain.Invoice, error) {
	next, err := domain.ParseInvoiceStatus(newStatus)
	if err != nil {
		return nil, validationErr("status", err.Error())
	}

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: cannot move %s invoice to %s", ErrInvalidState, existing.Status, next)
	}

	audit := s.auditRow(existing, string(next), actorID, "Status changed to "+string(next))
	if err := s.store.SetStatus(ctx, id, next, audit); err != nil {
		return nil, fmt.Errorf("persist status change: %w", err)
	}

	existing.Status = next
	existing.UpdatedAt = s.now()
	s.log.Info().Str("invoice_id", id).Str("status", string(next)).Msg("invoice status changed")
	return existing, nil
}

// Delete removes the invoice and its items. The DELETED audit row is
// written in the same transaction and deliberately survives, referencing
// the now-missing invoice id. Unknown ids report false without error.
func (s *Service) Delete(ctx context.Context, id, actorID string) (bool, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	audit := s.auditRow(existing, domain.AuditDeleted, actorID, "Invoice deleted")
	if err := s.store.Delete(ctx, id, audit); err != nil {
		return false, fmt.Errorf("delete invoice: %w", err)
	}

	s.log.Info().Str("invoice_id", id).Msg("invoice deleted")
	return true, nil
}

// AttachPDF stores the uploaded document and points the invoice at it.
// The filename is keyed by invoice id and write time, so concurrent
// uploads for different invoices can never collide.
func (s *Service) AttachPDF(ctx context.Context, id string, data []byte, actorID string) (*domain.Invoice, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, validationErr("file", "PDF file is required")
	}

	filename := fmt.Sprintf("%s-%d.pdf", id, s.now().UnixMilli())
	if err := s.files.SaveNamed(filename, data); err != nil {
		return nil, fmt.Errorf("store pdf: %w", err)
	}

	url := "/files/" + filename
	audit := s.auditRow(existing, domain.AuditPdfAttached, actorID, "PDF uploaded for invoice")
	if err := s.store.SetPdfURL(ctx, id, url, audit); err != nil {
		return nil, fmt.Errorf("persist pdf url: %w", err)
	}

	existing.InvoicePdfURL = &url
	existing.UpdatedAt = s.now()
	s.log.Info().Str("invoice_id", id).Str("pdf", filename).Msg("pdf attached")
	return existing, nil
}

// GeneratePDF renders the stored invoice to a PDF document and attaches
// it through the same path as a manual upload.
func (s *Service) GeneratePDF(ctx context.Context, id, actorID string) (*domain.Invoice, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := RenderPDF(existing, items)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return s.AttachPDF(ctx, id, data, actorID)
}

// Get returns the invoice or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.store.Get(ctx, id)
}

// Items returns the invoice's line items.
func (s *Service) Items(ctx context.Context, id string) ([]domain.InvoiceItem, error) {
	return s.store.Items(ctx, id)
}

// AuditTrail returns the audit rows for an invoice in creation order.
// It works for deleted invoices too: the trail is the only surviving
// record of a deletion.
func (s *Service) AuditTrail(ctx context.Context, id string) ([]domain.InvoiceAudit, error) {
	return s.store.AuditTrail(ctx, id)
}

// List returns a page of invoices matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Invoice, error) {
	if f.Size <= 0 {
		f.Size = 20
	}
	if f.Page < 0 {
		f.Page = 0
	}
	return s.store.List(ctx, f)
}

// nextInvoiceNo produces "INV-{year}-{seq}" from the per-year counter.
// The counter is incremented atomically in the store, so numbers are
// unique under concurrent creates.
func (s *Service) nextInvoiceNo(ctx context.Context) (string, error) {
	year := s.now().UTC().Year()
	seq, err := s.store.NextSequence(ctx, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, seq), nil
}

func (s *Service) auditRow(inv *domain.Invoice, action, actorID, details string) domain.InvoiceAudit {
	if actorID == "" {
		actorID = inv.CreatedBy
	}
	return domain.InvoiceAudit{
		InvoiceID: inv.ID,
		Action:    action,
		ActorID:   actorID,
		Details:   &details,
		CreatedAt: s.now(),
	}
}

func validatePayload(payload Payload) error {
	if payload.AgentID == "" {
		return validationErr("agent_id", "agentId is required")
	}
	if payload.CreatedBy == "" {
		return validationErr("created_by", "createdBy is required")
	}
	if len(payload.Items) == 0 {
		return validationErr("items", "at least one item is required")
	}
	if payload.Subtotal == nil || payload.Total == nil {
		return validationErr("subtotal", "subtotal and total are required")
	}
	if payload.Subtotal.IsNegative() || payload.Total.IsNegative() {
		return validationErr("total", "amounts cannot be negative")
	}
	return nil
}

func buildItems(invoiceID string, payload []ItemPayload) []domain.InvoiceItem {
	items := make([]domain.InvoiceItem, 0, len(payload))
	for _, item := range payload {
		quantity := 0
		if item.Quantity != nil {
			quantity = *item.Quantity
		}
		items = append(items, domain.InvoiceItem{
			InvoiceID: invoiceID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Sku:       item.Sku,
			UnitPrice: item.UnitPrice,
			Quantity:  quantity,
			Discount:  item.Discount,
			Tax:       item.Tax,
			LineTotal: item.LineTotal,
		})
	}
	return items
}

func nullSafe(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
