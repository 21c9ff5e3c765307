package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldforce/m/domain"
)

// fakeStore is an in-memory invoice.Store. Composite operations are
// applied all-or-nothing, mirroring the transactional contract.
type fakeStore struct {
	invoices map[string]*domain.Invoice
	items    map[string][]domain.InvoiceItem
	audits   []domain.InvoiceAudit
	seq      map[int]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices: make(map[string]*domain.Invoice),
		items:    make(map[string][]domain.InvoiceItem),
		seq:      make(map[int]int64),
	}
}

func (f *fakeStore) Create(_ context.Context, inv *domain.Invoice, items []domain.InvoiceItem, audit domain.InvoiceAudit) error {
	cp := *inv
	f.invoices[inv.ID] = &cp
	f.items[inv.ID] = append([]domain.InvoiceItem(nil), items...)
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*domain.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStore) Replace(_ context.Context, inv *domain.Invoice, items []domain.InvoiceItem, audit domain.InvoiceAudit) error {
	cp := *inv
	f.invoices[inv.ID] = &cp
	f.items[inv.ID] = append([]domain.InvoiceItem(nil), items...)
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, id string, status domain.InvoiceStatus, audit domain.InvoiceAudit) error {
	f.invoices[id].Status = status
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeStore) SetPdfURL(_ context.Context, id, url string, audit domain.InvoiceAudit) error {
	f.invoices[id].InvoicePdfURL = &url
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string, audit domain.InvoiceAudit) error {
	delete(f.invoices, id)
	delete(f.items, id)
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeStore) Items(_ context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	return append([]domain.InvoiceItem(nil), f.items[invoiceID]...), nil
}

func (f *fakeStore) AuditTrail(_ context.Context, invoiceID string) ([]domain.InvoiceAudit, error) {
	var trail []domain.InvoiceAudit
	for _, row := range f.audits {
		if row.InvoiceID == invoiceID {
			trail = append(trail, row)
		}
	}
	return trail, nil
}

func (f *fakeStore) NextSequence(_ context.Context, year int) (int64, error) {
	f.seq[year]++
	return f.seq[year], nil
}

func (f *fakeStore) List(_ context.Context, filter ListFilter) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range f.invoices {
		if filter.AgentID != "" && inv.AgentID != filter.AgentID {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(string(inv.Status), filter.Status) {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (f *fakeStore) auditActions(invoiceID string) []string {
	var actions []string
	for _, row := range f.audits {
		if row.InvoiceID == invoiceID {
			actions = append(actions, row.Action)
		}
	}
	return actions
}

// fakeSink captures stored documents by name.
type fakeSink struct {
	saved map[string][]byte
	fail  error
}

func newFakeSink() *fakeSink {
	return &fakeSink{saved: make(map[string][]byte)}
}

func (f *fakeSink) SaveNamed(name string, data []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.saved[name] = data
	return nil
}

func newTestService(store Store, sink FileSink, at time.Time) *Service {
	svc := NewService(store, sink)
	svc.now = func() time.Time { return at }
	return svc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func strPtr(s string) *string {
	return &s
}

func validPayload() Payload {
	return Payload{
		AgentID:   "agent-1",
		CreatedBy: "user-1",
		Items: []ItemPayload{{
			Name:      "Widget",
			UnitPrice: dec("100"),
			Quantity:  intPtr(2),
			LineTotal: dec("200"),
		}},
		Subtotal: decPtr("200"),
		Total:    decPtr("200"),
	}
}

func TestCreateAppliesDefaultsAndAudits(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, inv.Status)
	assert.Equal(t, "INR", inv.Currency)
	assert.Equal(t, "INV-2026-0001", inv.InvoiceNo)
	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, inv.InvoiceDate, inv.CreatedAt)

	items, err := svc.Items(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Widget", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].LineTotal.Equal(dec("200")))

	assert.Equal(t, []string{domain.AuditCreated}, store.auditActions(inv.ID))
}

func TestCreateSequencesInvoiceNumbers(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	first, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-0001", first.InvoiceNo)
	assert.Equal(t, "INV-2026-0002", second.InvoiceNo)
}

func TestCreateHonorsSuppliedStatusAndCurrency(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	payload := validPayload()
	payload.Status = strPtr("new")
	payload.Currency = strPtr("USD")

	inv, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Payload)
	}{
		{"missing agent", func(p *Payload) { p.AgentID = "" }},
		{"missing creator", func(p *Payload) { p.CreatedBy = "" }},
		{"no items", func(p *Payload) { p.Items = nil }},
		{"missing subtotal", func(p *Payload) { p.Subtotal = nil }},
		{"missing total", func(p *Payload) { p.Total = nil }},
		{"negative total", func(p *Payload) { p.Total = decPtr("-1") }},
		{"unknown status", func(p *Payload) { p.Status = strPtr("SHIPPED") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestService(store, newFakeSink(), time.Now())

			payload := validPayload()
			tc.mutate(&payload)

			_, err := svc.Create(context.Background(), payload)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, store.invoices, "no partial write on validation failure")
			assert.Empty(t, store.audits)
		})
	}
}

func TestUpdateReplacesItemSet(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	payload := validPayload()
	payload.Items = []ItemPayload{
		{Name: "Gadget", UnitPrice: dec("50"), Quantity: intPtr(1), LineTotal: dec("50")},
		{Name: "Gizmo", UnitPrice: dec("25"), Quantity: intPtr(4), LineTotal: dec("100")},
	}
	payload.Subtotal = decPtr("150")
	payload.Total = decPtr("150")

	updated, err := svc.Update(context.Background(), inv.ID, payload)
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(dec("150")))

	items, err := svc.Items(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Gadget", items[0].Name)
	assert.Equal(t, "Gizmo", items[1].Name)

	assert.Equal(t, []string{domain.AuditCreated, domain.AuditUpdated}, store.auditActions(inv.ID))
}

func TestUpdatePreservesFileURLsWhenOmitted(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	payload := validPayload()
	payload.CompanyLogoURL = strPtr("/files/logo.png")
	inv, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)

	update := validPayload()
	updated, err := svc.Update(context.Background(), inv.ID, update)
	require.NoError(t, err)
	require.NotNil(t, updated.CompanyLogoURL)
	assert.Equal(t, "/files/logo.png", *updated.CompanyLogoURL)

	update.CompanyLogoURL = strPtr("/files/other.png")
	updated, err = svc.Update(context.Background(), inv.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "/files/other.png", *updated.CompanyLogoURL)
}

func TestUpdateRejectsNonEditableStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)
	_, err = svc.MarkStatus(context.Background(), inv.ID, "SENT", "user-1")
	require.NoError(t, err)

	before, err := svc.Items(context.Background(), inv.ID)
	require.NoError(t, err)

	payload := validPayload()
	payload.Items = []ItemPayload{{Name: "Other", LineTotal: dec("1")}}
	_, err = svc.Update(context.Background(), inv.ID, payload)
	assert.ErrorIs(t, err, ErrInvalidState)

	after, err := svc.Items(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "items untouched after rejected update")
}

func TestUpdateUnknownInvoice(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeSink(), time.Now())
	_, err := svc.Update(context.Background(), "missing", validPayload())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkStatusFollowsTransitionTable(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.MarkStatus(context.Background(), inv.ID, "sent", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, updated.Status)

	updated, err = svc.MarkStatus(context.Background(), inv.ID, "PAID", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, updated.Status)

	// PAID is terminal.
	_, err = svc.MarkStatus(context.Background(), inv.ID, "CANCELLED", "admin-1")
	assert.ErrorIs(t, err, ErrInvalidState)

	trail, err := svc.AuditTrail(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, "SENT", trail[1].Action)
	require.NotNil(t, trail[1].Details)
	assert.Equal(t, "Status changed to SENT", *trail[1].Details)
	assert.Equal(t, "admin-1", trail[1].ActorID)
	assert.Equal(t, "PAID", trail[2].Action)
}

func TestMarkStatusRejectsUnknownStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.MarkStatus(context.Background(), inv.ID, "SHIPPED", "admin-1")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteKeepsAuditTrail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), inv.ID, "admin-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.Get(context.Background(), inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The trail outlives the invoice and records the deletion.
	trail, err := svc.AuditTrail(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, domain.AuditDeleted, trail[1].Action)
}

func TestDeleteUnknownInvoiceReportsFalse(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeSink(), time.Now())
	deleted, err := svc.Delete(context.Background(), "missing", "admin-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAttachPDF(t *testing.T) {
	store := newFakeStore()
	sink := newFakeSink()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, sink, at)

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.AttachPDF(context.Background(), inv.ID, []byte("%PDF-1.4 test"), "admin-1")
	require.NoError(t, err)

	wantName := fmt.Sprintf("%s-%d.pdf", inv.ID, at.UnixMilli())
	require.NotNil(t, updated.InvoicePdfURL)
	assert.Equal(t, "/files/"+wantName, *updated.InvoicePdfURL)
	assert.Equal(t, []byte("%PDF-1.4 test"), sink.saved[wantName])
	assert.Equal(t, []string{domain.AuditCreated, domain.AuditPdfAttached}, store.auditActions(inv.ID))
}

func TestAttachPDFRejectsEmptyFile(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeSink(), time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.AttachPDF(context.Background(), inv.ID, nil, "admin-1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{domain.AuditCreated}, store.auditActions(inv.ID), "no audit row for rejected attach")
}

func TestAttachPDFUnknownInvoice(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeSink(), time.Now())
	_, err := svc.AttachPDF(context.Background(), "missing", []byte("data"), "admin-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachPDFSinkFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	sink := newFakeSink()
	sink.fail = errors.New("disk full")
	svc := newTestService(store, sink, time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.AttachPDF(context.Background(), inv.ID, []byte("data"), "admin-1")
	require.Error(t, err)
	stored, err := svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.InvoicePdfURL)
}

func TestGeneratePDFRendersAndAttaches(t *testing.T) {
	store := newFakeStore()
	sink := newFakeSink()
	svc := newTestService(store, sink, time.Now())

	inv, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.GeneratePDF(context.Background(), inv.ID, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, updated.InvoicePdfURL)

	require.Len(t, sink.saved, 1)
	for _, data := range sink.saved {
		assert.True(t, strings.HasPrefix(string(data), "%PDF"), "rendered document is a PDF")
	}
}
