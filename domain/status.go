package domain

import (
	"fmt"
	"strings"
)

// InvoiceStatus is the closed set of invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusNew       InvoiceStatus = "NEW"
	StatusSent      InvoiceStatus = "SENT"
	StatusPaid      InvoiceStatus = "PAID"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// statusTransitions is the allowed one-way transition graph. PAID and
// CANCELLED are terminal.
var statusTransitions = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft: {StatusNew, StatusSent, StatusCancelled},
	StatusNew:   {StatusSent, StatusCancelled},
	StatusSent:  {StatusPaid, StatusCancelled},
}

// ParseInvoiceStatus accepts any casing of a known status name.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case StatusDraft, StatusNew, StatusSent, StatusPaid, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
}

// Editable reports whether an invoice in this status may still be updated.
func (s InvoiceStatus) Editable() bool {
	return s == StatusDraft || s == StatusNew
}

// CanTransition reports whether moving from s to next is allowed.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
