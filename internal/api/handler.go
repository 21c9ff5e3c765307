package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fieldforce/m/internal/attendance"
	"fieldforce/m/internal/filestore"
	"fieldforce/m/internal/invoice"
)

// maxUploadBytes caps multipart uploads (attendance images, invoice PDFs).
const maxUploadBytes = 10 << 20

// dateParam is the wire format for calendar dates.
const dateParam = "2006-01-02"

// Handler bundles dependencies for HTTP handlers. It stays thin: decode,
// call the engine, translate the error kind into a status code.
type Handler struct {
	invoices *invoice.Service
	ledger   *attendance.Ledger
	files    *filestore.Store
}

// New constructs a Handler.
func New(invoices *invoice.Service, ledger *attendance.Ledger, files *filestore.Store) *Handler {
	return &Handler{invoices: invoices, ledger: ledger, files: files}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/files/{filename}", h.serveFile)

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Get("/", h.listInvoices)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}", h.updateInvoice)
		r.Delete("/{id}", h.deleteInvoice)
		r.Post("/{id}/status", h.markInvoiceStatus)
		r.Post("/{id}/pdf", h.attachInvoicePdf)
		r.Post("/{id}/pdf/generate", h.generateInvoicePdf)
		r.Get("/{id}/audit", h.invoiceAudit)
	})

	r.Route("/attendance", func(r chi.Router) {
		r.Post("/mark", h.markAttendance)
		r.Get("/", h.getAttendance)

		r.Route("/field", func(r chi.Router) {
			r.Post("/checkin", h.fieldCheckin)
			r.Post("/punch-in", h.punchIn)
			r.Post("/punch-out", h.punchOut)
			r.Get("/status", h.punchStatus)
			r.Get("/images/all", h.attendanceForDate)
			r.Get("/images/file/{filename}", h.serveFile)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Invoice handlers

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var payload invoice.Payload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.invoices.Create(r.Context(), payload)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	invoices, err := h.invoices.List(r.Context(), invoice.ListFilter{
		AgentID: strings.TrimSpace(r.URL.Query().Get("agentId")),
		Status:  strings.TrimSpace(r.URL.Query().Get("status")),
		Page:    page,
		Size:    size,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	items, err := h.invoices.Items(r.Context(), id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"invoice": inv, "items": items})
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	var payload invoice.Payload
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.invoices.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	actorID := strings.TrimSpace(r.URL.Query().Get("actorId"))
	deleted, err := h.invoices.Delete(r.Context(), chi.URLParam(r, "id"), actorID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "invoice not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type markStatusRequest struct {
	Status  string `json:"status"`
	ActorID string `json:"actor_id"`
}

func (h *Handler) markInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req markStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.invoices.MarkStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.ActorID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (h *Handler) attachInvoicePdf(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	data, _, err := formFileBytes(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	inv, err := h.invoices.AttachPDF(r.Context(), chi.URLParam(r, "id"), data, r.FormValue("actorId"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (h *Handler) generateInvoicePdf(w http.ResponseWriter, r *http.Request) {
	actorID := strings.TrimSpace(r.URL.Query().Get("actorId"))
	inv, err := h.invoices.GeneratePDF(r.Context(), chi.URLParam(r, "id"), actorID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (h *Handler) invoiceAudit(w http.ResponseWriter, r *http.Request) {
	trail, err := h.invoices.AuditTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trail)
}

// Attendance handlers

type markEntryRequest struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

type markAttendanceRequest struct {
	EmployeeID   string             `json:"employee_id"`
	EmployeeName string             `json:"employee_name"`
	Entries      []markEntryRequest `json:"entries"`
}

func (h *Handler) markAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries := make([]attendance.MarkEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		// Unparseable dates are dropped entry-by-entry, same as missing
		// statuses; the batch keeps going.
		date, err := time.ParseInLocation(dateParam, e.Date, h.ledger.Days().Location())
		if err != nil {
			continue
		}
		entries = append(entries, attendance.MarkEntry{Date: date, Status: e.Status})
	}

	if err := h.ledger.Mark(r.Context(), attendance.MarkRequest{
		EmployeeID:   req.EmployeeID,
		EmployeeName: req.EmployeeName,
		Entries:      entries,
	}); err != nil {
		respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getAttendance(w http.ResponseWriter, r *http.Request) {
	agentID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	from, errFrom := time.ParseInLocation(dateParam, r.URL.Query().Get("fromDate"), h.ledger.Days().Location())
	to, errTo := time.ParseInLocation(dateParam, r.URL.Query().Get("toDate"), h.ledger.Days().Location())
	if errFrom != nil || errTo != nil {
		respondError(w, http.StatusBadRequest, "fromDate and toDate must be in YYYY-MM-DD format")
		return
	}
	records, err := h.ledger.RecordsInRange(r.Context(), agentID, from, to)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) fieldCheckin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := attendance.FieldCheckInRequest{
		AgentID:   r.FormValue("agentId"),
		AgentName: r.FormValue("agentName"),
		Status:    r.FormValue("status"),
		WorkType:  r.FormValue("workType"),
		Latitude:  floatField(r, "latitude"),
		Longitude: floatField(r, "longitude"),
	}
	if raw := r.FormValue("date"); raw != "" {
		date, err := time.ParseInLocation(dateParam, raw, h.ledger.Days().Location())
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		req.Date = &date
	}
	req.Image, req.ImageExt = optionalImage(r)

	rec, err := h.ledger.FieldCheckIn(r.Context(), req)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handler) punchIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := attendance.PunchInRequest{
		AgentID:   r.FormValue("agentId"),
		AgentName: r.FormValue("agentName"),
		WorkType:  r.FormValue("workType"),
		Reason:    stringField(r, "reason"),
		Latitude:  floatField(r, "latitude"),
		Longitude: floatField(r, "longitude"),
	}
	req.Image, req.ImageExt = optionalImage(r)

	rec, err := h.ledger.PunchIn(r.Context(), req)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handler) punchOut(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := attendance.PunchOutRequest{
		AgentID:   r.FormValue("agentId"),
		AgentName: r.FormValue("agentName"),
		Reason:    stringField(r, "reason"),
		Latitude:  floatField(r, "latitude"),
		Longitude: floatField(r, "longitude"),
	}
	req.Image, req.ImageExt = optionalImage(r)

	rec, err := h.ledger.PunchOut(r.Context(), req)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handler) punchStatus(w http.ResponseWriter, r *http.Request) {
	agentID := strings.TrimSpace(r.URL.Query().Get("agentId"))
	rec, err := h.ledger.PunchStatus(r.Context(), agentID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	loc := h.ledger.Days().Location()
	body := map[string]any{
		"record":   rec,
		"punch_in": rec.CheckInTime.In(loc).Format("15:04"),
	}
	if rec.CheckOutTime != nil {
		body["punch_out"] = rec.CheckOutTime.In(loc).Format("15:04")
	}
	respondJSON(w, http.StatusOK, body)
}

func (h *Handler) attendanceForDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation(dateParam, r.URL.Query().Get("date"), h.ledger.Days().Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}
	records, err := h.ledger.RecordsForDate(r.Context(), date)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	data, err := h.files.Open(filename)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to read file")
		return
	}
	w.Header().Set("Content-Type", h.files.ContentType(filename))
	w.Header().Set("Content-Disposition", "inline; filename="+filepath.Base(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError translates engine error kinds into HTTP statuses.
func respondEngineError(w http.ResponseWriter, err error) {
	var invValidation *invoice.ValidationError
	var attValidation *attendance.ValidationError
	switch {
	case errors.As(err, &invValidation), errors.As(err, &attValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, invoice.ErrNotFound), errors.Is(err, attendance.ErrNoRecord):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, invoice.ErrInvalidState):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, attendance.ErrDuplicateDay):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func floatField(r *http.Request, name string) *float64 {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &val
}

func stringField(r *http.Request, name string) *string {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil
	}
	return &raw
}

// optionalImage reads the "image" part if present, returning its bytes
// and filename extension.
func optionalImage(r *http.Request) ([]byte, string) {
	data, header, err := formFileBytes(r, "image")
	if err != nil {
		return nil, ""
	}
	return data, filepath.Ext(header)
}

func formFileBytes(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}
