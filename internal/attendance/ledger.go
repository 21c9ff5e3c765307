package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldforce/m/domain"
	"fieldforce/m/internal/geocode"
	"fieldforce/m/internal/logger"
)

// Store is the persistence contract for the day ledger. Insert must fail
// with ErrDuplicateDay when another record for the same (agent, day)
// already exists.
type Store interface {
	FindForWindow(ctx context.Context, agentID string, from, to time.Time) (*domain.AttendanceRecord, error)
	Insert(ctx context.Context, rec *domain.AttendanceRecord) error
	Update(ctx context.Context, rec *domain.AttendanceRecord) error
	ListForAgent(ctx context.Context, agentID string, from, to time.Time) ([]domain.AttendanceRecord, error)
	ListForWindow(ctx context.Context, from, to time.Time) ([]domain.AttendanceRecord, error)
}

// ImageSink stores inbound image bytes and returns the generated filename.
type ImageSink interface {
	Save(data []byte, ext string) (string, error)
}

// imageURLPrefix is the serving path stored images are exposed under.
const imageURLPrefix = "/attendance/field/images/file/"

// Ledger owns the one-record-per-agent-per-day invariant across manual
// marking, field check-in and punch-in/out. All entry points share the
// same upsert: resolve the day window, mutate the day's canonical record
// if one exists, otherwise insert a fresh one.
type Ledger struct {
	store  Store
	days   *Resolver
	geo    geocode.Resolver
	images ImageSink
	now    func() time.Time
	log    zerolog.Logger
}

// NewLedger constructs the attendance day ledger.
func NewLedger(store Store, days *Resolver, geo geocode.Resolver, images ImageSink) *Ledger {
	return &Ledger{
		store:  store,
		days:   days,
		geo:    geo,
		images: images,
		now:    time.Now,
		log:    logger.WithComponent("attendance"),
	}
}

// MarkEntry is one (date, status) pair in a manual batch mark.
type MarkEntry struct {
	Date   time.Time
	Status string
}

// MarkRequest marks attendance for an employee across one or more dates.
type MarkRequest struct {
	EmployeeID   string
	EmployeeName string
	Entries      []MarkEntry
}

// Mark upserts one record per entry date. Entries missing a date or
// status are skipped individually; they never abort the batch.
func (l *Ledger) Mark(ctx context.Context, req MarkRequest) error {
	if req.EmployeeID == "" {
		return validationErr("employee_id", "employeeId is required")
	}
	if req.EmployeeName == "" {
		return validationErr("employee_name", "employeeName is required")
	}
	if len(req.Entries) == 0 {
		return validationErr("entries", "at least one entry is required")
	}

	for _, entry := range req.Entries {
		if entry.Date.IsZero() || entry.Status == "" {
			continue
		}
		dayStart := l.days.StartOfDay(entry.Date)
		status := entry.Status
		_, err := l.upsert(ctx, req.EmployeeID, dayStart, func(rec *domain.AttendanceRecord) {
			rec.AgentName = req.EmployeeName
			rec.Status = status
		})
		if err != nil {
			return fmt.Errorf("mark attendance for %s: %w", l.days.DayOf(dayStart), err)
		}
	}
	return nil
}

// FieldCheckInRequest captures a work-from-field check-in. Location and
// image are best-effort enrichment.
type FieldCheckInRequest struct {
	AgentID   string
	AgentName string
	Status    string // defaults to PRESENT
	WorkType  string // defaults to FIELD
	Latitude  *float64
	Longitude *float64
	Date      *time.Time // defaults to today
	Image     []byte
	ImageExt  string
}

// FieldCheckIn upserts the day's record with status, work type, location
// and image. A failed geocode or image write leaves the field unset and
// never fails the check-in.
func (l *Ledger) FieldCheckIn(ctx context.Context, req FieldCheckInRequest) (*domain.AttendanceRecord, error) {
	if req.AgentID == "" {
		return nil, validationErr("agent_id", "agentId is required")
	}
	if req.AgentName == "" {
		return nil, validationErr("agent_name", "agentName is required")
	}
	if req.Status == "" {
		req.Status = "PRESENT"
	}
	if req.WorkType == "" {
		req.WorkType = "FIELD"
	}

	effective := l.now()
	if req.Date != nil {
		effective = *req.Date
	}
	dayStart := l.days.StartOfDay(effective)

	rec, err := l.upsert(ctx, req.AgentID, dayStart, func(rec *domain.AttendanceRecord) {
		rec.AgentName = req.AgentName
		rec.Status = req.Status
		rec.WorkType = &req.WorkType
		rec.Latitude = req.Latitude
		rec.Longitude = req.Longitude
		l.resolveAddress(ctx, req.Latitude, req.Longitude, &rec.Address)
		l.attachImage(req.Image, req.ImageExt, &rec.ImageURL)
	})
	if err != nil {
		return nil, fmt.Errorf("field check-in: %w", err)
	}
	return rec, nil
}

// PunchInRequest captures an explicit punch-in. The image is mandatory
// proof of presence.
type PunchInRequest struct {
	AgentID   string
	AgentName string
	WorkType  string // defaults to FIELD
	Reason    *string
	Latitude  *float64
	Longitude *float64
	Image     []byte
	ImageExt  string
}

// PunchIn upserts today's record with a fixed "Present" status. An
// existing check-in time is never moved; only a fresh record gets
// checkInTime = now. The image must be present, but a failure to store
// it still leaves the punch recorded.
func (l *Ledger) PunchIn(ctx context.Context, req PunchInRequest) (*domain.AttendanceRecord, error) {
	if req.AgentID == "" {
		return nil, validationErr("agent_id", "agentId is required")
	}
	if req.AgentName == "" {
		return nil, validationErr("agent_name", "agentName is required")
	}
	if len(req.Image) == 0 {
		return nil, validationErr("image", "punch-in image is required")
	}
	if req.WorkType == "" {
		req.WorkType = "FIELD"
	}

	now := l.now()
	rec, err := l.upsertAt(ctx, req.AgentID, l.days.StartOfDay(now), now, func(rec *domain.AttendanceRecord) {
		rec.AgentName = req.AgentName
		rec.Status = "Present"
		rec.WorkType = &req.WorkType
		rec.Reason = req.Reason
		rec.Latitude = req.Latitude
		rec.Longitude = req.Longitude
		l.resolveAddress(ctx, req.Latitude, req.Longitude, &rec.Address)
		l.attachImage(req.Image, req.ImageExt, &rec.ImageURL)
	})
	if err != nil {
		return nil, fmt.Errorf("punch-in: %w", err)
	}
	return rec, nil
}

// PunchOutRequest captures a punch-out. Everything except the agent id
// is optional.
type PunchOutRequest struct {
	AgentID   string
	AgentName string
	Reason    *string
	Latitude  *float64
	Longitude *float64
	Image     []byte
	ImageExt  string
}

// PunchOut sets checkOutTime to now, overwriting any earlier punch-out.
// It only ever writes the punch-out field set; the check-in location and
// image are left untouched.
func (l *Ledger) PunchOut(ctx context.Context, req PunchOutRequest) (*domain.AttendanceRecord, error) {
	if req.AgentID == "" {
		return nil, validationErr("agent_id", "agentId is required")
	}

	now := l.now()
	rec, err := l.upsertAt(ctx, req.AgentID, l.days.StartOfDay(now), now, func(rec *domain.AttendanceRecord) {
		if req.AgentName != "" {
			rec.AgentName = req.AgentName
		}
		if rec.Status == "" {
			rec.Status = "Present"
		}
		checkOut := now
		rec.CheckOutTime = &checkOut
		if req.Reason != nil {
			rec.Reason = req.Reason
		}
		rec.PunchOutLatitude = req.Latitude
		rec.PunchOutLongitude = req.Longitude
		l.resolveAddress(ctx, req.Latitude, req.Longitude, &rec.PunchOutAddress)
		l.attachImage(req.Image, req.ImageExt, &rec.PunchOutImageURL)
	})
	if err != nil {
		return nil, fmt.Errorf("punch-out: %w", err)
	}
	return rec, nil
}

// RecordsInRange returns an agent's records with check-in between the
// start of from's day and the end of to's day.
func (l *Ledger) RecordsInRange(ctx context.Context, agentID string, from, to time.Time) ([]domain.AttendanceRecord, error) {
	if agentID == "" {
		return nil, validationErr("agent_id", "agentId is required")
	}
	start := l.days.StartOfDay(from)
	_, end := l.days.Window(to)
	return l.store.ListForAgent(ctx, agentID, start, end)
}

// RecordsForDate returns every agent's record for one calendar day.
func (l *Ledger) RecordsForDate(ctx context.Context, date time.Time) ([]domain.AttendanceRecord, error) {
	from, to := l.days.Window(date)
	return l.store.ListForWindow(ctx, from, to)
}

// PunchStatus returns today's record for an agent, or ErrNoRecord.
func (l *Ledger) PunchStatus(ctx context.Context, agentID string) (*domain.AttendanceRecord, error) {
	if agentID == "" {
		return nil, validationErr("agent_id", "agentId is required")
	}
	from, to := l.days.Window(l.now())
	rec, err := l.store.FindForWindow(ctx, agentID, from, to)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoRecord
	}
	return rec, nil
}

// Days exposes the ledger's day resolver for callers that format times.
func (l *Ledger) Days() *Resolver {
	return l.days
}

// upsert runs the shared day-ledger algorithm with checkInTime = start of
// day for fresh records (manual marks and field check-ins).
func (l *Ledger) upsert(ctx context.Context, agentID string, dayStart time.Time, apply func(*domain.AttendanceRecord)) (*domain.AttendanceRecord, error) {
	return l.upsertAt(ctx, agentID, dayStart, dayStart, apply)
}

// upsertAt reads the day's canonical record and mutates it, or inserts a
// fresh record with the given check-in time. Losing an insert race against
// a concurrent request for the same (agent, day) is handled by re-reading
// the winning row and applying the mutation to it.
func (l *Ledger) upsertAt(ctx context.Context, agentID string, dayStart, checkIn time.Time, apply func(*domain.AttendanceRecord)) (*domain.AttendanceRecord, error) {
	from, to := l.days.Window(dayStart)

	rec, err := l.store.FindForWindow(ctx, agentID, from, to)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		apply(rec)
		return rec, l.store.Update(ctx, rec)
	}

	rec = &domain.AttendanceRecord{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		Day:         l.days.DayOf(dayStart),
		CheckInTime: checkIn,
	}
	apply(rec)

	err = l.store.Insert(ctx, rec)
	if errors.Is(err, ErrDuplicateDay) {
		l.log.Warn().Str("agent_id", agentID).Str("day", rec.Day).Msg("lost insert race, retrying as update")
		rec, err = l.store.FindForWindow(ctx, agentID, from, to)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, ErrDuplicateDay
		}
		apply(rec)
		return rec, l.store.Update(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveAddress fills dst with a reverse-geocoded address when both
// coordinates are present and the resolver answers; otherwise dst is left
// alone.
func (l *Ledger) resolveAddress(ctx context.Context, lat, lon *float64, dst **string) {
	if lat == nil || lon == nil {
		return
	}
	if address, ok := l.geo.ReverseGeocode(ctx, *lat, *lon); ok {
		*dst = &address
	}
}

// attachImage stores the image bytes and points dst at the serving URL.
// Storage failures are logged and swallowed: the record is saved without
// the image.
func (l *Ledger) attachImage(data []byte, ext string, dst **string) {
	if len(data) == 0 {
		return
	}
	name, err := l.images.Save(data, ext)
	if err != nil {
		l.log.Warn().Err(err).Msg("failed to store attendance image")
		return
	}
	url := imageURLPrefix + name
	*dst = &url
}
