package attendance

import "time"

// dayFormat is the canonical day key used for the per-agent uniqueness
// constraint.
const dayFormat = "2006-01-02"

// Resolver buckets instants into calendar days of a fixed time zone.
// A day is the half-open interval [startOfDay, startOfNextDay).
type Resolver struct {
	loc *time.Location
}

// NewResolver builds a Resolver for the given zone; nil means local time.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc}
}

// Window returns the day window containing t.
func (r *Resolver) Window(t time.Time) (from, to time.Time) {
	from = r.StartOfDay(t)
	return from, from.AddDate(0, 0, 1)
}

// StartOfDay returns midnight of t's calendar day in the resolver zone.
func (r *Resolver) StartOfDay(t time.Time) time.Time {
	year, month, day := t.In(r.loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, r.loc)
}

// DayOf returns the canonical day key for t.
func (r *Resolver) DayOf(t time.Time) string {
	return t.In(r.loc).Format(dayFormat)
}

// Location returns the resolver's time zone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}
