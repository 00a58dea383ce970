package leave

import (
	"fmt"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/teambition/rrule-go"
)

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

type HolidayType string

const (
	HolidayPublic  HolidayType = "public"
	HolidayCompany HolidayType = "company"
)

// OfficeStatus says whether the office is open on the holiday. Only closed
// holidays are excluded from working-day counts.
type OfficeStatus string

const (
	OfficeClosed   OfficeStatus = "closed"
	OfficeOptional OfficeStatus = "optional"
	OfficeOpen     OfficeStatus = "open"
)

// Holiday is a dated holiday. Recurrence, when set, is an RFC 5545 RRULE
// (e.g. "FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25") anchored at Date.
type Holiday struct {
	ID           string
	Name         string
	Date         generic.TimePoint
	Type         HolidayType
	OfficeStatus OfficeStatus
	Recurrence   string
}

func (h Holiday) Closed() bool { return h.OfficeStatus == OfficeClosed }

// DateSet is a set of calendar days keyed by YYYY-MM-DD.
type DateSet map[string]struct{}

func (s DateSet) Add(d generic.TimePoint)      { s[d.String()] = struct{}{} }
func (s DateSet) Has(d generic.TimePoint) bool { _, ok := s[d.String()]; return ok }
func (s DateSet) Len() int                     { return len(s) }

// Resolver answers "is this a working day" over an injected holiday list.
// Recurrence rules are parsed once in NewResolver; every query is pure.
type Resolver struct {
	fixed     DateSet
	recurring []*rrule.RRule
}

// NewResolver keeps only closed holidays. An unparsable recurrence rule is a
// validation error.
func NewResolver(holidays []Holiday) (*Resolver, error) {
	r := &Resolver{fixed: DateSet{}}
	for _, h := range holidays {
		if !h.Closed() {
			continue
		}
		if h.Recurrence == "" {
			r.fixed.Add(h.Date)
			continue
		}
		opt, err := rrule.StrToROption(h.Recurrence)
		if err != nil {
			return nil, generic.NewValidationError("recurrence", fmt.Sprintf("holiday %q: %v", h.Name, err))
		}
		opt.Dtstart = h.Date.Time
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, generic.NewValidationError("recurrence", fmt.Sprintf("holiday %q: %v", h.Name, err))
		}
		r.recurring = append(r.recurring, rule)
	}
	return r, nil
}

// MustResolver panics on invalid recurrence rules. Test and fixture helper.
func MustResolver(holidays []Holiday) *Resolver {
	r, err := NewResolver(holidays)
	if err != nil {
		panic(err)
	}
	return r
}

// ClosedHolidays returns the closed holiday dates inside [start, end].
func (r *Resolver) ClosedHolidays(start, end generic.TimePoint) DateSet {
	out := DateSet{}
	if r == nil || end.Before(start) {
		return out
	}
	for key := range r.fixed {
		d, _ := generic.ParseDate(key)
		if !d.Before(start) && !d.After(end) {
			out.Add(d)
		}
	}
	for _, rule := range r.recurring {
		for _, t := range rule.Between(start.Time, end.AddDays(1).Time, true) {
			if d := generic.FromTime(t); !d.After(end) {
				out.Add(d)
			}
		}
	}
	return out
}

// NonWorkingDates returns every Saturday, Sunday and closed holiday in [start, end].
func (r *Resolver) NonWorkingDates(start, end generic.TimePoint) DateSet {
	out := r.ClosedHolidays(start, end)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			out.Add(d)
		}
	}
	return out
}

func (r *Resolver) IsWorkingDay(d generic.TimePoint) bool {
	return !d.IsWeekend() && !r.ClosedHolidays(d, d).Has(d)
}
