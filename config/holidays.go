package config

import (
	"fmt"
	"os"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"gopkg.in/yaml.v3"
)

// HolidayFile is the YAML layout of a holiday calendar:
//
//	holidays:
//	  - id: new-year
//	    name: New Year's Day
//	    date: 2025-01-01
//	    recurrence: FREQ=YEARLY
//	  - id: office-party
//	    name: Office party
//	    date: 2025-12-19
//	    type: company
//	    office_status: optional
type HolidayFile struct {
	Holidays []HolidayEntry `yaml:"holidays"`
}

type HolidayEntry struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Date         string `yaml:"date"`
	Type         string `yaml:"type"`
	OfficeStatus string `yaml:"office_status"`
	Recurrence   string `yaml:"recurrence"`
}

// LoadHolidays reads and validates a holiday calendar file.
func LoadHolidays(path string) ([]leave.Holiday, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read holidays %s: %w", path, err)
	}
	return ParseHolidays(b)
}

func ParseHolidays(b []byte) ([]leave.Holiday, error) {
	var f HolidayFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("config: parse holidays: %w", err)
	}

	out := make([]leave.Holiday, 0, len(f.Holidays))
	seen := make(map[string]struct{}, len(f.Holidays))
	for i, e := range f.Holidays {
		h, err := e.toHoliday()
		if err != nil {
			return nil, fmt.Errorf("config: holiday #%d: %w", i+1, err)
		}
		if _, dup := seen[h.ID]; dup {
			return nil, fmt.Errorf("config: holiday #%d: %w", i+1,
				generic.NewValidationError("id", "duplicate id "+h.ID))
		}
		seen[h.ID] = struct{}{}
		out = append(out, h)
	}

	// Reject bad recurrence rules at load time rather than on first use.
	if _, err := leave.NewResolver(out); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return out, nil
}

func (e HolidayEntry) toHoliday() (leave.Holiday, error) {
	if e.Name == "" {
		return leave.Holiday{}, generic.NewValidationError("name", "is required")
	}
	date, err := generic.ParseDate(e.Date)
	if err != nil {
		return leave.Holiday{}, err
	}

	h := leave.Holiday{
		ID:           e.ID,
		Name:         e.Name,
		Date:         date,
		Type:         leave.HolidayPublic,
		OfficeStatus: leave.OfficeClosed,
		Recurrence:   e.Recurrence,
	}
	if h.ID == "" {
		h.ID = date.String() + "-" + e.Name
	}
	if e.Type != "" {
		h.Type = leave.HolidayType(e.Type)
	}
	if e.OfficeStatus != "" {
		h.OfficeStatus = leave.OfficeStatus(e.OfficeStatus)
	}

	switch h.Type {
	case leave.HolidayPublic, leave.HolidayCompany:
	default:
		return leave.Holiday{}, generic.NewValidationError("type", "must be public or company")
	}
	switch h.OfficeStatus {
	case leave.OfficeClosed, leave.OfficeOptional, leave.OfficeOpen:
	default:
		return leave.Holiday{}, generic.NewValidationError("office_status", "must be closed, optional or open")
	}
	return h, nil
}
