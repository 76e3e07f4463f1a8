package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/scheduling"
)

// DaysPerWeek is the fixed size of a tenant's business calendar.
const DaysPerWeek = 7

// BusinessDay is one entry of a tenant's weekly business calendar.
type BusinessDay struct {
	TenantID  uuid.UUID `db:"tenant_id" json:"-"`
	DayIndex  int       `db:"day_index" json:"day_index" binding:"min=0,max=6"`
	IsOpen    bool      `db:"is_open" json:"is_open"`
	StartTime string    `db:"start_time" json:"start_time" binding:"required,clock"`
	EndTime   string    `db:"end_time" json:"end_time" binding:"required,clock"`
}

// Hours converts the entry into minute offsets.
func (d *BusinessDay) Hours() (scheduling.DayHours, error) {
	start, err := scheduling.ToMinutes(d.StartTime)
	if err != nil {
		return scheduling.DayHours{}, err
	}
	end, err := scheduling.ToMinutes(d.EndTime)
	if err != nil {
		return scheduling.DayHours{}, err
	}
	return scheduling.DayHours{Open: d.IsOpen, Start: start, End: end}, nil
}

// DefaultBusinessCalendar is what a tenant without stored hours starts from:
// 09:00-21:00 on every day except index 6.
func DefaultBusinessCalendar(tenantID uuid.UUID) []*BusinessDay {
	days := make([]*BusinessDay, DaysPerWeek)
	for i := range days {
		days[i] = &BusinessDay{
			TenantID:  tenantID,
			DayIndex:  i,
			IsOpen:    i != DaysPerWeek-1,
			StartTime: "09:00",
			EndTime:   "21:00",
		}
	}
	return days
}

// ValidateBusinessCalendar checks that days is a complete, well-formed week.
func ValidateBusinessCalendar(days []*BusinessDay) error {
	if len(days) != DaysPerWeek {
		return fmt.Errorf("business calendar needs %d days, got %d", DaysPerWeek, len(days))
	}
	var seen [DaysPerWeek]bool
	for _, d := range days {
		if d.DayIndex < 0 || d.DayIndex >= DaysPerWeek {
			return fmt.Errorf("day index %d out of range", d.DayIndex)
		}
		if seen[d.DayIndex] {
			return fmt.Errorf("day index %d listed twice", d.DayIndex)
		}
		seen[d.DayIndex] = true

		h, err := d.Hours()
		if err != nil {
			return fmt.Errorf("day %d: %w", d.DayIndex, err)
		}
		if h.Open && h.Start >= h.End {
			return fmt.Errorf("day %d: start %s must be before end %s", d.DayIndex, d.StartTime, d.EndTime)
		}
	}
	return nil
}

// ScheduleOverride replaces a resource's hours on one weekday.
type ScheduleOverride struct {
	Base
	TenantID    uuid.UUID `db:"tenant_id" json:"tenant_id"`
	ResourceID  uuid.UUID `db:"resource_id" json:"resource_id"`
	DayIndex    int       `db:"day_index" json:"day_index"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
}

func (o *ScheduleOverride) Hours() (scheduling.OverrideHours, error) {
	start, err := scheduling.ToMinutes(o.StartTime)
	if err != nil {
		return scheduling.OverrideHours{}, err
	}
	end, err := scheduling.ToMinutes(o.EndTime)
	if err != nil {
		return scheduling.OverrideHours{}, err
	}
	return scheduling.OverrideHours{Available: o.IsAvailable, Start: start, End: end}, nil
}

type UpsertOverrideRequest struct {
	StartTime   string `json:"start_time" binding:"required,clock"`
	EndTime     string `json:"end_time" binding:"required,clock"`
	IsAvailable *bool  `json:"is_available" binding:"required"`
}

type ReplaceCalendarRequest struct {
	Days []*BusinessDay `json:"days" binding:"required,len=7,dive"`
}

// DayWindow is the resolved working window for a date.
type DayWindow struct {
	Date       Date       `json:"date"`
	DayIndex   int        `json:"day_index"`
	ResourceID *uuid.UUID `json:"resource_id,omitempty"`
	IsOpen     bool       `json:"is_open"`
	StartTime  string     `json:"start_time,omitempty"`
	EndTime    string     `json:"end_time,omitempty"`
	Source     string     `json:"source"`
}

// NewDayWindow renders a resolved scheduling window.
func NewDayWindow(date Date, dayIndex int, resourceID *uuid.UUID, w scheduling.Window) *DayWindow {
	dw := &DayWindow{
		Date:       date,
		DayIndex:   dayIndex,
		ResourceID: resourceID,
		IsOpen:     w.Open,
		Source:     string(w.Source),
	}
	if w.Open {
		dw.StartTime = scheduling.ToWallClock(w.Start)
		dw.EndTime = scheduling.ToWallClock(w.End)
	}
	return dw
}

// WorkingHoursResult answers whether a proposed interval fits a doctor's day.
type WorkingHoursResult struct {
	WithinSchedule bool       `json:"within_schedule"`
	Schedule       *DayWindow `json:"schedule,omitempty"`
}

type WorkingHoursRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	Date      string    `json:"date" binding:"required,isodate"`
	StartTime string    `json:"start_time" binding:"required,clock"`
	Duration  int       `json:"duration" binding:"required,min=1"`
}
