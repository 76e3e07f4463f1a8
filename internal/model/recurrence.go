package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/scheduling"
)

// RecurrenceRule is the stored pattern behind an appointment series.
type RecurrenceRule struct {
	Base
	TenantID    uuid.UUID            `db:"tenant_id" json:"tenant_id"`
	GroupID     uuid.UUID            `db:"group_id" json:"group_id"`
	Frequency   scheduling.Frequency `db:"frequency" json:"frequency"`
	Interval    int                  `db:"interval_count" json:"interval"`
	StartDate   Date                 `db:"start_date" json:"start_date"`
	EndDate     *Date                `db:"end_date" json:"end_date,omitempty"`
	Occurrences *int                 `db:"occurrences" json:"occurrences,omitempty"`
}

// Rule converts the stored pattern for date generation.
func (r *RecurrenceRule) Rule() scheduling.Rule {
	rule := scheduling.Rule{Frequency: r.Frequency, Interval: r.Interval}
	if r.EndDate != nil {
		until := r.EndDate.Time
		rule.Until = &until
	}
	if r.Occurrences != nil {
		rule.Count = *r.Occurrences
	}
	return rule
}

type RecurrenceRequest struct {
	Appointment CreateAppointmentRequest `json:"appointment" binding:"required"`
	Frequency   string                   `json:"frequency" binding:"required,oneof=daily weekly monthly"`
	Interval    int                      `json:"interval" binding:"omitempty,min=1,max=365"`
	EndDate     *string                  `json:"end_date" binding:"required_without=Occurrences,omitempty,isodate"`
	Occurrences *int                     `json:"occurrences" binding:"required_without=EndDate,omitempty,min=1"`
}

// SkipReason explains why a candidate date produced no appointment.
type SkipReason string

const (
	SkipResourceConflict    SkipReason = "resource conflict"
	SkipOutsideWorkingHours SkipReason = "outside working hours"
	SkipBusinessClosed      SkipReason = "business closed"
)

type SkippedOccurrence struct {
	Date     Date            `json:"date"`
	Reason   SkipReason      `json:"reason"`
	Conflict *ConflictResult `json:"conflict,omitempty"`
}

type RecurrenceResult struct {
	GroupID      uuid.UUID           `json:"group_id"`
	Created      []*Appointment      `json:"created"`
	Skipped      []SkippedOccurrence `json:"skipped"`
	CreatedCount int                 `json:"created_count"`
	SkippedCount int                 `json:"skipped_count"`
	Truncated    bool                `json:"truncated"`
	GeneratedAt  time.Time           `json:"generated_at"`
}
