package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ConflictResult is the verdict of a conflict check. It is a value, not an
// error: HasConflict=false is a normal answer.
type ConflictResult struct {
	HasConflict bool                    `json:"has_conflict"`
	Kind        ResourceKind            `json:"kind,omitempty"`
	Conflicting *ConflictingAppointment `json:"conflicting_appointment,omitempty"`
	Message     string                  `json:"message,omitempty"`
}

type ConflictingAppointment struct {
	ID          uuid.UUID `json:"id"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	ServiceName string    `json:"service_name"`
}

// NewConflict builds a positive verdict against an existing appointment.
func NewConflict(kind ResourceKind, existing *Appointment) *ConflictResult {
	c := &ConflictingAppointment{
		ID:          existing.ID,
		StartTime:   existing.StartTime,
		EndTime:     existing.EndTime(),
		ServiceName: existing.ServiceName,
	}
	label := c.ServiceName
	if label == "" {
		label = "another appointment"
	}
	return &ConflictResult{
		HasConflict: true,
		Kind:        kind,
		Conflicting: c,
		Message:     fmt.Sprintf("%s is already booked at %s-%s (%s)", kind.Label(), c.StartTime, c.EndTime, label),
	}
}

type ConflictCheckRequest struct {
	Date                 string     `json:"date" binding:"required,isodate"`
	StartTime            string     `json:"start_time" binding:"required,clock"`
	Duration             int        `json:"duration" binding:"required,min=1"`
	StaffID              *uuid.UUID `json:"staff_id" binding:"required_without=DoctorID"`
	DoctorID             *uuid.UUID `json:"doctor_id" binding:"required_without=StaffID"`
	ExcludeAppointmentID *uuid.UUID `json:"exclude_appointment_id"`
}
