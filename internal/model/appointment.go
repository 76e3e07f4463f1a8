package model

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/scheduling"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Blocking reports whether an appointment in this status occupies its time.
func (s AppointmentStatus) Blocking() bool {
	return s != AppointmentStatusCancelled && s != AppointmentStatusNoShow
}

var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
}

// CanTransition reports whether next is reachable from s.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether time and resources may still change.
func (s AppointmentStatus) Editable() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// BlockingStatuses lists the statuses that hold a resource's time.
func BlockingStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted}
}

type Appointment struct {
	Base
	TenantID     uuid.UUID         `db:"tenant_id" json:"tenant_id"`
	StaffID      *uuid.UUID        `db:"staff_id" json:"staff_id,omitempty"`
	DoctorID     *uuid.UUID        `db:"doctor_id" json:"doctor_id,omitempty"`
	ServiceID    *uuid.UUID        `db:"service_id" json:"service_id,omitempty"`
	ServiceName  string            `db:"service_name" json:"service_name"`
	CustomerName string            `db:"customer_name" json:"customer_name,omitempty"`
	Date         Date              `db:"appointment_date" json:"date"`
	StartTime    string            `db:"start_time" json:"start_time"`
	Duration     int               `db:"duration" json:"duration"`
	Status       AppointmentStatus `db:"status" json:"status"`
	GroupID      *uuid.UUID        `db:"group_id" json:"group_id,omitempty"`
	Notes        string            `db:"notes" json:"notes,omitempty"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// Interval is the appointment's [start, start+duration) in minutes.
func (a *Appointment) Interval() (scheduling.Interval, error) {
	return scheduling.NewInterval(a.StartTime, a.Duration)
}

// EndTime is the wall-clock end, or empty when the start is malformed.
func (a *Appointment) EndTime() string {
	iv, err := a.Interval()
	if err != nil {
		return ""
	}
	return scheduling.ToWallClock(iv.End)
}

// Resources lists the staff and doctor refs the appointment holds, staff first.
func (a *Appointment) Resources() []ResourceRef {
	var refs []ResourceRef
	if a.StaffID != nil {
		refs = append(refs, ResourceRef{Kind: ResourceKindStaff, ID: *a.StaffID})
	}
	if a.DoctorID != nil {
		refs = append(refs, ResourceRef{Kind: ResourceKindDoctor, ID: *a.DoctorID})
	}
	return refs
}

// Holds reports whether ref is assigned to this appointment.
func (a *Appointment) Holds(ref ResourceRef) bool {
	switch ref.Kind {
	case ResourceKindStaff:
		return a.StaffID != nil && *a.StaffID == ref.ID
	case ResourceKindDoctor:
		return a.DoctorID != nil && *a.DoctorID == ref.ID
	}
	return false
}

type CreateAppointmentRequest struct {
	StaffID      *uuid.UUID `json:"staff_id" binding:"required_without=DoctorID"`
	DoctorID     *uuid.UUID `json:"doctor_id" binding:"required_without=StaffID"`
	ServiceID    *uuid.UUID `json:"service_id"`
	ServiceName  string     `json:"service_name" binding:"max=200"`
	CustomerName string     `json:"customer_name" binding:"max=200"`
	Date         string     `json:"date" binding:"required,isodate"`
	StartTime    string     `json:"start_time" binding:"required,clock"`
	Duration     int        `json:"duration" binding:"omitempty,min=1,max=1440"`
	Status       string     `json:"status" binding:"omitempty,oneof=pending confirmed"`
	Notes        string     `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentRequest struct {
	StaffID   *uuid.UUID `json:"staff_id"`
	DoctorID  *uuid.UUID `json:"doctor_id"`
	Date      *string    `json:"date" binding:"omitempty,isodate"`
	StartTime *string    `json:"start_time" binding:"omitempty,clock"`
	Duration  *int       `json:"duration" binding:"omitempty,min=1,max=1440"`
	Notes     *string    `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed completed cancelled no_show"`
	Reason string            `json:"reason" binding:"max=500"`
}

type AppointmentFilter struct {
	TenantID   uuid.UUID
	Date       *Date
	ResourceID *uuid.UUID
	GroupID    *uuid.UUID
	Status     AppointmentStatus
}
