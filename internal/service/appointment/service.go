// Package appointment books, reschedules and transitions appointments. Every
// write re-validates inside a transaction that holds the affected resources'
// locks, so two requests cannot both claim the same interval.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
	"github.com/jwalitptl/scheduling-api/internal/service/conflict"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

type Service struct {
	store     repository.Store
	calendar  *calendar.Service
	conflicts *conflict.Service
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewService(store repository.Store, cal *calendar.Service, conflicts *conflict.Service, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:     store,
		calendar:  cal,
		conflicts: conflicts,
		metrics:   m,
		logger:    log,
	}
}

// Build turns a create request into an unsaved appointment, resolving the
// catalog service and checking that assigned resources exist.
func (s *Service) Build(ctx context.Context, tenantID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	if !scheduling.ValidClock(req.StartTime) {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid start time %q", req.StartTime), scheduling.ErrInvalidClock)
	}

	a := &model.Appointment{
		TenantID:     tenantID,
		StaffID:      req.StaffID,
		DoctorID:     req.DoctorID,
		ServiceID:    req.ServiceID,
		ServiceName:  req.ServiceName,
		CustomerName: req.CustomerName,
		Date:         date,
		StartTime:    req.StartTime,
		Duration:     req.Duration,
		Status:       model.AppointmentStatusPending,
		Notes:        req.Notes,
	}
	if req.Status != "" {
		a.Status = model.AppointmentStatus(req.Status)
	}

	if req.ServiceID != nil {
		svc, err := s.store.Services().Get(ctx, tenantID, *req.ServiceID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("service", err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get service: %w", err)
		}
		if a.Duration == 0 {
			a.Duration = svc.Duration
		}
		if a.ServiceName == "" {
			a.ServiceName = svc.Name
		}
	}
	if a.Duration <= 0 {
		return nil, apperrors.BadRequest("duration or service_id is required", nil)
	}
	if err := checkShape(a); err != nil {
		return nil, err
	}

	if err := s.checkResources(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Create books a single appointment.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	a, err := s.Build(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	if err := s.Book(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Book stores a built appointment after re-checking conflicts and the
// doctor's working hours under resource locks. It fails with *ConflictError
// or *ScheduleError when the slot is no longer valid.
func (s *Service) Book(ctx context.Context, a *model.Appointment) error {
	a.ID = uuid.New()
	a.Touch(time.Now().UTC())

	err := s.commit(ctx, a, nil, func(tx repository.Tx) error {
		if err := tx.Appointments().Create(ctx, a); err != nil {
			return err
		}
		return s.emit(ctx, tx, model.EventAppointmentBooked, a)
	})
	s.record("create", err)
	return err
}

// Update reschedules or reassigns an appointment. Its own booking never
// counts as a conflict.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	a, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.Editable() {
		return nil, apperrors.Unprocessable(fmt.Sprintf("%s appointment cannot be changed", a.Status), nil)
	}

	if req.StaffID != nil {
		a.StaffID = req.StaffID
	}
	if req.DoctorID != nil {
		a.DoctorID = req.DoctorID
	}
	if req.Date != nil {
		date, err := model.ParseDate(*req.Date)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		a.Date = date
	}
	if req.StartTime != nil {
		a.StartTime = *req.StartTime
	}
	if req.Duration != nil {
		a.Duration = *req.Duration
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if err := checkShape(a); err != nil {
		return nil, err
	}
	if err := s.checkResources(ctx, a); err != nil {
		return nil, err
	}

	err = s.commit(ctx, a, &a.ID, func(tx repository.Tx) error {
		if err := tx.Appointments().Update(ctx, a); err != nil {
			return err
		}
		return s.emit(ctx, tx, model.EventAppointmentRescheduled, a)
	})
	s.record("update", err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus moves an appointment along its lifecycle. Cancelling or
// marking a no-show frees the interval immediately.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, req *model.UpdateStatusRequest) (*model.Appointment, error) {
	a, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(req.Status) {
		return nil, apperrors.Unprocessable(fmt.Sprintf("cannot change status from %s to %s", a.Status, req.Status), nil)
	}

	previous := a.Status
	a.Status = req.Status
	if req.Status == model.AppointmentStatusCancelled && req.Reason != "" {
		reason := req.Reason
		a.CancelReason = &reason
	}

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.Appointments().Update(ctx, a); err != nil {
			return err
		}
		return s.emit(ctx, tx, model.EventAppointmentStatusChanged, statusChange{Appointment: a, Previous: previous})
	})
	s.record("status", err)
	if err != nil {
		return nil, s.translate(ctx, a, nil, err)
	}
	s.logger.Info("appointment status changed", "appointment_id", a.ID.String(), "from", string(previous), "to", string(a.Status))
	return a, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.store.Appointments().Get(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	appointments, err := s.store.Appointments().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// commit runs write inside a transaction after locking a's resources and
// validating the slot against the locked state.
func (s *Service) commit(ctx context.Context, a *model.Appointment, exclude *uuid.UUID, write func(tx repository.Tx) error) error {
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.LockResources(ctx, a.TenantID, a.Date.Time, a.Resources()...); err != nil {
			return fmt.Errorf("failed to lock resources: %w", err)
		}
		if err := s.validate(ctx, tx, a, exclude); err != nil {
			return err
		}
		return write(tx)
	})
	if err != nil {
		return s.translate(ctx, a, exclude, err)
	}
	return nil
}

func (s *Service) validate(ctx context.Context, tx repository.Tx, a *model.Appointment, exclude *uuid.UUID) error {
	if !a.Status.Blocking() {
		return nil
	}
	result, err := s.conflicts.WithRepository(tx.Appointments()).CheckConflict(ctx, conflict.Query{
		TenantID:             a.TenantID,
		Date:                 a.Date.Time,
		StartTime:            a.StartTime,
		Duration:             a.Duration,
		StaffID:              a.StaffID,
		DoctorID:             a.DoctorID,
		ExcludeAppointmentID: exclude,
	})
	if err != nil {
		return err
	}
	if result.HasConflict {
		return &ConflictError{Result: result}
	}

	if a.DoctorID != nil {
		hours, err := s.calendar.CheckDoctorWorkingHours(ctx, a.TenantID, a.Date.Time, a.StartTime, a.Duration, *a.DoctorID)
		if err != nil {
			return err
		}
		if !hours.WithinSchedule {
			return &ScheduleError{Result: hours}
		}
	}
	return nil
}

// translate turns a storage overlap into a ConflictError, describing the
// colliding booking when it can still be found.
func (s *Service) translate(ctx context.Context, a *model.Appointment, exclude *uuid.UUID, err error) error {
	if !errors.Is(err, repository.ErrOverlap) {
		return err
	}
	result, checkErr := s.conflicts.CheckConflict(ctx, conflict.Query{
		TenantID:             a.TenantID,
		Date:                 a.Date.Time,
		StartTime:            a.StartTime,
		Duration:             a.Duration,
		StaffID:              a.StaffID,
		DoctorID:             a.DoctorID,
		ExcludeAppointmentID: exclude,
	})
	if checkErr != nil || !result.HasConflict {
		result = &model.ConflictResult{HasConflict: true, Message: err.Error()}
	}
	s.logger.Warn("booking lost race to concurrent write", "appointment_id", a.ID.String())
	return &ConflictError{Result: result}
}

// checkShape rejects bookings that hold no resource or that do not fit inside
// their own day.
func checkShape(a *model.Appointment) error {
	if len(a.Resources()) == 0 {
		return apperrors.BadRequest("staff_id or doctor_id is required", nil)
	}
	if _, err := a.Interval(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	return nil
}

func (s *Service) checkResources(ctx context.Context, a *model.Appointment) error {
	for _, ref := range a.Resources() {
		res, err := s.store.Resources().Get(ctx, a.TenantID, ref.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound(string(ref.Kind), err)
		}
		if err != nil {
			return fmt.Errorf("failed to get resource: %w", err)
		}
		if res.Kind != ref.Kind {
			return apperrors.BadRequest(fmt.Sprintf("resource %s is a %s, not a %s", res.ID, res.Kind, ref.Kind), nil)
		}
		if !res.Active {
			return apperrors.Unprocessable(fmt.Sprintf("%s %s is not active", ref.Kind, res.Name), nil)
		}
	}
	return nil
}

type statusChange struct {
	*model.Appointment
	Previous model.AppointmentStatus `json:"previous_status"`
}

func (s *Service) emit(ctx context.Context, tx repository.Tx, eventType string, payload interface{}) error {
	var aggregate, tenant uuid.UUID
	switch p := payload.(type) {
	case *model.Appointment:
		aggregate, tenant = p.ID, p.TenantID
	case statusChange:
		aggregate, tenant = p.ID, p.TenantID
	}
	event, err := model.NewOutboxEvent(eventType, tenant, aggregate, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	if err := tx.Outbox().Create(ctx, event); err != nil {
		return fmt.Errorf("failed to store %s event: %w", eventType, err)
	}
	return nil
}

func (s *Service) record(operation string, err error) {
	var (
		conflictErr *ConflictError
		scheduleErr *ScheduleError
	)
	switch {
	case err == nil:
		s.metrics.Booking(operation, "ok")
	case errors.As(err, &conflictErr):
		s.metrics.Booking(operation, "conflict")
	case errors.As(err, &scheduleErr):
		s.metrics.Booking(operation, "outside_hours")
	default:
		s.metrics.Booking(operation, "error")
	}
}
