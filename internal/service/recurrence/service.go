// Package recurrence expands a repeating appointment into a series, booking
// each occurrence that fits and reporting the rest as skipped.
package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/appointment"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

type Service struct {
	store          repository.Store
	calendar       *calendar.Service
	appointments   *appointment.Service
	maxOccurrences int
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

func NewService(store repository.Store, cal *calendar.Service, appointments *appointment.Service, maxOccurrences int, m *metrics.Metrics, log *logger.Logger) *Service {
	if maxOccurrences <= 0 {
		maxOccurrences = scheduling.DefaultMaxOccurrences
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:          store,
		calendar:       cal,
		appointments:   appointments,
		maxOccurrences: maxOccurrences,
		metrics:        m,
		logger:         log,
	}
}

// Expand books one appointment per generated date. A date is skipped when the
// business is closed, a resource is already booked, or the doctor does not
// work the requested interval. Skips never fail the series.
func (s *Service) Expand(ctx context.Context, tenantID uuid.UUID, req *model.RecurrenceRequest) (*model.RecurrenceResult, error) {
	rule, err := s.rule(tenantID, req)
	if err != nil {
		return nil, err
	}
	template, err := s.appointments.Build(ctx, tenantID, &req.Appointment)
	if err != nil {
		return nil, err
	}
	rule.StartDate = template.Date
	if rule.EndDate != nil && rule.EndDate.Before(rule.StartDate.Time) {
		return nil, apperrors.BadRequest("end_date must not be before the first appointment date", nil)
	}

	dates, truncated := scheduling.ExpandDates(template.Date.Time, rule.Rule(), s.maxOccurrences)
	result := &model.RecurrenceResult{
		GroupID:   rule.GroupID,
		Created:   make([]*model.Appointment, 0, len(dates)),
		Skipped:   make([]model.SkippedOccurrence, 0),
		Truncated: truncated,
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			s.interrupted(rule, result, err)
			return nil, err
		}
		occurrence := *template
		occurrence.Date = model.NewDate(date)
		occurrence.GroupID = &rule.GroupID

		skip, err := s.book(ctx, &occurrence)
		if err != nil {
			s.interrupted(rule, result, err)
			return nil, fmt.Errorf("occurrence %s: %w", occurrence.Date, err)
		}
		if skip != nil {
			s.metrics.Occurrence("skipped")
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		s.metrics.Occurrence("created")
		result.Created = append(result.Created, &occurrence)
	}

	result.CreatedCount = len(result.Created)
	result.SkippedCount = len(result.Skipped)
	result.GeneratedAt = time.Now().UTC()

	if result.CreatedCount > 0 {
		if err := s.persist(ctx, rule, result); err != nil {
			return nil, err
		}
	}
	if truncated {
		s.logger.Warn("recurrence truncated", "group_id", rule.GroupID.String(), "limit", s.maxOccurrences)
	}
	s.logger.Info("recurrence expanded",
		"group_id", rule.GroupID.String(),
		"created", result.CreatedCount,
		"skipped", result.SkippedCount,
	)
	return result, nil
}

// interrupted logs a series that failed after some occurrences were already
// committed. Those appointments keep their group id but no rule is stored.
func (s *Service) interrupted(rule *model.RecurrenceRule, result *model.RecurrenceResult, err error) {
	if len(result.Created) == 0 {
		return
	}
	s.logger.Error(err, "series interrupted after booking occurrences",
		"group_id", rule.GroupID.String(),
		"created", len(result.Created),
	)
}

// book returns a skip record when the date cannot be used, or nil once the
// occurrence is stored.
func (s *Service) book(ctx context.Context, a *model.Appointment) (*model.SkippedOccurrence, error) {
	plan, err := s.calendar.Plan(ctx, a.TenantID, a.Date.Time)
	if err != nil {
		return nil, err
	}
	if !plan.BusinessOpen() {
		return &model.SkippedOccurrence{Date: a.Date, Reason: model.SkipBusinessClosed}, nil
	}

	err = s.appointments.Book(ctx, a)
	var (
		conflictErr *appointment.ConflictError
		scheduleErr *appointment.ScheduleError
	)
	switch {
	case err == nil:
		return nil, nil
	case errors.As(err, &conflictErr):
		return &model.SkippedOccurrence{Date: a.Date, Reason: model.SkipResourceConflict, Conflict: conflictErr.Result}, nil
	case errors.As(err, &scheduleErr):
		return &model.SkippedOccurrence{Date: a.Date, Reason: model.SkipOutsideWorkingHours}, nil
	}
	return nil, err
}

func (s *Service) rule(tenantID uuid.UUID, req *model.RecurrenceRequest) (*model.RecurrenceRule, error) {
	rule := &model.RecurrenceRule{
		TenantID:    tenantID,
		GroupID:     uuid.New(),
		Frequency:   scheduling.Frequency(req.Frequency),
		Interval:    req.Interval,
		Occurrences: req.Occurrences,
	}
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if req.EndDate != nil {
		end, err := model.ParseDate(*req.EndDate)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		rule.EndDate = &end
	}
	if err := rule.Rule().Validate(); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	return rule, nil
}

func (s *Service) persist(ctx context.Context, rule *model.RecurrenceRule, result *model.RecurrenceResult) error {
	rule.ID = uuid.New()
	rule.Touch(time.Now().UTC())

	summary := struct {
		GroupID      uuid.UUID `json:"group_id"`
		CreatedCount int       `json:"created_count"`
		SkippedCount int       `json:"skipped_count"`
		Truncated    bool      `json:"truncated"`
	}{rule.GroupID, result.CreatedCount, result.SkippedCount, result.Truncated}

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.Recurrences().Create(ctx, rule); err != nil {
			return fmt.Errorf("failed to store recurrence rule: %w", err)
		}
		event, err := model.NewOutboxEvent(model.EventAppointmentSeriesCreated, rule.TenantID, rule.GroupID, summary)
		if err != nil {
			return err
		}
		return tx.Outbox().Create(ctx, event)
	})
	if err != nil {
		s.logger.Error(err, "series booked but rule not stored", "group_id", rule.GroupID.String())
		return err
	}
	return nil
}
