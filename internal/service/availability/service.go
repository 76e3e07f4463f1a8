// Package availability answers which (time, resource) pairs can still be
// booked and which dates the business is open.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

var tracer = otel.Tracer("scheduling/availability")

type Config struct {
	Granularity int
	HorizonDays int
	// HidePastSlots drops today's slots that start before the current time.
	HidePastSlots bool
	Location      *time.Location
}

// SlotQuery selects the service length and, optionally, narrows the
// resources considered. ServiceID, when set, supplies the duration.
type SlotQuery struct {
	TenantID   uuid.UUID
	Date       time.Time
	Duration   int
	ServiceID  *uuid.UUID
	ResourceID *uuid.UUID
	Kind       *model.ResourceKind
}

type Service struct {
	calendar     *calendar.Service
	resources    repository.ResourceRepository
	services     repository.ServiceRepository
	appointments repository.AppointmentRepository
	cfg          Config
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(cal *calendar.Service, store repository.Store, cfg Config, m *metrics.Metrics) *Service {
	if cfg.Granularity <= 0 {
		cfg.Granularity = scheduling.DefaultGranularity
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		calendar:     cal,
		resources:    store.Resources(),
		services:     store.Services(),
		appointments: store.Appointments(),
		cfg:          cfg,
		metrics:      m,
		now:          time.Now,
	}
}

// SetClock replaces the time source used for "today".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetAvailableSlots lists every free slot of the requested length on a date,
// ordered by start time and then resource name. A closed day or a service
// longer than every window yields an empty list.
func (s *Service) GetAvailableSlots(ctx context.Context, q SlotQuery) ([]*model.TimeSlot, error) {
	ctx, span := tracer.Start(ctx, "availability.slots", trace.WithAttributes(
		attribute.String("tenant_id", q.TenantID.String()),
		attribute.String("date", q.Date.Format(scheduling.DateLayout)),
	))
	defer span.End()
	started := time.Now()

	duration, err := s.duration(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	date := scheduling.DateOf(q.Date)

	plan, err := s.calendar.Plan(ctx, q.TenantID, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !plan.BusinessOpen() {
		s.metrics.ObserveSlots(0, time.Since(started).Seconds())
		return []*model.TimeSlot{}, nil
	}

	var (
		resources []*model.Resource
		booked    []*model.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resources, err = s.candidates(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		booked, err = s.appointments.ListBlockingForDate(gctx, q.TenantID, date)
		if err != nil {
			return fmt.Errorf("failed to list appointments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	busy := busyByResource(booked)
	notBefore := s.cutoff(date)

	slots := make([]*model.TimeSlot, 0)
	for _, res := range resources {
		w := plan.Window(&res.ID)
		if !w.Open {
			continue
		}
		for _, iv := range scheduling.WalkSlots(w, duration, s.cfg.Granularity, busy[res.ID], notBefore) {
			slots = append(slots, &model.TimeSlot{
				Date:         model.NewDate(date),
				StartTime:    scheduling.ToWallClock(iv.Start),
				EndTime:      scheduling.ToWallClock(iv.End),
				ResourceID:   res.ID,
				ResourceName: res.Name,
				ResourceKind: res.Kind,
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.ResourceName != b.ResourceName {
			return a.ResourceName < b.ResourceName
		}
		return a.ResourceID.String() < b.ResourceID.String()
	})

	span.SetAttributes(attribute.Int("slots", len(slots)))
	s.metrics.ObserveSlots(len(slots), time.Since(started).Seconds())
	return slots, nil
}

// GetAvailableDates lists the dates within the horizon, starting today, on
// which the business is open. It does not check that any slot is free.
func (s *Service) GetAvailableDates(ctx context.Context, tenantID uuid.UUID, horizonDays int) ([]model.Date, error) {
	if horizonDays <= 0 {
		horizonDays = s.cfg.HorizonDays
	}
	days, err := s.calendar.BusinessCalendar(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	open := make(map[int]bool, len(days))
	for _, d := range days {
		h, err := d.Hours()
		if err != nil {
			continue
		}
		open[d.DayIndex] = scheduling.ResolveWindow(h, nil).Open
	}

	week := s.calendar.Week()
	today := scheduling.DateOf(s.now().In(s.cfg.Location))
	dates := make([]model.Date, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		d := today.AddDate(0, 0, i)
		if open[week.Index(d)] {
			dates = append(dates, model.NewDate(d))
		}
	}
	return dates, nil
}

func (s *Service) duration(ctx context.Context, q SlotQuery) (int, error) {
	if q.ServiceID == nil {
		if q.Duration <= 0 {
			return 0, apperrors.BadRequest("duration or service_id is required", nil)
		}
		return q.Duration, nil
	}
	svc, err := s.services.Get(ctx, q.TenantID, *q.ServiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperrors.NotFound("service", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get service: %w", err)
	}
	if !svc.Active {
		return 0, apperrors.BadRequest("service is not active", nil)
	}
	return svc.Duration, nil
}

func (s *Service) candidates(ctx context.Context, q SlotQuery) ([]*model.Resource, error) {
	if q.ResourceID != nil {
		res, err := s.resources.Get(ctx, q.TenantID, *q.ResourceID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("resource", err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get resource: %w", err)
		}
		if !res.Active || (q.Kind != nil && res.Kind != *q.Kind) {
			return nil, nil
		}
		return []*model.Resource{res}, nil
	}
	resources, err := s.resources.ListActive(ctx, q.TenantID, q.Kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

// cutoff is the earliest minute a slot may start on date.
func (s *Service) cutoff(date time.Time) int {
	if !s.cfg.HidePastSlots {
		return 0
	}
	now := s.now().In(s.cfg.Location)
	today := scheduling.DateOf(now)
	switch {
	case date.Before(today):
		return scheduling.MinutesPerDay
	case date.Equal(today):
		return now.Hour()*60 + now.Minute() + 1
	}
	return 0
}

func busyByResource(appointments []*model.Appointment) map[uuid.UUID][]scheduling.Interval {
	busy := make(map[uuid.UUID][]scheduling.Interval)
	for _, a := range appointments {
		iv, err := a.Interval()
		if err != nil {
			continue
		}
		for _, ref := range a.Resources() {
			busy[ref.ID] = append(busy[ref.ID], iv)
		}
	}
	for id := range busy {
		sort.Slice(busy[id], func(i, j int) bool { return busy[id][i].Start < busy[id][j].Start })
	}
	return busy
}
