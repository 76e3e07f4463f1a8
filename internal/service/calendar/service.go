// Package calendar owns a tenant's weekly business hours and per-resource
// overrides, and resolves them into the working window of a date.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

type Service struct {
	repo      repository.CalendarRepository
	resources repository.ResourceRepository
	week      scheduling.WeekConvention
	cache     *cache.Cache
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCacheTTL keeps business calendars in memory for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl <= 0 {
			s.cache = nil
			return
		}
		s.cache = cache.New(ttl, 2*ttl)
	}
}

func NewService(repo repository.CalendarRepository, resources repository.ResourceRepository, week scheduling.WeekConvention, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		resources: resources,
		week:      week,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Week returns the day index convention used for calendars and overrides.
func (s *Service) Week() scheduling.WeekConvention {
	return s.week
}

// BusinessCalendar returns the tenant's seven business days ordered by index.
// Tenants that never stored hours get the default calendar.
func (s *Service) BusinessCalendar(ctx context.Context, tenantID uuid.UUID) ([]*model.BusinessDay, error) {
	key := tenantID.String()
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.CacheLookup(true)
			return cached.([]*model.BusinessDay), nil
		}
		s.metrics.CacheLookup(false)
	}

	days, err := s.repo.GetBusinessDays(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get business hours: %w", err)
	}
	if len(days) == 0 {
		days = model.DefaultBusinessCalendar(tenantID)
	}

	if s.cache != nil {
		s.cache.SetDefault(key, days)
	}
	return days, nil
}

// ReplaceBusinessCalendar swaps all seven days at once.
func (s *Service) ReplaceBusinessCalendar(ctx context.Context, tenantID uuid.UUID, days []*model.BusinessDay) error {
	if err := model.ValidateBusinessCalendar(days); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	for _, d := range days {
		d.TenantID = tenantID
	}
	if err := s.repo.ReplaceBusinessDays(ctx, tenantID, days); err != nil {
		return fmt.Errorf("failed to replace business hours: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(tenantID.String())
	}
	s.logger.Info("business calendar replaced", "tenant_id", tenantID.String())
	return nil
}

func (s *Service) ListOverrides(ctx context.Context, tenantID, resourceID uuid.UUID) ([]*model.ScheduleOverride, error) {
	if _, err := s.resource(ctx, tenantID, resourceID); err != nil {
		return nil, err
	}
	overrides, err := s.repo.ListOverrides(ctx, tenantID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	return overrides, nil
}

// UpsertOverride stores the resource's hours for one day index, replacing any
// previous override for that day.
func (s *Service) UpsertOverride(ctx context.Context, tenantID, resourceID uuid.UUID, dayIndex int, req *model.UpsertOverrideRequest) (*model.ScheduleOverride, error) {
	if dayIndex < 0 || dayIndex >= model.DaysPerWeek {
		return nil, apperrors.BadRequest(fmt.Sprintf("day index must be between 0 and %d", model.DaysPerWeek-1), nil)
	}
	if _, err := s.resource(ctx, tenantID, resourceID); err != nil {
		return nil, err
	}

	o := &model.ScheduleOverride{
		TenantID:    tenantID,
		ResourceID:  resourceID,
		DayIndex:    dayIndex,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable != nil && *req.IsAvailable,
	}
	hours, err := o.Hours()
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	if hours.Available && hours.Start >= hours.End {
		return nil, apperrors.BadRequest("start_time must be before end_time", nil)
	}

	o.ID = uuid.New()
	if err := s.repo.UpsertOverride(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save override: %w", err)
	}
	return o, nil
}

func (s *Service) DeleteOverride(ctx context.Context, tenantID, resourceID uuid.UUID, dayIndex int) error {
	err := s.repo.DeleteOverride(ctx, tenantID, resourceID, dayIndex)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("override", err)
	}
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// ResolveDayWindow answers when work can happen on date. Without a resource
// only business hours apply.
func (s *Service) ResolveDayWindow(ctx context.Context, tenantID uuid.UUID, date time.Time, resourceID *uuid.UUID) (*model.DayWindow, error) {
	plan, err := s.Plan(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	return plan.DayWindow(resourceID), nil
}

func (s *Service) resource(ctx context.Context, tenantID, id uuid.UUID) (*model.Resource, error) {
	res, err := s.resources.Get(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("resource", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return res, nil
}
