package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrOverlap is returned when a write would double-book a resource.
	ErrOverlap = errors.New("appointment overlaps an existing booking")
)

type CalendarRepository interface {
	GetBusinessDays(ctx context.Context, tenantID uuid.UUID) ([]*model.BusinessDay, error)
	ReplaceBusinessDays(ctx context.Context, tenantID uuid.UUID, days []*model.BusinessDay) error
	ListOverrides(ctx context.Context, tenantID, resourceID uuid.UUID) ([]*model.ScheduleOverride, error)
	ListOverridesForDay(ctx context.Context, tenantID uuid.UUID, dayIndex int) ([]*model.ScheduleOverride, error)
	UpsertOverride(ctx context.Context, override *model.ScheduleOverride) error
	DeleteOverride(ctx context.Context, tenantID, resourceID uuid.UUID, dayIndex int) error
}

type ResourceRepository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Resource, error)
	ListActive(ctx context.Context, tenantID uuid.UUID, kind *model.ResourceKind) ([]*model.Resource, error)
}

type ServiceRepository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Service, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Update(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error)
	// ListBlockingForResource returns the resource's non-cancelled, non-no-show
	// appointments on date, skipping excludeID when set.
	ListBlockingForResource(ctx context.Context, tenantID uuid.UUID, ref model.ResourceRef, date time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error)
	ListBlockingForDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]*model.Appointment, error)
}

type RecurrenceRepository interface {
	Create(ctx context.Context, rule *model.RecurrenceRule) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Tx is the write scope of a booking. Resource locks are held until the
// transaction ends.
type Tx interface {
	Appointments() AppointmentRepository
	Recurrences() RecurrenceRepository
	Outbox() OutboxRepository
	LockResources(ctx context.Context, tenantID uuid.UUID, date time.Time, refs ...model.ResourceRef) error
}

// Store bundles the repositories of one storage backend.
type Store interface {
	Calendar() CalendarRepository
	Resources() ResourceRepository
	Services() ServiceRepository
	Appointments() AppointmentRepository
	Outbox() OutboxRepository
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
