// Package memory is an in-process repository.Store. It enforces the same
// double-booking rule as the database constraint and backs the "memory"
// storage driver and service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

type overrideKey struct {
	tenantID   uuid.UUID
	resourceID uuid.UUID
	dayIndex   int
}

type Store struct {
	// txMu serializes write transactions; mu guards the maps.
	txMu sync.Mutex
	mu   sync.RWMutex

	businessDays map[uuid.UUID][]*model.BusinessDay
	overrides    map[overrideKey]*model.ScheduleOverride
	resources    map[uuid.UUID]*model.Resource
	services     map[uuid.UUID]*model.Service
	appointments map[uuid.UUID]*model.Appointment
	rules        map[uuid.UUID]*model.RecurrenceRule
	outbox       map[uuid.UUID]*model.OutboxEvent
	// outboxSeq keeps events in insertion order.
	outboxSeq []uuid.UUID
}

func NewStore() *Store {
	return &Store{
		businessDays: make(map[uuid.UUID][]*model.BusinessDay),
		overrides:    make(map[overrideKey]*model.ScheduleOverride),
		resources:    make(map[uuid.UUID]*model.Resource),
		services:     make(map[uuid.UUID]*model.Service),
		appointments: make(map[uuid.UUID]*model.Appointment),
		rules:        make(map[uuid.UUID]*model.RecurrenceRule),
		outbox:       make(map[uuid.UUID]*model.OutboxEvent),
	}
}

func (s *Store) Calendar() repository.CalendarRepository {
	return (*calendarRepo)(s)
}

func (s *Store) Resources() repository.ResourceRepository {
	return (*resourceRepo)(s)
}

func (s *Store) Services() repository.ServiceRepository {
	return (*serviceRepo)(s)
}

func (s *Store) Appointments() repository.AppointmentRepository {
	return (*appointmentRepo)(s)
}

func (s *Store) Recurrences() repository.RecurrenceRepository {
	return (*recurrenceRepo)(s)
}

func (s *Store) Outbox() repository.OutboxRepository {
	return (*outboxRepo)(s)
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// WithTx runs fn while holding the store-wide write lock. Writes made before
// fn fails are not rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

// LockResources is a no-op: WithTx already serializes writers.
func (s *Store) LockResources(context.Context, uuid.UUID, time.Time, ...model.ResourceRef) error {
	return nil
}

// AddResource seeds a bookable resource.
func (s *Store) AddResource(r *model.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Touch(time.Now().UTC())
	cp := *r
	s.resources[r.ID] = &cp
}

// AddService seeds a catalog entry.
func (s *Store) AddService(svc *model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc.Touch(time.Now().UTC())
	cp := *svc
	s.services[svc.ID] = &cp
}

// Events returns a copy of every outbox event, oldest first.
func (s *Store) Events() []*model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.OutboxEvent, 0, len(s.outbox))
	for _, id := range s.outboxSeq {
		cp := *s.outbox[id]
		out = append(out, &cp)
	}
	return out
}

type calendarRepo Store

func (r *calendarRepo) GetBusinessDays(_ context.Context, tenantID uuid.UUID) ([]*model.BusinessDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	days := r.businessDays[tenantID]
	out := make([]*model.BusinessDay, len(days))
	for i, d := range days {
		cp := *d
		out[i] = &cp
	}
	return out, nil
}

func (r *calendarRepo) ReplaceBusinessDays(_ context.Context, tenantID uuid.UUID, days []*model.BusinessDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := make([]*model.BusinessDay, len(days))
	for i, d := range days {
		cp := *d
		cp.TenantID = tenantID
		stored[i] = &cp
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].DayIndex < stored[j].DayIndex })
	r.businessDays[tenantID] = stored
	return nil
}

func (r *calendarRepo) ListOverrides(_ context.Context, tenantID, resourceID uuid.UUID) ([]*model.ScheduleOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.ScheduleOverride
	for k, o := range r.overrides {
		if k.tenantID == tenantID && k.resourceID == resourceID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayIndex < out[j].DayIndex })
	return out, nil
}

func (r *calendarRepo) ListOverridesForDay(_ context.Context, tenantID uuid.UUID, dayIndex int) ([]*model.ScheduleOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.ScheduleOverride
	for k, o := range r.overrides {
		if k.tenantID == tenantID && k.dayIndex == dayIndex {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *calendarRepo) UpsertOverride(_ context.Context, o *model.ScheduleOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := overrideKey{tenantID: o.TenantID, resourceID: o.ResourceID, dayIndex: o.DayIndex}
	if existing, ok := r.overrides[key]; ok {
		o.ID = existing.ID
		o.CreatedAt = existing.CreatedAt
	}
	o.Touch(time.Now().UTC())
	cp := *o
	r.overrides[key] = &cp
	return nil
}

func (r *calendarRepo) DeleteOverride(_ context.Context, tenantID, resourceID uuid.UUID, dayIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := overrideKey{tenantID: tenantID, resourceID: resourceID, dayIndex: dayIndex}
	if _, ok := r.overrides[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.overrides, key)
	return nil
}

type resourceRepo Store

func (r *resourceRepo) Get(_ context.Context, tenantID, id uuid.UUID) (*model.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[id]
	if !ok || res.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *resourceRepo) ListActive(_ context.Context, tenantID uuid.UUID, kind *model.ResourceKind) ([]*model.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Resource
	for _, res := range r.resources {
		if res.TenantID != tenantID || !res.Active {
			continue
		}
		if kind != nil && res.Kind != *kind {
			continue
		}
		cp := *res
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

type serviceRepo Store

func (r *serviceRepo) Get(_ context.Context, tenantID, id uuid.UUID) (*model.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	if !ok || svc.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

type recurrenceRepo Store

func (r *recurrenceRepo) Create(_ context.Context, rule *model.RecurrenceRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.Touch(time.Now().UTC())
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}
