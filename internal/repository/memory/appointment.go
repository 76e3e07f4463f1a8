package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

type appointmentRepo Store

func (r *appointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.Touch(time.Now().UTC())
	if r.overlapsLocked(a) {
		return repository.ErrOverlap
	}
	cp := *a
	r.appointments[a.ID] = &cp
	return nil
}

func (r *appointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.appointments[a.ID]
	if !ok || existing.TenantID != a.TenantID {
		return repository.ErrNotFound
	}
	if r.overlapsLocked(a) {
		return repository.ErrOverlap
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	r.appointments[a.ID] = &cp
	return nil
}

// overlapsLocked mirrors the exclusion constraints: a blocking appointment may
// not share a minute with another blocking appointment of the same resource.
func (r *appointmentRepo) overlapsLocked(a *model.Appointment) bool {
	if !a.Status.Blocking() {
		return false
	}
	iv, err := a.Interval()
	if err != nil {
		return false
	}
	for _, other := range r.appointments {
		if other.ID == a.ID || other.TenantID != a.TenantID || !other.Status.Blocking() {
			continue
		}
		if !other.Date.Equal(a.Date.Time) {
			continue
		}
		shared := false
		for _, ref := range a.Resources() {
			if other.Holds(ref) {
				shared = true
				break
			}
		}
		if !shared {
			continue
		}
		otherIv, err := other.Interval()
		if err == nil && iv.Overlaps(otherIv) {
			return true
		}
	}
	return false
}

func (r *appointmentRepo) Get(_ context.Context, tenantID, id uuid.UUID) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok || a.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *appointmentRepo) List(_ context.Context, f model.AppointmentFilter) ([]*model.Appointment, error) {
	return r.collect(func(a *model.Appointment) bool {
		if a.TenantID != f.TenantID {
			return false
		}
		if f.Date != nil && !a.Date.Equal(f.Date.Time) {
			return false
		}
		if f.ResourceID != nil && !a.Holds(model.ResourceRef{Kind: model.ResourceKindStaff, ID: *f.ResourceID}) &&
			!a.Holds(model.ResourceRef{Kind: model.ResourceKindDoctor, ID: *f.ResourceID}) {
			return false
		}
		if f.GroupID != nil && (a.GroupID == nil || *a.GroupID != *f.GroupID) {
			return false
		}
		return f.Status == "" || a.Status == f.Status
	}), nil
}

func (r *appointmentRepo) ListBlockingForResource(_ context.Context, tenantID uuid.UUID, ref model.ResourceRef, date time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error) {
	day := model.NewDate(date)
	return r.collect(func(a *model.Appointment) bool {
		if excludeID != nil && a.ID == *excludeID {
			return false
		}
		return a.TenantID == tenantID && a.Status.Blocking() && a.Date.Equal(day.Time) && a.Holds(ref)
	}), nil
}

func (r *appointmentRepo) ListBlockingForDate(_ context.Context, tenantID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	day := model.NewDate(date)
	return r.collect(func(a *model.Appointment) bool {
		return a.TenantID == tenantID && a.Status.Blocking() && a.Date.Equal(day.Time)
	}), nil
}

func (r *appointmentRepo) collect(keep func(*model.Appointment) bool) []*model.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Appointment
	for _, a := range r.appointments {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

type outboxRepo Store

func (r *outboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = model.OutboxStatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UpdatedAt = time.Now().UTC()
	if _, exists := r.outbox[e.ID]; !exists {
		r.outboxSeq = append(r.outboxSeq, e.ID)
	}
	cp := *e
	r.outbox[e.ID] = &cp
	return nil
}

func (r *outboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var out []*model.OutboxEvent
	for _, id := range r.outboxSeq {
		e := r.outbox[id]
		if e.Status != model.OutboxStatusPending || (e.RetryAt != nil && e.RetryAt.After(now)) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status = model.OutboxStatusProcessed
	e.ErrorMessage = nil
	e.ProcessedAt = &now
	e.UpdatedAt = now
	return nil
}

func (r *outboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = model.OutboxStatusPending
	if retryAt == nil {
		e.Status = model.OutboxStatusFailed
	}
	e.ErrorMessage = &errMsg
	e.RetryAt = retryAt
	e.RetryCount++
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.outboxSeq[:0]
	for _, id := range r.outboxSeq {
		e := r.outbox[id]
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.outbox, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	r.outboxSeq = kept
	return n, nil
}
