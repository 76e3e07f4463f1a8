// Package conflict detects double bookings of staff members and doctors.
package conflict

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// Query describes a proposed booking. At least one of StaffID and DoctorID
// must be set.
type Query struct {
	TenantID             uuid.UUID
	Date                 time.Time
	StartTime            string
	Duration             int
	StaffID              *uuid.UUID
	DoctorID             *uuid.UUID
	ExcludeAppointmentID *uuid.UUID
}

func (q Query) refs() []model.ResourceRef {
	var refs []model.ResourceRef
	if q.StaffID != nil {
		refs = append(refs, model.ResourceRef{Kind: model.ResourceKindStaff, ID: *q.StaffID})
	}
	if q.DoctorID != nil {
		refs = append(refs, model.ResourceRef{Kind: model.ResourceKindDoctor, ID: *q.DoctorID})
	}
	return refs
}

type Service struct {
	repo    repository.AppointmentRepository
	metrics *metrics.Metrics
}

func NewService(repo repository.AppointmentRepository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m}
}

// WithRepository returns a copy that reads through repo, typically the
// appointment repository of an open transaction.
func (s *Service) WithRepository(repo repository.AppointmentRepository) *Service {
	return &Service{repo: repo, metrics: s.metrics}
}

// CheckConflict looks for a blocking appointment overlapping the proposed
// interval. The staff member is checked before the doctor and the earliest
// overlapping appointment of the first conflicting resource is reported.
func (s *Service) CheckConflict(ctx context.Context, q Query) (*model.ConflictResult, error) {
	iv, err := scheduling.NewInterval(q.StartTime, q.Duration)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	refs := q.refs()
	if len(refs) == 0 {
		return nil, apperrors.BadRequest("staff_id or doctor_id is required", nil)
	}
	date := scheduling.DateOf(q.Date)

	for _, ref := range refs {
		existing, err := s.repo.ListBlockingForResource(ctx, q.TenantID, ref, date, q.ExcludeAppointmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s appointments: %w", ref.Kind, err)
		}
		if hit := firstOverlap(existing, iv); hit != nil {
			s.metrics.ConflictDetected(string(ref.Kind))
			return model.NewConflict(ref.Kind, hit), nil
		}
	}
	return &model.ConflictResult{HasConflict: false}, nil
}

func firstOverlap(existing []*model.Appointment, iv scheduling.Interval) *model.Appointment {
	sort.SliceStable(existing, func(i, j int) bool { return existing[i].StartTime < existing[j].StartTime })
	for _, a := range existing {
		other, err := a.Interval()
		if err != nil {
			continue
		}
		if iv.Overlaps(other) {
			return a
		}
	}
	return nil
}
