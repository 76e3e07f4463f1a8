package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

// CheckDoctorWorkingHours reports whether [startTime, startTime+duration)
// lies inside the doctor's resolved window on date. When the doctor works that
// day the window is returned even on refusal so callers can explain it; on a
// day off there is no schedule.
func (s *Service) CheckDoctorWorkingHours(ctx context.Context, tenantID uuid.UUID, date time.Time, startTime string, duration int, doctorID uuid.UUID) (*model.WorkingHoursResult, error) {
	iv, err := scheduling.NewInterval(startTime, duration)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	plan, err := s.Plan(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	return plan.WorkingHours(doctorID, iv), nil
}

// WorkingHours is CheckDoctorWorkingHours against an already loaded plan.
func (p *DayPlan) WorkingHours(doctorID uuid.UUID, iv scheduling.Interval) *model.WorkingHoursResult {
	w := p.Window(&doctorID)
	if !w.Open {
		return &model.WorkingHoursResult{WithinSchedule: false}
	}
	return &model.WorkingHoursResult{
		WithinSchedule: w.Contains(iv),
		Schedule:       model.NewDayWindow(model.NewDate(p.Date), p.DayIndex, &doctorID, w),
	}
}
