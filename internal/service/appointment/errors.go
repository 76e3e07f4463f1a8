package appointment

import (
	"github.com/jwalitptl/scheduling-api/internal/model"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

// ConflictError refuses a write that would double-book a resource.
type ConflictError struct {
	Result *model.ConflictResult
}

func (e *ConflictError) Error() string {
	if e.Result == nil || e.Result.Message == "" {
		return "appointment overlaps an existing booking"
	}
	return e.Result.Message
}

// AppError renders a 409 carrying the conflict verdict.
func (e *ConflictError) AppError() *apperrors.AppError {
	return apperrors.Conflict(e.Error(), nil).WithDetails(e.Result)
}

// ScheduleError refuses a write that falls outside the doctor's working
// hours. Result.Schedule is nil when the doctor does not work that day.
type ScheduleError struct {
	Result *model.WorkingHoursResult
}

func (e *ScheduleError) Error() string {
	if e.Result == nil || e.Result.Schedule == nil {
		return "doctor is not working that day"
	}
	return "outside working hours, doctor works " + e.Result.Schedule.StartTime + "-" + e.Result.Schedule.EndTime
}

// AppError renders a 422 carrying the doctor's schedule.
func (e *ScheduleError) AppError() *apperrors.AppError {
	return apperrors.Unprocessable(e.Error(), nil).WithDetails(e.Result)
}
