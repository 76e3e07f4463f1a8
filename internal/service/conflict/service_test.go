package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

var day = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func book(t *testing.T, store *memory.Store, tenant uuid.UUID, staff, doctor *uuid.UUID, start string, dur int, status model.AppointmentStatus, service string) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		Base:        model.Base{ID: uuid.New()},
		TenantID:    tenant,
		StaffID:     staff,
		DoctorID:    doctor,
		ServiceName: service,
		Date:        model.NewDate(day),
		StartTime:   start,
		Duration:    dur,
		Status:      status,
	}
	require.NoError(t, store.Appointments().Create(context.Background(), a))
	return a
}

func TestCheckConflict(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	staff := uuid.New()
	doctor := uuid.New()

	store := memory.NewStore()
	svc := NewService(store.Appointments(), nil)

	haircut := book(t, store, tenant, &staff, nil, "10:00", 30, model.AppointmentStatusConfirmed, "Haircut")
	book(t, store, tenant, &staff, nil, "12:00", 60, model.AppointmentStatusCancelled, "Color")
	book(t, store, tenant, &staff, nil, "14:00", 60, model.AppointmentStatusNoShow, "Beard")
	checkup := book(t, store, tenant, nil, &doctor, "11:00", 45, model.AppointmentStatusPending, "")

	t.Run("adjacent intervals do not collide", func(t *testing.T) {
		res, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "10:30", Duration: 30, StaffID: &staff})
		require.NoError(t, err)
		assert.False(t, res.HasConflict)

		res, err = svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "09:30", Duration: 30, StaffID: &staff})
		require.NoError(t, err)
		assert.False(t, res.HasConflict)
	})

	t.Run("staff overlap reports time and service", func(t *testing.T) {
		res, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "10:15", Duration: 30, StaffID: &staff})
		require.NoError(t, err)
		require.True(t, res.HasConflict)
		assert.Equal(t, model.ResourceKindStaff, res.Kind)
		assert.Equal(t, haircut.ID, res.Conflicting.ID)
		assert.Equal(t, "10:00", res.Conflicting.StartTime)
		assert.Equal(t, "10:30", res.Conflicting.EndTime)
		assert.Equal(t, "staff member is already booked at 10:00-10:30 (Haircut)", res.Message)
	})

	t.Run("cancelled and no-show free their time", func(t *testing.T) {
		res, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "12:00", Duration: 180, StaffID: &staff})
		require.NoError(t, err)
		assert.False(t, res.HasConflict)
	})

	t.Run("doctor checked separately", func(t *testing.T) {
		res, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "11:30", Duration: 15, StaffID: &staff, DoctorID: &doctor})
		require.NoError(t, err)
		require.True(t, res.HasConflict)
		assert.Equal(t, model.ResourceKindDoctor, res.Kind)
		assert.Equal(t, checkup.ID, res.Conflicting.ID)
		assert.Contains(t, res.Message, "doctor is already booked at 11:00-11:45 (another appointment)")
	})

	t.Run("staff wins when both collide", func(t *testing.T) {
		res, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "10:00", Duration: 90, StaffID: &staff, DoctorID: &doctor})
		require.NoError(t, err)
		require.True(t, res.HasConflict)
		assert.Equal(t, model.ResourceKindStaff, res.Kind)
	})

	t.Run("excluded appointment is ignored", func(t *testing.T) {
		res, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "10:15", Duration: 30, StaffID: &staff, ExcludeAppointmentID: &haircut.ID})
		require.NoError(t, err)
		assert.False(t, res.HasConflict)
	})

	t.Run("other tenants are invisible", func(t *testing.T) {
		res, err := svc.CheckConflict(ctx, Query{TenantID: uuid.New(), Date: day, StartTime: "10:00", Duration: 30, StaffID: &staff})
		require.NoError(t, err)
		assert.False(t, res.HasConflict)
	})

	t.Run("malformed start time", func(t *testing.T) {
		_, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "9:00", Duration: 30, StaffID: &staff})
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})

	t.Run("no resource to check", func(t *testing.T) {
		_, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "10:00", Duration: 30})
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})

	t.Run("past midnight", func(t *testing.T) {
		_, err := svc.CheckConflict(ctx, Query{TenantID: tenant, Date: day, StartTime: "23:30", Duration: 60, StaffID: &staff})
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})
}
