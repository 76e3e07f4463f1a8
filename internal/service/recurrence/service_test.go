package recurrence

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/appointment"
	"github.com/jwalitptl/scheduling-api/internal/service/calendar"
	"github.com/jwalitptl/scheduling-api/internal/service/conflict"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

type fixture struct {
	store        *memory.Store
	cal          *calendar.Service
	appointments *appointment.Service
	svc          *Service
	tenant       uuid.UUID
	staff        *model.Resource
	doctor       *model.Resource
}

func newFixture(t *testing.T, maxOccurrences int) *fixture {
	t.Helper()
	store := memory.NewStore()
	cal := calendar.NewService(store.Calendar(), store.Resources(), scheduling.DefaultWeekConvention)
	appointments := appointment.NewService(store, cal, conflict.NewService(store.Appointments(), nil), nil, nil)
	tenant := uuid.New()
	f := &fixture{
		store:        store,
		cal:          cal,
		appointments: appointments,
		svc:          NewService(store, cal, appointments, maxOccurrences, nil, nil),
		tenant:       tenant,
		staff:        &model.Resource{Base: model.Base{ID: uuid.New()}, TenantID: tenant, Kind: model.ResourceKindStaff, Name: "Rana", Active: true},
		doctor:       &model.Resource{Base: model.Base{ID: uuid.New()}, TenantID: tenant, Kind: model.ResourceKindDoctor, Name: "Dr. Amal", Active: true},
	}
	store.AddResource(f.staff)
	store.AddResource(f.doctor)
	return f
}

// weekly returns a Monday 10:00 series request.
func (f *fixture) weekly(occurrences int) *model.RecurrenceRequest {
	return &model.RecurrenceRequest{
		Appointment: model.CreateAppointmentRequest{
			StaffID:     &f.staff.ID,
			DoctorID:    &f.doctor.ID,
			ServiceName: "Physio",
			Date:        "2026-10-19",
			StartTime:   "10:00",
			Duration:    45,
		},
		Frequency:   "weekly",
		Interval:    1,
		Occurrences: &occurrences,
	}
}

func dates(skipped []model.SkippedOccurrence) []string {
	out := make([]string, len(skipped))
	for i, s := range skipped {
		out[i] = s.Date.String()
	}
	return out
}

func TestExpandCreatesWholeSeries(t *testing.T) {
	f := newFixture(t, 0)
	res, err := f.svc.Expand(context.Background(), f.tenant, f.weekly(4))
	require.NoError(t, err)

	assert.Equal(t, 4, res.CreatedCount)
	assert.Equal(t, 0, res.SkippedCount)
	assert.Empty(t, res.Skipped)
	assert.False(t, res.Truncated)

	want := []string{"2026-10-19", "2026-10-26", "2026-11-02", "2026-11-09"}
	for i, a := range res.Created {
		assert.Equal(t, want[i], a.Date.String())
		require.NotNil(t, a.GroupID)
		assert.Equal(t, res.GroupID, *a.GroupID)
	}

	group, err := f.appointments.List(context.Background(), model.AppointmentFilter{TenantID: f.tenant, GroupID: &res.GroupID})
	require.NoError(t, err)
	assert.Len(t, group, 4)

	events := f.store.Events()
	require.Len(t, events, 5)
	assert.Equal(t, model.EventAppointmentSeriesCreated, events[4].EventType)
}

func TestExpandSkipsConflictingOccurrence(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, err := f.appointments.Create(ctx, f.tenant, &model.CreateAppointmentRequest{
		StaffID:     &f.staff.ID,
		ServiceName: "Massage",
		Date:        "2026-11-02",
		StartTime:   "10:30",
		Duration:    30,
	})
	require.NoError(t, err)

	res, err := f.svc.Expand(ctx, f.tenant, f.weekly(4))
	require.NoError(t, err)

	assert.Equal(t, 3, res.CreatedCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, []string{"2026-11-02"}, dates(res.Skipped))
	assert.Equal(t, model.SkipResourceConflict, res.Skipped[0].Reason)
	require.NotNil(t, res.Skipped[0].Conflict)
	assert.Equal(t, "Massage", res.Skipped[0].Conflict.Conflicting.ServiceName)
}

func TestExpandSkipReasons(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	yes := true
	// Doctor only works 12:00-16:00 on Tuesdays (index 3).
	_, err := f.cal.UpsertOverride(ctx, f.tenant, f.doctor.ID, 3, &model.UpsertOverrideRequest{StartTime: "12:00", EndTime: "16:00", IsAvailable: &yes})
	require.NoError(t, err)

	occurrences := 5
	req := f.weekly(0)
	req.Frequency = "daily"
	req.Occurrences = &occurrences
	// Thursday 2026-10-15 through Monday 2026-10-19.
	req.Appointment.Date = "2026-10-15"

	res, err := f.svc.Expand(ctx, f.tenant, req)
	require.NoError(t, err)
	assert.Equal(t, 4, res.CreatedCount)
	require.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, "2026-10-16", res.Skipped[0].Date.String())
	assert.Equal(t, model.SkipBusinessClosed, res.Skipped[0].Reason)

	req.Appointment.Date = "2026-10-20"
	one := 1
	req.Occurrences = &one
	res, err = f.svc.Expand(ctx, f.tenant, req)
	require.NoError(t, err)
	require.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, model.SkipOutsideWorkingHours, res.Skipped[0].Reason)
	assert.Equal(t, 0, res.CreatedCount)
}

func TestExpandTermination(t *testing.T) {
	ctx := context.Background()

	t.Run("end date is inclusive", func(t *testing.T) {
		f := newFixture(t, 0)
		req := f.weekly(0)
		req.Occurrences = nil
		end := "2026-11-02"
		req.EndDate = &end

		res, err := f.svc.Expand(ctx, f.tenant, req)
		require.NoError(t, err)
		assert.Equal(t, 3, res.CreatedCount)
		assert.False(t, res.Truncated)
	})

	t.Run("ceiling truncates long rules", func(t *testing.T) {
		f := newFixture(t, 6)
		res, err := f.svc.Expand(ctx, f.tenant, f.weekly(10))
		require.NoError(t, err)
		assert.Equal(t, 6, res.CreatedCount+res.SkippedCount)
		assert.True(t, res.Truncated)
	})

	t.Run("rule without termination", func(t *testing.T) {
		f := newFixture(t, 0)
		req := f.weekly(0)
		req.Occurrences = nil

		_, err := f.svc.Expand(ctx, f.tenant, req)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
		assert.Empty(t, f.store.Events())
	})

	t.Run("end date before start", func(t *testing.T) {
		f := newFixture(t, 0)
		req := f.weekly(2)
		end := "2026-10-01"
		req.EndDate = &end

		_, err := f.svc.Expand(ctx, f.tenant, req)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})

	t.Run("unknown frequency", func(t *testing.T) {
		f := newFixture(t, 0)
		req := f.weekly(2)
		req.Frequency = "yearly"

		_, err := f.svc.Expand(ctx, f.tenant, req)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})
}

func TestExpandAllSkippedStoresNoRule(t *testing.T) {
	f := newFixture(t, 0)
	req := f.weekly(2)
	// Fridays are closed.
	req.Appointment.Date = "2026-10-16"

	res, err := f.svc.Expand(context.Background(), f.tenant, req)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CreatedCount)
	assert.Equal(t, 2, res.SkippedCount)
	assert.Empty(t, f.store.Events())
}

var errStoreDown = errors.New("store unavailable")

// failingStore lets a fixed number of transactions through, then fails.
type failingStore struct {
	*memory.Store
	mu      sync.Mutex
	allowed int
}

func (s *failingStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	if s.allowed == 0 {
		s.mu.Unlock()
		return errStoreDown
	}
	s.allowed--
	s.mu.Unlock()
	return s.Store.WithTx(ctx, fn)
}

func TestExpandStoreFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		allowed int
		booked  int
		message string
	}{
		{"mid series", 2, 2, "series interrupted after booking occurrences"},
		{"rule not stored", 4, 4, "series booked but rule not stored"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			store := &failingStore{Store: f.store, allowed: tt.allowed}
			var buf bytes.Buffer
			log := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Output: &buf})
			appointments := appointment.NewService(store, f.cal, conflict.NewService(f.store.Appointments(), nil), nil, nil)
			svc := NewService(store, f.cal, appointments, 0, nil, log)

			res, err := svc.Expand(ctx, f.tenant, f.weekly(4))
			require.ErrorIs(t, err, errStoreDown)
			assert.Nil(t, res)

			booked, err := appointments.List(ctx, model.AppointmentFilter{TenantID: f.tenant})
			require.NoError(t, err)
			require.Len(t, booked, tt.booked)
			require.NotNil(t, booked[0].GroupID)

			out := buf.String()
			assert.Contains(t, out, tt.message)
			assert.Contains(t, out, booked[0].GroupID.String())
		})
	}
}
