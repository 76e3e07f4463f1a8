package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

type calendarRepository struct {
	db *sqlx.DB
}

func (r *calendarRepository) GetBusinessDays(ctx context.Context, tenantID uuid.UUID) ([]*model.BusinessDay, error) {
	query := `
		SELECT tenant_id, day_index, is_open, start_time, end_time
		FROM business_hours
		WHERE tenant_id = $1
		ORDER BY day_index
	`
	var days []*model.BusinessDay
	if err := r.db.SelectContext(ctx, &days, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to get business hours: %w", err)
	}
	return days, nil
}

// ReplaceBusinessDays swaps the whole week in one transaction.
func (r *calendarRepository) ReplaceBusinessDays(ctx context.Context, tenantID uuid.UUID, days []*model.BusinessDay) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM business_hours WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("failed to clear business hours: %w", err)
	}

	query := `
		INSERT INTO business_hours (tenant_id, day_index, is_open, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, d := range days {
		if _, err := tx.ExecContext(ctx, query, tenantID, d.DayIndex, d.IsOpen, d.StartTime, d.EndTime); err != nil {
			return fmt.Errorf("failed to insert business day %d: %w", d.DayIndex, err)
		}
	}

	return tx.Commit()
}

func (r *calendarRepository) ListOverrides(ctx context.Context, tenantID, resourceID uuid.UUID) ([]*model.ScheduleOverride, error) {
	query := `
		SELECT id, tenant_id, resource_id, day_index, start_time, end_time, is_available, created_at, updated_at
		FROM schedule_overrides
		WHERE tenant_id = $1 AND resource_id = $2
		ORDER BY day_index
	`
	var overrides []*model.ScheduleOverride
	if err := r.db.SelectContext(ctx, &overrides, query, tenantID, resourceID); err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	return overrides, nil
}

func (r *calendarRepository) ListOverridesForDay(ctx context.Context, tenantID uuid.UUID, dayIndex int) ([]*model.ScheduleOverride, error) {
	query := `
		SELECT id, tenant_id, resource_id, day_index, start_time, end_time, is_available, created_at, updated_at
		FROM schedule_overrides
		WHERE tenant_id = $1 AND day_index = $2
	`
	var overrides []*model.ScheduleOverride
	if err := r.db.SelectContext(ctx, &overrides, query, tenantID, dayIndex); err != nil {
		return nil, fmt.Errorf("failed to list overrides for day %d: %w", dayIndex, err)
	}
	return overrides, nil
}

func (r *calendarRepository) UpsertOverride(ctx context.Context, o *model.ScheduleOverride) error {
	o.Touch(time.Now().UTC())
	query := `
		INSERT INTO schedule_overrides (
			id, tenant_id, resource_id, day_index, start_time, end_time, is_available, created_at, updated_at
		) VALUES (:id, :tenant_id, :resource_id, :day_index, :start_time, :end_time, :is_available, :created_at, :updated_at)
		ON CONFLICT (tenant_id, resource_id, day_index) DO UPDATE
		SET start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			is_available = EXCLUDED.is_available,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		return fmt.Errorf("failed to upsert override: %w", err)
	}
	return nil
}

func (r *calendarRepository) DeleteOverride(ctx context.Context, tenantID, resourceID uuid.UUID, dayIndex int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM schedule_overrides WHERE tenant_id = $1 AND resource_id = $2 AND day_index = $3`,
		tenantID, resourceID, dayIndex)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
