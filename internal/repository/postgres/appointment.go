package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

const appointmentColumns = `
	id, tenant_id, staff_id, doctor_id, service_id, service_name, customer_name,
	appointment_date, start_time, duration, status, group_id, notes, cancel_reason,
	created_at, updated_at`

type appointmentRepository struct {
	db sqlx.ExtContext
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	appointment.Touch(time.Now().UTC())
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES (
			:id, :tenant_id, :staff_id, :doctor_id, :service_id, :service_name, :customer_name,
			:appointment_date, :start_time, :duration, :status, :group_id, :notes, :cancel_reason,
			:created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, appointment); err != nil {
		if IsOverlap(err) {
			return repository.ErrOverlap
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	appointment.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE appointments
		SET staff_id = :staff_id, doctor_id = :doctor_id,
			appointment_date = :appointment_date, start_time = :start_time, duration = :duration,
			status = :status, notes = :notes, cancel_reason = :cancel_reason, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id
	`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, appointment)
	if err != nil {
		if IsOverlap(err) {
			return repository.ErrOverlap
		}
		return fmt.Errorf("failed to update appointment: %w", err)
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

func (r *appointmentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE tenant_id = $1 AND id = $2`

	var appointment model.Appointment
	if err := sqlx.GetContext(ctx, r.db, &appointment, query, tenantID, id); err != nil {
		return nil, translate(err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}
	argCount := 2

	if filter.Date != nil {
		query += fmt.Sprintf(" AND appointment_date = $%d", argCount)
		args = append(args, *filter.Date)
		argCount++
	}

	if filter.ResourceID != nil {
		query += fmt.Sprintf(" AND (staff_id = $%d OR doctor_id = $%d)", argCount, argCount)
		args = append(args, *filter.ResourceID)
		argCount++
	}

	if filter.GroupID != nil {
		query += fmt.Sprintf(" AND group_id = $%d", argCount)
		args = append(args, *filter.GroupID)
		argCount++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filter.Status)
	}

	query += " ORDER BY appointment_date, start_time, id"

	var appointments []*model.Appointment
	if err := sqlx.SelectContext(ctx, r.db, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListBlockingForResource(ctx context.Context, tenantID uuid.UUID, ref model.ResourceRef, date time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error) {
	column := "staff_id"
	if ref.Kind == model.ResourceKindDoctor {
		column = "doctor_id"
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE tenant_id = $1 AND ` + column + ` = $2 AND appointment_date = $3
		AND status = ANY($4)`
	args := []interface{}{tenantID, ref.ID, model.NewDate(date), pq.Array(blockingStatuses())}

	if excludeID != nil {
		query += " AND id <> $5"
		args = append(args, *excludeID)
	}
	query += " ORDER BY start_time, id"

	var appointments []*model.Appointment
	if err := sqlx.SelectContext(ctx, r.db, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s appointments: %w", ref.Kind, err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListBlockingForDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE tenant_id = $1 AND appointment_date = $2 AND status = ANY($3)
		ORDER BY start_time, id`

	var appointments []*model.Appointment
	err := sqlx.SelectContext(ctx, r.db, &appointments, query, tenantID, model.NewDate(date), pq.Array(blockingStatuses()))
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for date: %w", err)
	}
	return appointments, nil
}

func blockingStatuses() []string {
	statuses := model.BlockingStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type recurrenceRepository struct {
	db sqlx.ExtContext
}

func (r *recurrenceRepository) Create(ctx context.Context, rule *model.RecurrenceRule) error {
	rule.Touch(time.Now().UTC())
	query := `
		INSERT INTO recurrence_rules (
			id, tenant_id, group_id, frequency, interval_count, start_date, end_date, occurrences, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :group_id, :frequency, :interval_count, :start_date, :end_date, :occurrences, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, rule); err != nil {
		return fmt.Errorf("failed to create recurrence rule: %w", err)
	}
	return nil
}
