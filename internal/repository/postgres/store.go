package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

// Store is the postgres-backed repository.Store.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Calendar() repository.CalendarRepository {
	return &calendarRepository{db: s.db}
}

func (s *Store) Resources() repository.ResourceRepository {
	return &resourceRepository{db: s.db}
}

func (s *Store) Services() repository.ServiceRepository {
	return &serviceRepository{db: s.db}
}

func (s *Store) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{db: s.db}
}

func (s *Store) Outbox() repository.OutboxRepository {
	return &outboxRepository{db: s.db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txScope{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return translate(err)
	}
	return nil
}

type txScope struct {
	tx *sqlx.Tx
}

func (t *txScope) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{db: t.tx}
}

func (t *txScope) Recurrences() repository.RecurrenceRepository {
	return &recurrenceRepository{db: t.tx}
}

func (t *txScope) Outbox() repository.OutboxRepository {
	return &outboxRepository{db: t.tx}
}

// LockResources takes transaction-scoped advisory locks on every
// (resource, date) pair in a fixed order so concurrent bookings serialize.
func (t *txScope) LockResources(ctx context.Context, tenantID uuid.UUID, date time.Time, refs ...model.ResourceRef) error {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, lockKey(tenantID, ref, date))
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("failed to lock %s: %w", key, err)
		}
	}
	return nil
}

func lockKey(tenantID uuid.UUID, ref model.ResourceRef, date time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", tenantID, ref.Kind, ref.ID, model.NewDate(date))
}
