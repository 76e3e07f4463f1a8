package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

type resourceRepository struct {
	db *sqlx.DB
}

func (r *resourceRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Resource, error) {
	query := `
		SELECT id, tenant_id, kind, name, active, created_at, updated_at
		FROM resources
		WHERE tenant_id = $1 AND id = $2
	`
	var resource model.Resource
	if err := r.db.GetContext(ctx, &resource, query, tenantID, id); err != nil {
		return nil, translate(err)
	}
	return &resource, nil
}

func (r *resourceRepository) ListActive(ctx context.Context, tenantID uuid.UUID, kind *model.ResourceKind) ([]*model.Resource, error) {
	query := `
		SELECT id, tenant_id, kind, name, active, created_at, updated_at
		FROM resources
		WHERE tenant_id = $1 AND active
	`
	args := []interface{}{tenantID}
	if kind != nil {
		query += " AND kind = $2"
		args = append(args, *kind)
	}
	query += " ORDER BY name, id"

	var resources []*model.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

type serviceRepository struct {
	db *sqlx.DB
}

func (r *serviceRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Service, error) {
	query := `
		SELECT id, tenant_id, name, duration, active, created_at, updated_at
		FROM services
		WHERE tenant_id = $1 AND id = $2
	`
	var service model.Service
	if err := r.db.GetContext(ctx, &service, query, tenantID, id); err != nil {
		return nil, translate(err)
	}
	return &service, nil
}
