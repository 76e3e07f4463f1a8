package model

import (
	"github.com/google/uuid"
)

// Service is a catalog entry whose duration drives slot length.
type Service struct {
	Base
	TenantID uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name     string    `db:"name" json:"name"`
	Duration int       `db:"duration" json:"duration"` // in minutes
	Active   bool      `db:"active" json:"active"`
}
