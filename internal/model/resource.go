package model

import (
	"github.com/google/uuid"
)

// ResourceKind distinguishes the bookable resource categories.
type ResourceKind string

const (
	ResourceKindStaff  ResourceKind = "staff"
	ResourceKindDoctor ResourceKind = "doctor"
)

func (k ResourceKind) Valid() bool {
	return k == ResourceKindStaff || k == ResourceKindDoctor
}

// Label is the human wording used in conflict messages.
func (k ResourceKind) Label() string {
	if k == ResourceKindDoctor {
		return "doctor"
	}
	return "staff member"
}

// Resource is a bookable staff member or doctor.
type Resource struct {
	Base
	TenantID uuid.UUID    `db:"tenant_id" json:"tenant_id"`
	Kind     ResourceKind `db:"kind" json:"kind"`
	Name     string       `db:"name" json:"name"`
	Active   bool         `db:"active" json:"active"`
}

// ResourceRef points at one resource of a known kind.
type ResourceRef struct {
	Kind ResourceKind `json:"kind"`
	ID   uuid.UUID    `json:"id"`
}
