package model

import (
	"github.com/google/uuid"
)

// TimeSlot is one bookable start for one resource.
type TimeSlot struct {
	Date         Date         `json:"date"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	ResourceID   uuid.UUID    `json:"resource_id"`
	ResourceName string       `json:"resource_name"`
	ResourceKind ResourceKind `json:"resource_kind"`
}
