package models

import (
	"strings"
	"time"

	"github.com/amirphl/Susanoo/utils"
)

// EntityStatus is the lifecycle status shared by campaigns and ad sets.
// The column is free text; only the inactive values below carry meaning.
type EntityStatus string

const (
	EntityStatusActive    EntityStatus = "active"
	EntityStatusPaused    EntityStatus = "paused"
	EntityStatusStopped   EntityStatus = "stopped"
	EntityStatusCompleted EntityStatus = "completed"
	EntityStatusArchived  EntityStatus = "archived"
)

func (s EntityStatus) String() string {
	return string(s)
}

// Inactive reports whether the status takes an entity out of rotation
func (s EntityStatus) Inactive() bool {
	switch EntityStatus(strings.ToLower(string(s))) {
	case EntityStatusPaused, EntityStatusStopped, EntityStatusCompleted, EntityStatusArchived:
		return true
	default:
		return false
	}
}

// IsEntityActive combines status, the is_active flag and the scheduling window
func IsEntityActive(status *EntityStatus, isActive *bool, start, end *time.Time, now time.Time) bool {
	if status != nil && status.Inactive() {
		return false
	}
	if utils.IsFalse(isActive) {
		return false
	}
	return utils.WithinWindow(now, start, end)
}
