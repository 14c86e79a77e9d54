package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType constants for audit entries
const (
	EntityDeadlineRule    = "DEADLINE_RULE"
	EntityPublicHoliday   = "PUBLIC_HOLIDAY"
	EntityClientExtension = "CLIENT_EXTENSION"
)

// Pseudo field names for whole-entity audit entries
const (
	AuditFieldCreated = "created"
	AuditFieldRemoved = "removed"
)

// DeadlineAuditLog tracks Who, What, and When for every configuration change.
// Insert-only: the repository exposes no update or delete for this entity, so
// tamper-evidence is structural rather than procedural.
type DeadlineAuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType string    `gorm:"type:varchar(30);not null;index" json:"entity_type"` // DEADLINE_RULE, PUBLIC_HOLIDAY, CLIENT_EXTENSION
	EntityID   string    `gorm:"type:varchar(50);not null;index" json:"entity_id"`
	ChangedBy  string    `gorm:"type:varchar(100)" json:"changed_by"` // Empty gracefully if automated job
	ChangedAt  time.Time `gorm:"not null;index;autoCreateTime" json:"changed_at"`
	FieldName  string    `gorm:"type:varchar(50);not null" json:"field_name"`
	OldValue   string    `gorm:"type:text" json:"old_value"`
	NewValue   string    `gorm:"type:text" json:"new_value"`
	Reason     string    `gorm:"type:text" json:"reason"`
}
