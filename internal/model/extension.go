package model

import (
	"time"

	"github.com/google/uuid"
)

// ClientExtension grants a client additional days on top of the calculated
// deadline for one obligation type. Immutable once granted except for the
// single revoked transition; a revoked extension never participates in
// calculation again.
type ClientExtension struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	TaxObligationType string     `gorm:"type:varchar(20);not null;index" json:"tax_obligation_type"`
	TaxYear           *int       `gorm:"index" json:"tax_year"` // Nullable = applies to all years
	ExtensionDays     int        `gorm:"not null" json:"extension_days"`
	Reason            string     `gorm:"type:text;not null" json:"reason"`
	ApprovedBy        string     `gorm:"type:varchar(100);not null" json:"approved_by"`
	GrantedAt         time.Time  `gorm:"not null;index" json:"granted_at"`
	ExpiryDate        *time.Time `gorm:"type:date" json:"expiry_date"` // Nullable = unbounded
	Revoked           bool       `gorm:"not null;default:false;index" json:"revoked"`
	RevokedAt         *time.Time `json:"revoked_at"`
	RevokedBy         string     `gorm:"type:varchar(100)" json:"revoked_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
