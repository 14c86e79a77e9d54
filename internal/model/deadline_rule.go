package model

import (
	"time"

	"github.com/google/uuid"
)

// TaxObligationType enum constants
const (
	ObligationGST         = "GST"
	ObligationPAYE        = "PAYE"
	ObligationIncomeTax   = "INCOME_TAX"
	ObligationFBT         = "FBT"
	ObligationWithholding = "WITHHOLDING"
)

// TriggerType enum constants
const (
	TriggerPeriodEnd = "PERIOD_END"
	TriggerFixedDate = "FIXED_DATE"
	TriggerEventDate = "EVENT_DATE"
)

// DeadlineRule stores per-obligation deadline configuration with temporal validity.
// DaysFromTrigger must never be below StatutoryMinimumDays; this is enforced at
// create/update and re-checked at calculation time against stale configuration.
type DeadlineRule struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaxObligationType    string     `gorm:"type:varchar(20);not null;index" json:"tax_obligation_type"` // GST, PAYE, INCOME_TAX, FBT, WITHHOLDING
	RuleName             string     `gorm:"type:varchar(100);not null" json:"rule_name"`
	Description          string     `gorm:"type:text" json:"description"`
	DaysFromTrigger      int        `gorm:"not null" json:"days_from_trigger"`             // Calendar days added to the trigger date
	TriggerType          string     `gorm:"type:varchar(20);not null" json:"trigger_type"` // PERIOD_END, FIXED_DATE, EVENT_DATE
	AdjustForWeekends    bool       `gorm:"not null;default:false" json:"adjust_for_weekends"`
	AdjustForHolidays    bool       `gorm:"not null;default:false" json:"adjust_for_holidays"`
	StatutoryMinimumDays int        `gorm:"not null;default:0" json:"statutory_minimum_days"`
	IsDefault            bool       `gorm:"not null;default:false" json:"is_default"`
	IsActive             bool       `gorm:"not null;default:true;index" json:"is_active"`
	EffectiveFrom        time.Time  `gorm:"type:date;not null;index" json:"effective_from"`
	EffectiveTo          *time.Time `gorm:"type:date;index" json:"effective_to"` // Nullable = open-ended
	Version              int        `gorm:"not null;default:1" json:"version"`   // Optimistic concurrency token
	CreatedBy            string     `gorm:"type:varchar(100)" json:"created_by"`
	UpdatedBy            string     `gorm:"type:varchar(100)" json:"updated_by"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
