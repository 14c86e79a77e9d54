package model

import (
	"time"

	"github.com/google/uuid"
)

// PublicHoliday is a non-business day, either a one-time concrete date or an
// annually recurring (month, day) pair. Exactly one of the two forms is
// populated, matching IsRecurring.
type PublicHoliday struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string     `gorm:"type:varchar(100);not null" json:"name"`
	HolidayDate    *time.Time `gorm:"type:date;index" json:"holiday_date"` // One-time holidays only
	IsRecurring    bool       `gorm:"not null;default:false" json:"is_recurring"`
	RecurringMonth int        `gorm:"default:0" json:"recurring_month"` // 1-12 when recurring
	RecurringDay   int        `gorm:"default:0" json:"recurring_day"`   // 1-31 when recurring
	IsNational     bool       `gorm:"not null;default:true" json:"is_national"`
	Description    string     `gorm:"type:text" json:"description"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
