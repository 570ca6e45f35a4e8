package policy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LeavePolicy struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Year        int             `gorm:"uniqueIndex;not null"`
	CasualQuota decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	SickQuota   decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	WFHQuota    decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (LeavePolicy) TableName() string {
	return "leave_policies"
}
