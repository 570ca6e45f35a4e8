package balance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain"
)

type LeaveBalance struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_balance_user_type"`
	LeaveType domain.LeaveType `gorm:"type:varchar(20);not null;uniqueIndex:idx_balance_user_type"`
	Balance   decimal.Decimal  `gorm:"type:numeric(6,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveBalance) TableName() string {
	return "leave_balances"
}

// BalanceHistory is the append-only ledger. Every non-zero balance mutation
// writes exactly one row here, in the same transaction as the mutation.
type BalanceHistory struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index"`
	LeaveType        domain.LeaveType  `gorm:"type:varchar(20);not null"`
	ChangeAmount     decimal.Decimal   `gorm:"type:numeric(6,2);not null"`
	PreviousBalance  decimal.Decimal   `gorm:"type:numeric(6,2);not null"`
	BalanceAfter     decimal.Decimal   `gorm:"type:numeric(6,2);not null"`
	ChangeType       domain.ChangeType `gorm:"type:varchar(20);not null;index"`
	Reason           string
	RelatedRequestID *uuid.UUID `gorm:"type:uuid;index"`
	ChangedBy        *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time
}

func (BalanceHistory) TableName() string {
	return "balance_histories"
}
