package leave

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain"
)

type Status string

const (
	StatusPending               Status = "PENDING"
	StatusApproved              Status = "APPROVED"
	StatusRejected              Status = "REJECTED"
	StatusCancelled             Status = "CANCELLED"
	StatusCancellationRequested Status = "CANCELLATION_REQUESTED"
)

type CompOffStatus string

const (
	CompOffPending  CompOffStatus = "PENDING"
	CompOffApproved CompOffStatus = "APPROVED"
	CompOffRejected CompOffStatus = "REJECTED"
)

// LeaveRequest is one leave application. EndDate is nil for an open-ended
// sabbatical. DeductedDays is frozen at apply time so later holiday edits
// cannot change what an approval deducts.
type LeaveRequest struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	LeaveType    domain.LeaveType `gorm:"type:varchar(20);not null"`
	StartDate    time.Time        `gorm:"type:date;not null"`
	EndDate      *time.Time       `gorm:"type:date"`
	DeductedDays decimal.Decimal  `gorm:"type:numeric(6,2);not null;default:0"`
	Reason       string
	Status       Status     `gorm:"type:varchar(30);not null;index"`
	ApproverID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	DecisionNote *string
	DecidedBy    *uuid.UUID `gorm:"type:uuid"`
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// IsActive reports whether the request blocks overlapping applications.
func (l LeaveRequest) IsActive() bool {
	switch l.Status {
	case StatusPending, StatusApproved, StatusCancellationRequested:
		return true
	}
	return false
}

type CompOffClaim struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	WorkDate   time.Time     `gorm:"type:date;not null"`
	Reason     string        `gorm:"not null"`
	Status     CompOffStatus `gorm:"type:varchar(10);not null;index"`
	ApproverID uuid.UUID     `gorm:"type:uuid;not null;index"`
	DecidedBy  *uuid.UUID    `gorm:"type:uuid"`
	DecidedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CompOffClaim) TableName() string {
	return "comp_off_claims"
}
