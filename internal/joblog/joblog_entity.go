package joblog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// JobLog records one execution attempt of a scheduled or manually triggered
// job. JobName is unique, so a SUCCESS row doubles as the idempotency marker
// for that period.
type JobLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	JobName    string         `gorm:"uniqueIndex;not null"`
	Status     Status         `gorm:"type:varchar(10);not null"`
	Details    datatypes.JSON `gorm:"type:jsonb"`
	ExecutedBy *uuid.UUID     `gorm:"type:uuid"`
	ExecutedAt time.Time      `gorm:"not null"`
	CreatedAt  time.Time
}

func (JobLog) TableName() string {
	return "job_logs"
}
