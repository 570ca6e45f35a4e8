package calendar

import (
	"time"

	"github.com/google/uuid"
)

type Holiday struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Date time.Time `gorm:"type:date;uniqueIndex;not null"`
	Name string    `gorm:"not null"`
	// IsOptional marks floating holidays employees may choose to observe.
	// They still don't count as deductible days.
	IsOptional bool `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

func (Holiday) TableName() string {
	return "holidays"
}
