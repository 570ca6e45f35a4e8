package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

type Employee struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	FullName  string     `gorm:"not null"`
	Email     string     `gorm:"uniqueIndex;not null"`
	ManagerID *uuid.UUID `gorm:"type:uuid;index"`
	Role      Role       `gorm:"type:varchar(20);not null;default:'employee'"`
	IsActive  bool       `gorm:"not null;default:true"`
	JoinedAt  time.Time  `gorm:"type:date"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Employee) TableName() string {
	return "employees"
}
