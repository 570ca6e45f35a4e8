package employee

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id string) (*Employee, error)
	ListActive(ctx context.Context) ([]Employee, error)
	ListAll(ctx context.Context) ([]Employee, error)
	// FindFallbackApprover returns any active HR user, used when an employee
	// has no manager assigned.
	FindFallbackApprover(ctx context.Context) (*Employee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id string) (*Employee, error) {
	var emp Employee
	err := r.db.WithContext(ctx).
		First(&emp, "id = ?", id).Error
	return &emp, err
}

func (r *repository) ListActive(ctx context.Context) ([]Employee, error) {
	var emps []Employee
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&emps).Error
	return emps, err
}

func (r *repository) ListAll(ctx context.Context) ([]Employee, error) {
	var emps []Employee
	err := r.db.WithContext(ctx).
		Find(&emps).Error
	return emps, err
}

func (r *repository) FindFallbackApprover(ctx context.Context) (*Employee, error) {
	var emp Employee
	err := r.db.WithContext(ctx).
		Where("role = ?", RoleHR).
		Where("is_active = ?", true).
		Order("created_at ASC").
		First(&emp).Error
	return &emp, err
}
