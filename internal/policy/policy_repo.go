package policy

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=policy_repo.go -destination=mock/policy_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByYear(ctx context.Context, year int) (*LeavePolicy, error)
	// FindLatestBefore returns the policy with the greatest year strictly
	// below the given one.
	FindLatestBefore(ctx context.Context, year int) (*LeavePolicy, error)
	FindAll(ctx context.Context) ([]LeavePolicy, error)
	Upsert(ctx context.Context, p *LeavePolicy) error
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

func (r *repository) FindByYear(ctx context.Context, year int) (*LeavePolicy, error) {
	var p LeavePolicy
	err := r.db.WithContext(ctx).
		First(&p, "year = ?", year).Error
	return &p, err
}

func (r *repository) FindLatestBefore(ctx context.Context, year int) (*LeavePolicy, error) {
	var p LeavePolicy
	err := r.db.WithContext(ctx).
		Where("year < ?", year).
		Order("year DESC").
		First(&p).Error
	return &p, err
}

func (r *repository) FindAll(ctx context.Context) ([]LeavePolicy, error) {
	var policies []LeavePolicy
	err := r.db.WithContext(ctx).
		Order("year DESC").
		Find(&policies).Error
	return policies, err
}

func (r *repository) Upsert(ctx context.Context, p *LeavePolicy) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"casual_quota", "sick_quota", "wfh_quota", "updated_at"}),
		}).
		Create(p).Error
}
