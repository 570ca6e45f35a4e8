package balance

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leavedesk/internal/domain"
)

//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, userID string, leaveType domain.LeaveType) (*LeaveBalance, error)
	// FindForUpdate takes a row lock. Only valid inside a transaction.
	FindForUpdate(ctx context.Context, userID string, leaveType domain.LeaveType) (*LeaveBalance, error)
	FindAllByUser(ctx context.Context, userID string) ([]LeaveBalance, error)
	Save(ctx context.Context, b *LeaveBalance) error
	RecordChange(ctx context.Context, h *BalanceHistory) error
	FindHistory(ctx context.Context, userID string, limit int) ([]BalanceHistory, error)
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

func (r *repository) Find(ctx context.Context, userID string, leaveType domain.LeaveType) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("leave_type = ?", leaveType).
		First(&b).Error
	return &b, err
}

func (r *repository) FindForUpdate(ctx context.Context, userID string, leaveType domain.LeaveType) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Where("leave_type = ?", leaveType).
		First(&b).Error
	return &b, err
}

func (r *repository) FindAllByUser(ctx context.Context, userID string) ([]LeaveBalance, error) {
	var balances []LeaveBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("leave_type ASC").
		Find(&balances).Error
	return balances, err
}

func (r *repository) Save(ctx context.Context, b *LeaveBalance) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *repository) RecordChange(ctx context.Context, h *BalanceHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *repository) FindHistory(ctx context.Context, userID string, limit int) ([]BalanceHistory, error) {
	var history []BalanceHistory
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&history).Error
	return history, err
}
