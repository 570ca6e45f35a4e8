package leave

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	// FindByIDForUpdate takes a row lock so concurrent decisions on the same
	// request serialize. Only valid inside a transaction.
	FindByIDForUpdate(ctx context.Context, id string) (*LeaveRequest, error)
	Update(ctx context.Context, l *LeaveRequest) error
	// FindActiveByUser returns requests that block overlapping applications.
	FindActiveByUser(ctx context.Context, userID string) ([]LeaveRequest, error)
	FindByUser(ctx context.Context, userID string) ([]LeaveRequest, error)
	FindPendingByApprover(ctx context.Context, approverID string) ([]LeaveRequest, error)
	FindAllPending(ctx context.Context) ([]LeaveRequest, error)

	CreateCompOff(ctx context.Context, c *CompOffClaim) error
	FindCompOffByIDForUpdate(ctx context.Context, id string) (*CompOffClaim, error)
	UpdateCompOff(ctx context.Context, c *CompOffClaim) error
	FindCompOffByUser(ctx context.Context, userID string) ([]CompOffClaim, error)
	FindPendingCompOff(ctx context.Context) ([]CompOffClaim, error)
	HasCompOffForDate(ctx context.Context, userID string, workDate time.Time) (bool, error)
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

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) Update(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Save(l).Error
}

var activeStatuses = []Status{StatusPending, StatusApproved, StatusCancellationRequested}

func (r *repository) FindActiveByUser(ctx context.Context, userID string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status IN ?", activeStatuses).
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindByUser(ctx context.Context, userID string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindPendingByApprover(ctx context.Context, approverID string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("approver_id = ?", approverID).
		Where("status IN ?", []Status{StatusPending, StatusCancellationRequested}).
		Order("created_at ASC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindAllPending(ctx context.Context) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("status IN ?", []Status{StatusPending, StatusCancellationRequested}).
		Order("created_at ASC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) CreateCompOff(ctx context.Context, c *CompOffClaim) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) FindCompOffByIDForUpdate(ctx context.Context, id string) (*CompOffClaim, error) {
	var c CompOffClaim
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *repository) UpdateCompOff(ctx context.Context, c *CompOffClaim) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *repository) FindCompOffByUser(ctx context.Context, userID string) ([]CompOffClaim, error) {
	var claims []CompOffClaim
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("work_date DESC").
		Find(&claims).Error
	return claims, err
}

func (r *repository) FindPendingCompOff(ctx context.Context) ([]CompOffClaim, error) {
	var claims []CompOffClaim
	err := r.db.WithContext(ctx).
		Where("status = ?", CompOffPending).
		Order("created_at ASC").
		Find(&claims).Error
	return claims, err
}

func (r *repository) HasCompOffForDate(ctx context.Context, userID string, workDate time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&CompOffClaim{}).
		Where("user_id = ?", userID).
		Where("work_date = ?", workDate).
		Where("status IN ?", []CompOffStatus{CompOffPending, CompOffApproved}).
		Count(&count).Error
	return count > 0, err
}
