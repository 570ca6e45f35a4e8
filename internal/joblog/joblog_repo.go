package joblog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"leavedesk/internal/shared/apperror"
)

// ErrDuplicateJobName maps the unique constraint on job_name. Callers treat
// it as "someone else already ran this job".
var ErrDuplicateJobName = apperror.New(
	apperror.CodeConflict,
	"job with this name was already recorded",
	http.StatusConflict,
)

const uniqueViolationCode = "23505"

//go:generate mockgen -source=joblog_repo.go -destination=mock/joblog_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, log *JobLog) error
	FindByName(ctx context.Context, jobName string) (*JobLog, error)
	HasSuccess(ctx context.Context, jobName string) (bool, error)
	// HasYearlyResetSuccess reports whether the scheduled or any manual
	// yearly reset already succeeded for the year.
	HasYearlyResetSuccess(ctx context.Context, year int) (bool, error)
	FindRecent(ctx context.Context, limit int) ([]JobLog, error)
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

func (r *repository) Create(ctx context.Context, log *JobLog) error {
	err := r.db.WithContext(ctx).Create(log).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateJobName
		}
		return err
	}
	return nil
}

func (r *repository) FindByName(ctx context.Context, jobName string) (*JobLog, error) {
	var log JobLog
	err := r.db.WithContext(ctx).
		First(&log, "job_name = ?", jobName).Error
	return &log, err
}

func (r *repository) HasSuccess(ctx context.Context, jobName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&JobLog{}).
		Where("job_name = ?", jobName).
		Where("status = ?", StatusSuccess).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasYearlyResetSuccess(ctx context.Context, year int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&JobLog{}).
		Where("status = ?", StatusSuccess).
		Where(
			r.db.Where("job_name = ?", fmt.Sprintf("yearly_reset_%d", year)).
				Or("job_name LIKE ?", fmt.Sprintf("manual_yearly_reset_%d_%%", year)),
		).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindRecent(ctx context.Context, limit int) ([]JobLog, error) {
	var logs []JobLog
	err := r.db.WithContext(ctx).
		Order("executed_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
