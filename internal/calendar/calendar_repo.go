package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	calendarerrors "leavedesk/internal/calendar/errors"
)

const uniqueViolationCode = "23505"

//go:generate mockgen -source=calendar_repo.go -destination=mock/calendar_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, h *Holiday) error
	// CreateSkipDuplicate inserts with ON CONFLICT DO NOTHING and reports
	// whether a row was written. Safe to call mid-transaction.
	CreateSkipDuplicate(ctx context.Context, h *Holiday) (bool, error)
	FindInRange(ctx context.Context, start, end time.Time) ([]Holiday, error)
	FindByYear(ctx context.Context, year int) ([]Holiday, error)
	Delete(ctx context.Context, id string) error
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

func (r *repository) Create(ctx context.Context, h *Holiday) error {
	err := r.db.WithContext(ctx).Create(h).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return calendarerrors.ErrDuplicateHoliday
		}
		return err
	}
	return nil
}

func (r *repository) CreateSkipDuplicate(ctx context.Context, h *Holiday) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoNothing: true,
		}).
		Create(h)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FindInRange(ctx context.Context, start, end time.Time) ([]Holiday, error) {
	var holidays []Holiday
	err := r.db.WithContext(ctx).
		Where("date >= ?", start).
		Where("date <= ?", end).
		Order("date ASC").
		Find(&holidays).Error
	return holidays, err
}

func (r *repository) FindByYear(ctx context.Context, year int) ([]Holiday, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return r.FindInRange(ctx, start, end)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Delete(&Holiday{}, "id = ?", id).Error
}
