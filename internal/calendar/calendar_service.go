package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	calendarerrors "leavedesk/internal/calendar/errors"
)

const (
	HolidayYearKeyPrefix = "holidays:year:"
	holidayCacheTTL      = time.Hour
)

func GetHolidayYearKey(year int) string {
	return fmt.Sprintf("%s%d", HolidayYearKeyPrefix, year)
}

//go:generate mockgen -source=calendar_service.go -destination=mock/calendar_service_mock.go -package=mock
type Service interface {
	// DeductibleDays counts working days in the inclusive range, excluding
	// weekends and stored holidays.
	DeductibleDays(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	Overlaps(ctx context.Context, aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool
	Holidays(ctx context.Context, year int) ([]HolidayResponse, error)
	BulkImport(ctx context.Context, req BulkImportRequest) (BulkImportResponse, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	db     *gorm.DB
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(db *gorm.DB, repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("calendar.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("calendar.service")
	}
	return &service{db: db, repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (s *service) DeductibleDays(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	if end.Before(start) {
		return decimal.Zero, calendarerrors.ErrInvalidDateRange
	}

	stored, err := s.repo.FindInRange(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}

	holidays := make(map[string]struct{}, len(stored))
	for _, h := range stored {
		holidays[h.Date.Format(dateLayout)] = struct{}{}
	}

	return CountWorkingDays(start, end, holidays), nil
}

func (s *service) Overlaps(ctx context.Context, aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	return RangesOverlap(aStart, aEnd, bStart, bEnd)
}

func (s *service) Holidays(ctx context.Context, year int) ([]HolidayResponse, error) {
	cacheKey := GetHolidayYearKey(year)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var resp []HolidayResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		holidays, err := s.repo.FindByYear(ctx, year)
		if err != nil {
			return nil, err
		}

		resp := make([]HolidayResponse, len(holidays))
		for i, h := range holidays {
			resp[i] = mapHolidayToResponse(h)
		}

		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, holidayCacheTTL)
			}
		}

		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]HolidayResponse), nil
}

func (s *service) BulkImport(ctx context.Context, req BulkImportRequest) (BulkImportResponse, error) {
	parsed := make([]Holiday, 0, len(req.Holidays))
	for _, in := range req.Holidays {
		date, err := time.Parse(dateLayout, in.Date)
		if err != nil {
			return BulkImportResponse{}, calendarerrors.ErrInvalidDateFormat
		}
		parsed = append(parsed, Holiday{
			ID:         uuid.New(),
			Date:       date,
			Name:       in.Name,
			IsOptional: in.IsOptional,
		})
	}

	var result BulkImportResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)
		for i := range parsed {
			inserted, err := qtx.CreateSkipDuplicate(ctx, &parsed[i])
			if err != nil {
				return err
			}
			if inserted {
				result.Imported++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return BulkImportResponse{}, err
	}

	s.invalidateYears(ctx, parsed)

	s.logger.Info("holidays imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	// Cheapest correct invalidation: the deleted row's year is unknown here.
	if s.rdb != nil {
		iter := s.rdb.Scan(ctx, 0, HolidayYearKeyPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			s.rdb.Del(ctx, iter.Val())
		}
	}
	return nil
}

func (s *service) invalidateYears(ctx context.Context, holidays []Holiday) {
	if s.rdb == nil {
		return
	}

	years := make(map[int]struct{})
	for _, h := range holidays {
		years[h.Date.Year()] = struct{}{}
	}
	for year := range years {
		cacheKey := GetHolidayYearKey(year)
		if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
			s.logger.Error("failed to invalidate holiday cache",
				zap.String("key", cacheKey),
				zap.Error(err),
			)
		}
	}
}

func mapHolidayToResponse(h Holiday) HolidayResponse {
	return HolidayResponse{
		ID:         h.ID.String(),
		Date:       h.Date.Format(dateLayout),
		Name:       h.Name,
		IsOptional: h.IsOptional,
	}
}
