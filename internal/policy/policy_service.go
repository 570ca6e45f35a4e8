package policy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	policyerrors "leavedesk/internal/policy/errors"
)

// Defaults used when no policy row covers the requested year.
var (
	DefaultCasualQuota = decimal.NewFromInt(12)
	DefaultSickQuota   = decimal.NewFromInt(5)
	DefaultWFHQuota    = decimal.NewFromInt(2)
)

// Quota is the resolved per-year entitlement for the balance-carrying types.
type Quota struct {
	Casual decimal.Decimal
	Sick   decimal.Decimal
	WFH    decimal.Decimal
}

//go:generate mockgen -source=policy_service.go -destination=mock/policy_service_mock.go -package=mock
type Service interface {
	// Effective resolves the quota for a year: exact match, else the most
	// recent earlier year, else built-in defaults.
	Effective(ctx context.Context, year int) (Quota, error)
	Upsert(ctx context.Context, req UpsertPolicyRequest) (PolicyResponse, error)
	List(ctx context.Context) ([]PolicyResponse, error)
}

type service struct {
	db     *gorm.DB
	repo   Repository
	logger *zap.Logger
}

func NewService(db *gorm.DB, repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("policy.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("policy.service")
	}
	return &service{db: db, repo: repo, logger: l}
}

func (s *service) Effective(ctx context.Context, year int) (Quota, error) {
	p, err := s.repo.FindByYear(ctx, year)
	if err == nil {
		return Quota{Casual: p.CasualQuota, Sick: p.SickQuota, WFH: p.WFHQuota}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Quota{}, err
	}

	p, err = s.repo.FindLatestBefore(ctx, year)
	if err == nil {
		s.logger.Debug("policy fallback to earlier year",
			zap.Int("requested_year", year),
			zap.Int("resolved_year", p.Year),
		)
		return Quota{Casual: p.CasualQuota, Sick: p.SickQuota, WFH: p.WFHQuota}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Quota{}, err
	}

	s.logger.Debug("policy fallback to defaults", zap.Int("requested_year", year))
	return Quota{
		Casual: DefaultCasualQuota,
		Sick:   DefaultSickQuota,
		WFH:    DefaultWFHQuota,
	}, nil
}

func (s *service) Upsert(ctx context.Context, req UpsertPolicyRequest) (PolicyResponse, error) {
	if req.Year < 2000 || req.Year > 9999 {
		return PolicyResponse{}, policyerrors.ErrInvalidYear
	}
	if req.CasualQuota < 0 || req.SickQuota < 0 || req.WFHQuota < 0 {
		return PolicyResponse{}, policyerrors.ErrInvalidQuota
	}

	p := &LeavePolicy{
		ID:          uuid.New(),
		Year:        req.Year,
		CasualQuota: decimal.NewFromFloat(req.CasualQuota),
		SickQuota:   decimal.NewFromFloat(req.SickQuota),
		WFHQuota:    decimal.NewFromFloat(req.WFHQuota),
		UpdatedAt:   time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Upsert(ctx, p)
	})
	if err != nil {
		return PolicyResponse{}, err
	}

	s.logger.Info("policy upserted",
		zap.Int("year", p.Year),
		zap.String("casual_quota", p.CasualQuota.String()),
	)
	return mapToResponse(*p), nil
}

func (s *service) List(ctx context.Context) ([]PolicyResponse, error) {
	policies, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]PolicyResponse, len(policies))
	for i, p := range policies {
		res[i] = mapToResponse(p)
	}
	return res, nil
}

func mapToResponse(p LeavePolicy) PolicyResponse {
	return PolicyResponse{
		ID:          p.ID.String(),
		Year:        p.Year,
		CasualQuota: p.CasualQuota.String(),
		SickQuota:   p.SickQuota.String(),
		WFHQuota:    p.WFHQuota.String(),
	}
}
