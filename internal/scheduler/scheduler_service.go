package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"leavedesk/internal/balance"
	"leavedesk/internal/domain"
	"leavedesk/internal/employee"
	"leavedesk/internal/joblog"
	"leavedesk/internal/policy"
	schedulererrors "leavedesk/internal/scheduler/errors"
)

const monthsPerYear = 12

// JobResult summarizes one completed job run.
type JobResult struct {
	JobName       string `json:"job_name"`
	UsersAffected int    `json:"users_affected"`
}

//go:generate mockgen -source=scheduler_service.go -destination=mock/scheduler_service_mock.go -package=mock
type Service interface {
	// RunMonthlyAccrual credits every active employee one twelfth of the
	// casual quota for the month containing now. Returns
	// ErrJobAlreadyExecuted when the period's job already succeeded.
	RunMonthlyAccrual(ctx context.Context, now time.Time) (JobResult, error)
	// RunYearlyReset zeroes casual and earned pools and restores sick and
	// WFH to quota for the year containing now, then re-accrues the current
	// month before writing its marker. A manual run records who triggered
	// it and uses a timestamped job name, but the same yearly lockout
	// applies to both variants.
	RunYearlyReset(ctx context.Context, now time.Time, manual bool, executedBy *uuid.UUID) (JobResult, error)
	RecentJobs(ctx context.Context, limit int) ([]joblog.JobLog, error)
}

type service struct {
	db        *gorm.DB
	jobs      joblog.Repository
	balances  balance.Service
	policies  policy.Service
	employees employee.Repository
	logger    *zap.Logger
}

func NewService(
	db *gorm.DB,
	jobs joblog.Repository,
	balances balance.Service,
	policies policy.Service,
	employees employee.Repository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("scheduler.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("scheduler.service")
	}
	return &service{
		db:        db,
		jobs:      jobs,
		balances:  balances,
		policies:  policies,
		employees: employees,
		logger:    l,
	}
}

func MonthlyAccrualJobName(now time.Time) string {
	return fmt.Sprintf("monthly_accrual_%d_%02d", now.Year(), int(now.Month()))
}

func YearlyResetJobName(year int) string {
	return fmt.Sprintf("yearly_reset_%d", year)
}

func ManualYearlyResetJobName(year int, now time.Time) string {
	return fmt.Sprintf("manual_yearly_reset_%d_%d", year, now.Unix())
}

func (s *service) RunMonthlyAccrual(ctx context.Context, now time.Time) (JobResult, error) {
	jobName := MonthlyAccrualJobName(now)

	done, err := s.jobs.HasSuccess(ctx, jobName)
	if err != nil {
		return JobResult{}, err
	}
	if done {
		return JobResult{}, schedulererrors.ErrJobAlreadyExecuted
	}

	affected := 0
	skipped := false

	// The whole batch and the SUCCESS marker commit together. A crash
	// mid-run leaves no marker, so the next attempt redoes everything.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		affected, skipped, err = s.accrueMonth(ctx, tx, now)
		return err
	})
	if err != nil {
		if errors.Is(err, joblog.ErrDuplicateJobName) {
			return JobResult{}, schedulererrors.ErrJobAlreadyExecuted
		}
		s.recordFailure(ctx, jobName, nil, err)
		return JobResult{}, err
	}
	if skipped {
		return JobResult{}, schedulererrors.ErrJobAlreadyExecuted
	}

	s.logger.Info("monthly accrual completed",
		zap.String("job_name", jobName),
		zap.Int("users_affected", affected),
	)
	return JobResult{JobName: jobName, UsersAffected: affected}, nil
}

// accrueMonth credits the month's casual accrual to every active employee
// inside tx and writes the monthly SUCCESS marker. Reports skipped without
// touching any balance when the month already has a marker, so the yearly
// reset can chain it safely.
func (s *service) accrueMonth(ctx context.Context, tx *gorm.DB, now time.Time) (int, bool, error) {
	jobName := MonthlyAccrualJobName(now)

	done, err := s.jobs.WithTx(tx).HasSuccess(ctx, jobName)
	if err != nil {
		return 0, false, err
	}
	if done {
		return 0, true, nil
	}

	quota, err := s.policies.Effective(ctx, now.Year())
	if err != nil {
		return 0, false, err
	}
	rate := quota.Casual.Div(decimal.NewFromInt(monthsPerYear)).Round(2)

	emps, err := s.employees.ListActive(ctx)
	if err != nil {
		return 0, false, err
	}

	reason := fmt.Sprintf("Monthly accrual %d-%02d", now.Year(), int(now.Month()))
	txBalances := s.balances.WithTx(tx)
	affected := 0
	for _, emp := range emps {
		if err := txBalances.ApplyDelta(ctx, balance.ChangeRequest{
			UserID:     emp.ID.String(),
			LeaveType:  domain.LeaveTypeCasual,
			Delta:      rate,
			ChangeType: domain.ChangeAccrual,
			Reason:     reason,
		}); err != nil {
			return 0, false, err
		}
		affected++
	}

	if err := s.writeMarker(ctx, tx, jobName, nil, map[string]any{
		"users_affected": affected,
		"accrual_rate":   rate.String(),
	}); err != nil {
		return 0, false, err
	}
	return affected, false, nil
}

func (s *service) RunYearlyReset(ctx context.Context, now time.Time, manual bool, executedBy *uuid.UUID) (JobResult, error) {
	year := now.Year()

	done, err := s.jobs.HasYearlyResetSuccess(ctx, year)
	if err != nil {
		return JobResult{}, err
	}
	if done {
		return JobResult{}, schedulererrors.ErrJobAlreadyExecuted
	}

	jobName := YearlyResetJobName(year)
	if manual {
		jobName = ManualYearlyResetJobName(year, now)
	}

	quota, err := s.policies.Effective(ctx, year)
	if err != nil {
		return JobResult{}, err
	}

	// Unlike accrual, the reset covers inactive employees too. Their sick
	// and WFH quotas must not survive from a previous year if they return.
	emps, err := s.employees.ListAll(ctx)
	if err != nil {
		return JobResult{}, err
	}

	// Casual and earned pools expire, sick and WFH restore to quota.
	// Comp-off credits carry over untouched.
	targets := map[domain.LeaveType]decimal.Decimal{
		domain.LeaveTypeCasual: decimal.Zero,
		domain.LeaveTypeEarned: decimal.Zero,
		domain.LeaveTypeSick:   quota.Sick,
		domain.LeaveTypeWFH:    quota.WFH,
	}
	reason := fmt.Sprintf("Yearly reset %d", year)
	affected := 0

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txBalances := s.balances.WithTx(tx)
		for _, emp := range emps {
			for leaveType, target := range targets {
				current, err := txBalances.Get(ctx, emp.ID.String(), leaveType)
				if err != nil {
					return err
				}
				if err := txBalances.ApplyDelta(ctx, balance.ChangeRequest{
					UserID:     emp.ID.String(),
					LeaveType:  leaveType,
					Delta:      target.Sub(current),
					ChangeType: domain.ChangeYearlyReset,
					Reason:     reason,
					ChangedBy:  executedBy,
				}); err != nil {
					return err
				}
			}
			affected++
		}

		// Re-accrue the current month right away so casual balances don't
		// sit at zero until the next scheduler tick.
		_, accrualSkipped, err := s.accrueMonth(ctx, tx, now)
		if err != nil {
			return err
		}

		return s.writeMarker(ctx, tx, jobName, executedBy, map[string]any{
			"users_affected":  affected,
			"year":            year,
			"manual":          manual,
			"accrual_applied": !accrualSkipped,
		})
	})
	if err != nil {
		if errors.Is(err, joblog.ErrDuplicateJobName) {
			return JobResult{}, schedulererrors.ErrJobAlreadyExecuted
		}
		s.recordFailure(ctx, jobName, executedBy, err)
		return JobResult{}, err
	}

	s.logger.Info("yearly reset completed",
		zap.String("job_name", jobName),
		zap.Int("users_affected", affected),
		zap.Bool("manual", manual),
	)
	return JobResult{JobName: jobName, UsersAffected: affected}, nil
}

func (s *service) RecentJobs(ctx context.Context, limit int) ([]joblog.JobLog, error) {
	return s.jobs.FindRecent(ctx, limit)
}

func (s *service) writeMarker(ctx context.Context, tx *gorm.DB, jobName string, executedBy *uuid.UUID, details map[string]any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return s.jobs.WithTx(tx).Create(ctx, &joblog.JobLog{
		ID:         uuid.New(),
		JobName:    jobName,
		Status:     joblog.StatusSuccess,
		Details:    datatypes.JSON(payload),
		ExecutedBy: executedBy,
		ExecutedAt: time.Now().UTC(),
	})
}

// recordFailure writes a FAILED row outside the rolled-back transaction.
// Failed names get a timestamp suffix so retries never hit the unique index.
func (s *service) recordFailure(ctx context.Context, jobName string, executedBy *uuid.UUID, cause error) {
	payload, _ := json.Marshal(map[string]any{"error": cause.Error()})
	err := s.jobs.Create(ctx, &joblog.JobLog{
		ID:         uuid.New(),
		JobName:    fmt.Sprintf("%s_failed_%d", jobName, time.Now().UnixNano()),
		Status:     joblog.StatusFailed,
		Details:    datatypes.JSON(payload),
		ExecutedBy: executedBy,
		ExecutedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("record job failure failed",
			zap.String("job_name", jobName),
			zap.Error(err),
		)
	}
	s.logger.Error("job failed",
		zap.String("job_name", jobName),
		zap.Error(cause),
	)
}
