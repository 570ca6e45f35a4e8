package scheduler_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"leavedesk/internal/balance"
	"leavedesk/internal/domain"
	"leavedesk/internal/employee"
	"leavedesk/internal/joblog"
	"leavedesk/internal/policy"
	"leavedesk/internal/scheduler"
	schedulererrors "leavedesk/internal/scheduler/errors"
)

type fakeJobLogRepository struct {
	created            []joblog.JobLog
	createFn           func(ctx context.Context, log *joblog.JobLog) error
	hasSuccessFn       func(ctx context.Context, jobName string) (bool, error)
	hasYearlySuccessFn func(ctx context.Context, year int) (bool, error)
	findRecentFn       func(ctx context.Context, limit int) ([]joblog.JobLog, error)
}

func (f *fakeJobLogRepository) WithTx(tx *gorm.DB) joblog.Repository { return f }

func (f *fakeJobLogRepository) Create(ctx context.Context, log *joblog.JobLog) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, log); err != nil {
			return err
		}
	}
	f.created = append(f.created, *log)
	return nil
}

func (f *fakeJobLogRepository) FindByName(ctx context.Context, jobName string) (*joblog.JobLog, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeJobLogRepository) HasSuccess(ctx context.Context, jobName string) (bool, error) {
	if f.hasSuccessFn != nil {
		return f.hasSuccessFn(ctx, jobName)
	}
	return false, nil
}

func (f *fakeJobLogRepository) HasYearlyResetSuccess(ctx context.Context, year int) (bool, error) {
	if f.hasYearlySuccessFn != nil {
		return f.hasYearlySuccessFn(ctx, year)
	}
	return false, nil
}

func (f *fakeJobLogRepository) FindRecent(ctx context.Context, limit int) ([]joblog.JobLog, error) {
	if f.findRecentFn != nil {
		return f.findRecentFn(ctx, limit)
	}
	return nil, nil
}

// fakeBalanceService holds balances keyed by user and type so reset deltas
// can be checked against the resulting state.
type fakeBalanceService struct {
	balances map[string]decimal.Decimal
	deltas   []balance.ChangeRequest
	applyErr error
}

func balanceKey(userID string, leaveType domain.LeaveType) string {
	return userID + "/" + string(leaveType)
}

func (f *fakeBalanceService) WithTx(tx *gorm.DB) balance.Service { return f }

func (f *fakeBalanceService) Get(ctx context.Context, userID string, leaveType domain.LeaveType) (decimal.Decimal, error) {
	if amount, ok := f.balances[balanceKey(userID, leaveType)]; ok {
		return amount, nil
	}
	return decimal.Zero, nil
}

func (f *fakeBalanceService) All(ctx context.Context, userID string) ([]balance.BalanceResponse, error) {
	return nil, nil
}

func (f *fakeBalanceService) History(ctx context.Context, userID string, limit int) ([]balance.HistoryResponse, error) {
	return nil, nil
}

func (f *fakeBalanceService) ApplyDelta(ctx context.Context, req balance.ChangeRequest) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	if req.Delta.Round(2).IsZero() {
		return nil
	}
	f.deltas = append(f.deltas, req)
	key := balanceKey(req.UserID, req.LeaveType)
	f.balances[key] = f.balances[key].Add(req.Delta.Round(2))
	return nil
}

func (f *fakeBalanceService) Deduct(ctx context.Context, userID string, leaveType domain.LeaveType, amount decimal.Decimal, relatedRequestID *uuid.UUID, reason string) error {
	return nil
}

func (f *fakeBalanceService) Refund(ctx context.Context, userID string, leaveType domain.LeaveType, amount decimal.Decimal, relatedRequestID *uuid.UUID, reason string) error {
	return nil
}

func (f *fakeBalanceService) CheckSufficient(ctx context.Context, userID string, leaveType domain.LeaveType, required decimal.Decimal) error {
	return nil
}

func (f *fakeBalanceService) Set(ctx context.Context, changedBy string, req balance.SetBalanceRequest) (balance.BalanceResponse, error) {
	return balance.BalanceResponse{}, nil
}

type fakePolicyService struct {
	quota policy.Quota
}

func (f *fakePolicyService) Effective(ctx context.Context, year int) (policy.Quota, error) {
	return f.quota, nil
}

func (f *fakePolicyService) Upsert(ctx context.Context, req policy.UpsertPolicyRequest) (policy.PolicyResponse, error) {
	return policy.PolicyResponse{}, nil
}

func (f *fakePolicyService) List(ctx context.Context) ([]policy.PolicyResponse, error) {
	return nil, nil
}

type fakeEmployeeRepository struct {
	employees []employee.Employee
}

func (f *fakeEmployeeRepository) WithTx(tx *gorm.DB) employee.Repository { return f }

func (f *fakeEmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	return f.employees, nil
}

func (f *fakeEmployeeRepository) ListAll(ctx context.Context) ([]employee.Employee, error) {
	return f.employees, nil
}

func (f *fakeEmployeeRepository) FindFallbackApprover(ctx context.Context) (*employee.Employee, error) {
	return nil, gorm.ErrRecordNotFound
}

type schedulerServiceDeps struct {
	jobs      *fakeJobLogRepository
	balances  *fakeBalanceService
	policies  *fakePolicyService
	employees *fakeEmployeeRepository
	mock      sqlmock.Sqlmock
	svc       scheduler.Service
}

func setupSchedulerServiceTest(t *testing.T) *schedulerServiceDeps {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	assert.NoError(t, err)

	deps := &schedulerServiceDeps{
		jobs:     &fakeJobLogRepository{},
		balances: &fakeBalanceService{balances: map[string]decimal.Decimal{}},
		policies: &fakePolicyService{quota: policy.Quota{
			Casual: decimal.NewFromInt(12),
			Sick:   decimal.NewFromInt(5),
			WFH:    decimal.NewFromInt(2),
		}},
		employees: &fakeEmployeeRepository{},
		mock:      mock,
	}
	deps.svc = scheduler.NewService(gormDB, deps.jobs, deps.balances, deps.policies, deps.employees)
	return deps
}

var (
	empA = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	empB = uuid.MustParse("22222222-2222-4222-8222-222222222222")
)

func TestSchedulerService_RunMonthlyAccrual(t *testing.T) {
	ctx := context.Background()
	march := time.Date(2026, time.March, 1, 2, 0, 0, 0, time.UTC)

	t.Run("success credits one twelfth of the casual quota", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.employees.employees = []employee.Employee{{ID: empA}, {ID: empB}}
		deps.mock.ExpectBegin()
		deps.mock.ExpectCommit()

		got, err := deps.svc.RunMonthlyAccrual(ctx, march)

		assert.NoError(t, err)
		assert.Equal(t, "monthly_accrual_2026_03", got.JobName)
		assert.Equal(t, 2, got.UsersAffected)
		assert.Len(t, deps.balances.deltas, 2)
		assert.Equal(t, "1", deps.balances.deltas[0].Delta.String())
		assert.Equal(t, domain.LeaveTypeCasual, deps.balances.deltas[0].LeaveType)
		assert.Equal(t, domain.ChangeAccrual, deps.balances.deltas[0].ChangeType)

		assert.Len(t, deps.jobs.created, 1)
		assert.Equal(t, "monthly_accrual_2026_03", deps.jobs.created[0].JobName)
		assert.Equal(t, joblog.StatusSuccess, deps.jobs.created[0].Status)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("accrual rate rounds to two decimals", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.policies.quota.Casual = decimal.NewFromInt(10)
		deps.employees.employees = []employee.Employee{{ID: empA}}
		deps.mock.ExpectBegin()
		deps.mock.ExpectCommit()

		_, err := deps.svc.RunMonthlyAccrual(ctx, march)

		assert.NoError(t, err)
		assert.Equal(t, "0.83", deps.balances.deltas[0].Delta.String())
	})

	t.Run("negative second run for the same month", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.jobs.hasSuccessFn = func(ctx context.Context, jobName string) (bool, error) {
			return jobName == "monthly_accrual_2026_03", nil
		}

		_, err := deps.svc.RunMonthlyAccrual(ctx, march)

		assert.ErrorIs(t, err, schedulererrors.ErrJobAlreadyExecuted)
		assert.Empty(t, deps.balances.deltas)
	})

	t.Run("negative concurrent run loses on the marker insert", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.employees.employees = []employee.Employee{{ID: empA}}
		deps.jobs.createFn = func(ctx context.Context, log *joblog.JobLog) error {
			return joblog.ErrDuplicateJobName
		}
		deps.mock.ExpectBegin()
		deps.mock.ExpectRollback()

		_, err := deps.svc.RunMonthlyAccrual(ctx, march)

		assert.ErrorIs(t, err, schedulererrors.ErrJobAlreadyExecuted)
		assert.Empty(t, deps.jobs.created)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("failure writes a FAILED row instead of the marker", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.employees.employees = []employee.Employee{{ID: empA}}
		deps.balances.applyErr = errors.New("balance row corrupted")
		deps.mock.ExpectBegin()
		deps.mock.ExpectRollback()

		_, err := deps.svc.RunMonthlyAccrual(ctx, march)

		assert.Error(t, err)
		assert.Len(t, deps.jobs.created, 1)
		assert.Equal(t, joblog.StatusFailed, deps.jobs.created[0].Status)
		assert.True(t, strings.HasPrefix(deps.jobs.created[0].JobName, "monthly_accrual_2026_03_failed_"))
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})
}

func TestSchedulerService_RunYearlyReset(t *testing.T) {
	ctx := context.Background()
	january := time.Date(2026, time.January, 1, 1, 0, 0, 0, time.UTC)

	t.Run("success resets pools to their yearly targets", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.employees.employees = []employee.Employee{{ID: empA}}
		deps.balances.balances = map[string]decimal.Decimal{
			balanceKey(empA.String(), domain.LeaveTypeCasual):  decimal.NewFromInt(3),
			balanceKey(empA.String(), domain.LeaveTypeEarned):  decimal.NewFromInt(2),
			balanceKey(empA.String(), domain.LeaveTypeSick):    decimal.NewFromInt(1),
			balanceKey(empA.String(), domain.LeaveTypeCompOff): decimal.NewFromInt(4),
		}
		deps.mock.ExpectBegin()
		deps.mock.ExpectCommit()

		got, err := deps.svc.RunYearlyReset(ctx, january, false, nil)

		assert.NoError(t, err)
		assert.Equal(t, "yearly_reset_2026", got.JobName)
		assert.Equal(t, 1, got.UsersAffected)

		// Casual resets to zero, then the chained January accrual lands
		// one twelfth of the quota on top.
		assert.Equal(t, "1", deps.balances.balances[balanceKey(empA.String(), domain.LeaveTypeCasual)].String())
		assert.True(t, deps.balances.balances[balanceKey(empA.String(), domain.LeaveTypeEarned)].IsZero())
		assert.Equal(t, "5", deps.balances.balances[balanceKey(empA.String(), domain.LeaveTypeSick)].String())
		assert.Equal(t, "2", deps.balances.balances[balanceKey(empA.String(), domain.LeaveTypeWFH)].String())
		// Comp-off credits carry over.
		assert.Equal(t, "4", deps.balances.balances[balanceKey(empA.String(), domain.LeaveTypeCompOff)].String())

		// Monthly marker commits first, the yearly marker seals the run.
		assert.Len(t, deps.jobs.created, 2)
		assert.Equal(t, "monthly_accrual_2026_01", deps.jobs.created[0].JobName)
		assert.Equal(t, "yearly_reset_2026", deps.jobs.created[1].JobName)
		assert.Equal(t, joblog.StatusSuccess, deps.jobs.created[0].Status)
		assert.Equal(t, joblog.StatusSuccess, deps.jobs.created[1].Status)
		assert.NoError(t, deps.mock.ExpectationsWereMet())
	})

	t.Run("success re-accrual skips when the month already accrued", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.employees.employees = []employee.Employee{{ID: empA}}
		deps.balances.balances = map[string]decimal.Decimal{
			balanceKey(empA.String(), domain.LeaveTypeCasual): decimal.NewFromInt(3),
		}
		deps.jobs.hasSuccessFn = func(ctx context.Context, jobName string) (bool, error) {
			return jobName == "monthly_accrual_2026_01", nil
		}
		deps.mock.ExpectBegin()
		deps.mock.ExpectCommit()

		_, err := deps.svc.RunYearlyReset(ctx, january, false, nil)

		assert.NoError(t, err)
		assert.True(t, deps.balances.balances[balanceKey(empA.String(), domain.LeaveTypeCasual)].IsZero())
		assert.Len(t, deps.jobs.created, 1)
		assert.Equal(t, "yearly_reset_2026", deps.jobs.created[0].JobName)
	})

	t.Run("manual run records the actor under a timestamped name", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.employees.employees = []employee.Employee{{ID: empA}}
		actor := uuid.MustParse("33333333-3333-4333-8333-333333333333")
		deps.mock.ExpectBegin()
		deps.mock.ExpectCommit()

		got, err := deps.svc.RunYearlyReset(ctx, january, true, &actor)

		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(got.JobName, "manual_yearly_reset_2026_"))
		assert.Len(t, deps.jobs.created, 2)
		yearly := deps.jobs.created[1]
		assert.True(t, strings.HasPrefix(yearly.JobName, "manual_yearly_reset_2026_"))
		assert.NotNil(t, yearly.ExecutedBy)
		assert.Equal(t, actor, *yearly.ExecutedBy)
	})

	t.Run("negative any earlier reset for the year locks both variants", func(t *testing.T) {
		deps := setupSchedulerServiceTest(t)
		deps.jobs.hasYearlySuccessFn = func(ctx context.Context, year int) (bool, error) {
			return year == 2026, nil
		}

		_, err := deps.svc.RunYearlyReset(ctx, january, true, nil)

		assert.ErrorIs(t, err, schedulererrors.ErrJobAlreadyExecuted)
		assert.Empty(t, deps.balances.deltas)
	})
}
