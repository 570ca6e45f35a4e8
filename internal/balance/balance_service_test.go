package balance_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"leavedesk/internal/balance"
	balanceerrors "leavedesk/internal/balance/errors"
	"leavedesk/internal/domain"
)

// fakeBalanceRepository keeps balances in memory so deduction order and
// ledger writes can be observed. When locked is set, FindForUpdate reads
// it while Find keeps reading balances, simulating a row another
// transaction changed after an unlocked snapshot was taken.
type fakeBalanceRepository struct {
	balances map[domain.LeaveType]decimal.Decimal
	locked   map[domain.LeaveType]decimal.Decimal
	history  []balance.BalanceHistory
	findErr  error
}

func newFakeBalanceRepository(balances map[domain.LeaveType]decimal.Decimal) *fakeBalanceRepository {
	if balances == nil {
		balances = map[domain.LeaveType]decimal.Decimal{}
	}
	return &fakeBalanceRepository{balances: balances}
}

func (f *fakeBalanceRepository) WithTx(tx *gorm.DB) balance.Repository { return f }

func (f *fakeBalanceRepository) Find(ctx context.Context, userID string, leaveType domain.LeaveType) (*balance.LeaveBalance, error) {
	return f.lookupIn(f.balances, userID, leaveType)
}

func (f *fakeBalanceRepository) FindForUpdate(ctx context.Context, userID string, leaveType domain.LeaveType) (*balance.LeaveBalance, error) {
	if f.locked != nil {
		return f.lookupIn(f.locked, userID, leaveType)
	}
	return f.lookupIn(f.balances, userID, leaveType)
}

func (f *fakeBalanceRepository) lookupIn(src map[domain.LeaveType]decimal.Decimal, userID string, leaveType domain.LeaveType) (*balance.LeaveBalance, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	amount, ok := src[leaveType]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &balance.LeaveBalance{
		ID:        uuid.New(),
		UserID:    uuid.MustParse(userID),
		LeaveType: leaveType,
		Balance:   amount,
	}, nil
}

func (f *fakeBalanceRepository) FindAllByUser(ctx context.Context, userID string) ([]balance.LeaveBalance, error) {
	res := make([]balance.LeaveBalance, 0, len(f.balances))
	for leaveType, amount := range f.balances {
		res = append(res, balance.LeaveBalance{
			ID:        uuid.New(),
			UserID:    uuid.MustParse(userID),
			LeaveType: leaveType,
			Balance:   amount,
		})
	}
	return res, nil
}

func (f *fakeBalanceRepository) Save(ctx context.Context, b *balance.LeaveBalance) error {
	f.balances[b.LeaveType] = b.Balance
	return nil
}

func (f *fakeBalanceRepository) RecordChange(ctx context.Context, h *balance.BalanceHistory) error {
	f.history = append(f.history, *h)
	return nil
}

func (f *fakeBalanceRepository) FindHistory(ctx context.Context, userID string, limit int) ([]balance.BalanceHistory, error) {
	return f.history, nil
}

const testUserID = "0c9a1f6e-9a3e-4f2e-8b1a-1d2e3f4a5b6c"

func TestBalanceService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("absent row reads as zero", func(t *testing.T) {
		repo := newFakeBalanceRepository(nil)
		svc := balance.NewService(nil, repo)

		got, err := svc.Get(ctx, testUserID, domain.LeaveTypeCasual)

		assert.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("negative untracked leave type", func(t *testing.T) {
		svc := balance.NewService(nil, newFakeBalanceRepository(nil))

		_, err := svc.Get(ctx, testUserID, domain.LeaveTypeMaternity)

		assert.ErrorIs(t, err, balanceerrors.ErrNoBalanceTracking)
	})
}

func TestBalanceService_All(t *testing.T) {
	ctx := context.Background()

	t.Run("every tracked type listed with zero fill", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeCasual: decimal.NewFromInt(7),
		})
		svc := balance.NewService(nil, repo)

		got, err := svc.All(ctx, testUserID)

		assert.NoError(t, err)
		assert.Len(t, got, len(domain.BalanceLeaveTypes))

		byType := make(map[string]string, len(got))
		for _, b := range got {
			byType[b.LeaveType] = b.Balance
		}
		assert.Equal(t, "7.00", byType[string(domain.LeaveTypeCasual)])
		assert.Equal(t, "0.00", byType[string(domain.LeaveTypeSick)])
	})
}

func TestBalanceService_ApplyDelta(t *testing.T) {
	ctx := context.Background()

	t.Run("success writes one ledger row", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeSick: decimal.NewFromInt(5),
		})
		svc := balance.NewService(nil, repo)

		err := svc.ApplyDelta(ctx, balance.ChangeRequest{
			UserID:     testUserID,
			LeaveType:  domain.LeaveTypeSick,
			Delta:      decimal.NewFromInt(-2),
			ChangeType: domain.ChangeDeduction,
			Reason:     "sick leave",
		})

		assert.NoError(t, err)
		assert.Equal(t, "3", repo.balances[domain.LeaveTypeSick].String())
		assert.Len(t, repo.history, 1)
		assert.Equal(t, "-2", repo.history[0].ChangeAmount.String())
		assert.Equal(t, "5", repo.history[0].PreviousBalance.String())
		assert.Equal(t, "3", repo.history[0].BalanceAfter.String())
		assert.Equal(t, domain.ChangeDeduction, repo.history[0].ChangeType)
	})

	t.Run("zero delta is a no-op", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeSick: decimal.NewFromInt(5),
		})
		svc := balance.NewService(nil, repo)

		err := svc.ApplyDelta(ctx, balance.ChangeRequest{
			UserID:     testUserID,
			LeaveType:  domain.LeaveTypeSick,
			Delta:      decimal.Zero,
			ChangeType: domain.ChangeAccrual,
		})

		assert.NoError(t, err)
		assert.Empty(t, repo.history)
		assert.Equal(t, "5", repo.balances[domain.LeaveTypeSick].String())
	})

	t.Run("missing row is created on first accrual", func(t *testing.T) {
		repo := newFakeBalanceRepository(nil)
		svc := balance.NewService(nil, repo)

		err := svc.ApplyDelta(ctx, balance.ChangeRequest{
			UserID:     testUserID,
			LeaveType:  domain.LeaveTypeEarned,
			Delta:      decimal.NewFromInt(1),
			ChangeType: domain.ChangeAccrual,
			Reason:     "monthly accrual",
		})

		assert.NoError(t, err)
		assert.Equal(t, "1", repo.balances[domain.LeaveTypeEarned].String())
		assert.Len(t, repo.history, 1)
		assert.Equal(t, "0", repo.history[0].PreviousBalance.String())
	})
}

func TestBalanceService_Deduct(t *testing.T) {
	ctx := context.Background()

	t.Run("casual drains earned pool first", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeCasual: decimal.NewFromInt(5),
			domain.LeaveTypeEarned: decimal.NewFromInt(2),
		})
		svc := balance.NewService(nil, repo)

		err := svc.Deduct(ctx, testUserID, domain.LeaveTypeCasual, decimal.NewFromInt(3), nil, "leave approved")

		assert.NoError(t, err)
		assert.Equal(t, "0", repo.balances[domain.LeaveTypeEarned].String())
		assert.Equal(t, "4", repo.balances[domain.LeaveTypeCasual].String())
		assert.Len(t, repo.history, 2)
		assert.Equal(t, domain.LeaveTypeEarned, repo.history[0].LeaveType)
		assert.Equal(t, "-2", repo.history[0].ChangeAmount.String())
		assert.Equal(t, domain.LeaveTypeCasual, repo.history[1].LeaveType)
		assert.Equal(t, "-1", repo.history[1].ChangeAmount.String())
	})

	t.Run("casual covered entirely by earned leaves casual untouched", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeCasual: decimal.NewFromInt(5),
			domain.LeaveTypeEarned: decimal.NewFromInt(4),
		})
		svc := balance.NewService(nil, repo)

		err := svc.Deduct(ctx, testUserID, domain.LeaveTypeCasual, decimal.NewFromInt(3), nil, "leave approved")

		assert.NoError(t, err)
		assert.Equal(t, "1", repo.balances[domain.LeaveTypeEarned].String())
		assert.Equal(t, "5", repo.balances[domain.LeaveTypeCasual].String())
		// The zero casual delta writes no ledger row.
		assert.Len(t, repo.history, 1)
	})

	t.Run("negative insufficient combined balance", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeCasual: decimal.NewFromInt(1),
			domain.LeaveTypeEarned: decimal.NewFromInt(1),
		})
		svc := balance.NewService(nil, repo)

		err := svc.Deduct(ctx, testUserID, domain.LeaveTypeCasual, decimal.NewFromInt(3), nil, "leave approved")

		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
		assert.Contains(t, err.Error(), "Available: 2.00 (Casual: 1.00, Earned: 1.00), Required: 3.00")
		assert.Empty(t, repo.history)
	})

	t.Run("negative row drained after the unlocked check", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeSick: decimal.NewFromInt(5),
		})
		repo.locked = map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeSick: decimal.NewFromInt(1),
		}
		svc := balance.NewService(nil, repo)

		err := svc.Deduct(ctx, testUserID, domain.LeaveTypeSick, decimal.NewFromInt(4), nil, "sick leave")

		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
		assert.Contains(t, err.Error(), "Available: 1.00, Required: 4.00")
		assert.Empty(t, repo.history)
	})

	t.Run("negative casual pools drained after the unlocked check", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeCasual: decimal.NewFromInt(5),
			domain.LeaveTypeEarned: decimal.NewFromInt(5),
		})
		repo.locked = map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeCasual: decimal.NewFromInt(1),
			domain.LeaveTypeEarned: decimal.Zero,
		}
		svc := balance.NewService(nil, repo)

		err := svc.Deduct(ctx, testUserID, domain.LeaveTypeCasual, decimal.NewFromInt(3), nil, "leave approved")

		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
		assert.Contains(t, err.Error(), "Available: 1.00 (Casual: 1.00, Earned: 0.00), Required: 3.00")
		assert.Empty(t, repo.history)
	})

	t.Run("untracked type deducts nothing", func(t *testing.T) {
		repo := newFakeBalanceRepository(nil)
		svc := balance.NewService(nil, repo)

		err := svc.Deduct(ctx, testUserID, domain.LeaveTypeMaternity, decimal.NewFromInt(90), nil, "maternity leave")

		assert.NoError(t, err)
		assert.Empty(t, repo.history)
	})
}

func TestBalanceService_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("casual refund credits the casual pool only", func(t *testing.T) {
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeCasual: decimal.NewFromInt(4),
			domain.LeaveTypeEarned: decimal.Zero,
		})
		svc := balance.NewService(nil, repo)

		err := svc.Refund(ctx, testUserID, domain.LeaveTypeCasual, decimal.NewFromInt(3), nil, "leave cancelled")

		assert.NoError(t, err)
		assert.Equal(t, "7", repo.balances[domain.LeaveTypeCasual].String())
		assert.Equal(t, "0", repo.balances[domain.LeaveTypeEarned].String())
		assert.Len(t, repo.history, 1)
		assert.Equal(t, domain.LeaveTypeCasual, repo.history[0].LeaveType)
		assert.Equal(t, domain.ChangeRefund, repo.history[0].ChangeType)
	})
}

func TestBalanceService_Set(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	newTestGorm := func(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
		t.Helper()
		sqlDB, mock, err := sqlmock.New()
		assert.NoError(t, err)
		t.Cleanup(func() { sqlDB.Close() })
		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
		assert.NoError(t, err)
		return gormDB, mock
	}

	t.Run("success records the delta as a manual adjustment", func(t *testing.T) {
		gormDB, mock := newTestGorm(t)
		repo := newFakeBalanceRepository(map[domain.LeaveType]decimal.Decimal{
			domain.LeaveTypeSick: decimal.NewFromInt(3),
		})
		svc := balance.NewService(gormDB, repo)

		mock.ExpectBegin()
		mock.ExpectCommit()

		got, err := svc.Set(ctx, actorID.String(), balance.SetBalanceRequest{
			UserID:    testUserID,
			LeaveType: "SICK",
			Balance:   5,
			Reason:    "correction",
		})

		assert.NoError(t, err)
		assert.Equal(t, "5.00", got.Balance)
		assert.Equal(t, "5", repo.balances[domain.LeaveTypeSick].String())
		assert.Len(t, repo.history, 1)
		assert.Equal(t, "2", repo.history[0].ChangeAmount.String())
		assert.Equal(t, domain.ChangeManualAdjustment, repo.history[0].ChangeType)
		assert.NotNil(t, repo.history[0].ChangedBy)
		assert.Equal(t, actorID, *repo.history[0].ChangedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative unknown leave type", func(t *testing.T) {
		svc := balance.NewService(nil, newFakeBalanceRepository(nil))

		_, err := svc.Set(ctx, actorID.String(), balance.SetBalanceRequest{
			UserID:    testUserID,
			LeaveType: "VACATION",
			Balance:   5,
			Reason:    "correction",
		})

		assert.ErrorIs(t, err, balanceerrors.ErrUnknownLeaveType)
	})

	t.Run("negative untracked leave type", func(t *testing.T) {
		svc := balance.NewService(nil, newFakeBalanceRepository(nil))

		_, err := svc.Set(ctx, actorID.String(), balance.SetBalanceRequest{
			UserID:    testUserID,
			LeaveType: "MATERNITY",
			Balance:   5,
			Reason:    "correction",
		})

		assert.ErrorIs(t, err, balanceerrors.ErrNoBalanceTracking)
	})
}
