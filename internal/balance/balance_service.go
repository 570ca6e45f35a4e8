package balance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	balanceerrors "leavedesk/internal/balance/errors"
	"leavedesk/internal/domain"
	"leavedesk/internal/shared/apperror"
)

func apperrInsufficient(format string, args ...any) error {
	return apperror.Detailf(balanceerrors.ErrInsufficientBalance, format, args...)
}

// ChangeRequest is one balance mutation. Delta is signed: negative for
// deductions, positive for refunds and accruals.
type ChangeRequest struct {
	UserID           string
	LeaveType        domain.LeaveType
	Delta            decimal.Decimal
	ChangeType       domain.ChangeType
	Reason           string
	RelatedRequestID *uuid.UUID
	ChangedBy        *uuid.UUID
}

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Service interface {
	// WithTx returns a service whose mutations run on the given transaction.
	// ApplyDelta, Deduct and Refund must only be called on a tx-scoped
	// service, the caller owns commit and rollback.
	WithTx(tx *gorm.DB) Service

	Get(ctx context.Context, userID string, leaveType domain.LeaveType) (decimal.Decimal, error)
	All(ctx context.Context, userID string) ([]BalanceResponse, error)
	History(ctx context.Context, userID string, limit int) ([]HistoryResponse, error)

	// ApplyDelta mutates a single balance row under a row lock and writes
	// one ledger entry. A zero delta after rounding is a no-op.
	ApplyDelta(ctx context.Context, req ChangeRequest) error
	// Deduct removes amount for a request of the given type. Casual requests
	// drain the earned pool first, then casual. Sufficiency is validated
	// against rows read under FOR UPDATE, in the caller's transaction.
	Deduct(ctx context.Context, userID string, leaveType domain.LeaveType, amount decimal.Decimal, relatedRequestID *uuid.UUID, reason string) error
	// Refund returns amount for a request of the given type. Casual requests
	// refund to the casual pool only, regardless of how the deduction split.
	Refund(ctx context.Context, userID string, leaveType domain.LeaveType, amount decimal.Decimal, relatedRequestID *uuid.UUID, reason string) error
	CheckSufficient(ctx context.Context, userID string, leaveType domain.LeaveType, required decimal.Decimal) error

	// Set overwrites one balance to an absolute value, recording the delta
	// as a manual adjustment. Runs in its own transaction.
	Set(ctx context.Context, changedBy string, req SetBalanceRequest) (BalanceResponse, error)
}

type service struct {
	db     *gorm.DB
	repo   Repository
	logger *zap.Logger
}

func NewService(db *gorm.DB, repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{db: db, repo: repo, logger: l}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{db: tx, repo: s.repo.WithTx(tx), logger: s.logger}
}

func (s *service) Get(ctx context.Context, userID string, leaveType domain.LeaveType) (decimal.Decimal, error) {
	if !leaveType.HasBalance() {
		return decimal.Zero, balanceerrors.ErrNoBalanceTracking
	}

	b, err := s.repo.Find(ctx, userID, leaveType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return b.Balance, nil
}

func (s *service) All(ctx context.Context, userID string) ([]BalanceResponse, error) {
	balances, err := s.repo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byType := make(map[domain.LeaveType]decimal.Decimal, len(balances))
	for _, b := range balances {
		byType[b.LeaveType] = b.Balance
	}

	// Every balance-carrying type shows up, absent rows read as zero.
	res := make([]BalanceResponse, 0, len(domain.BalanceLeaveTypes))
	for _, t := range domain.BalanceLeaveTypes {
		amount, ok := byType[t]
		if !ok {
			amount = decimal.Zero
		}
		res = append(res, BalanceResponse{
			LeaveType:   string(t),
			DisplayName: t.DisplayName(),
			Balance:     amount.StringFixed(2),
		})
	}
	return res, nil
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]HistoryResponse, error) {
	history, err := s.repo.FindHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	res := make([]HistoryResponse, len(history))
	for i, h := range history {
		res[i] = mapHistoryToResponse(h)
	}
	return res, nil
}

func (s *service) ApplyDelta(ctx context.Context, req ChangeRequest) error {
	if !req.LeaveType.HasBalance() {
		return balanceerrors.ErrNoBalanceTracking
	}

	delta := req.Delta.Round(2)
	if delta.IsZero() {
		return nil
	}

	b, err := s.repo.FindForUpdate(ctx, req.UserID, req.LeaveType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		b = &LeaveBalance{
			ID:        uuid.New(),
			UserID:    uuid.MustParse(req.UserID),
			LeaveType: req.LeaveType,
			Balance:   decimal.Zero,
		}
	} else if err != nil {
		return err
	}

	previous := b.Balance
	b.Balance = b.Balance.Add(delta)
	b.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}

	entry := &BalanceHistory{
		ID:               uuid.New(),
		UserID:           b.UserID,
		LeaveType:        req.LeaveType,
		ChangeAmount:     delta,
		PreviousBalance:  previous,
		BalanceAfter:     b.Balance,
		ChangeType:       req.ChangeType,
		Reason:           req.Reason,
		RelatedRequestID: req.RelatedRequestID,
		ChangedBy:        req.ChangedBy,
	}
	if err := s.repo.RecordChange(ctx, entry); err != nil {
		return err
	}

	s.logger.Debug("balance changed",
		zap.String("user_id", req.UserID),
		zap.String("leave_type", string(req.LeaveType)),
		zap.String("delta", delta.String()),
		zap.String("change_type", string(req.ChangeType)),
	)
	return nil
}

func (s *service) CheckSufficient(ctx context.Context, userID string, leaveType domain.LeaveType, required decimal.Decimal) error {
	if !leaveType.HasBalance() {
		return nil
	}

	if leaveType == domain.LeaveTypeCasual {
		casual, err := s.Get(ctx, userID, domain.LeaveTypeCasual)
		if err != nil {
			return err
		}
		earned, err := s.Get(ctx, userID, domain.LeaveTypeEarned)
		if err != nil {
			return err
		}
		total := casual.Add(earned)
		if total.LessThan(required) {
			return apperrInsufficient(
				"Insufficient balance. Available: %s (Casual: %s, Earned: %s), Required: %s",
				total.StringFixed(2), casual.StringFixed(2), earned.StringFixed(2), required.StringFixed(2),
			)
		}
		return nil
	}

	available, err := s.Get(ctx, userID, leaveType)
	if err != nil {
		return err
	}
	if available.LessThan(required) {
		return apperrInsufficient(
			"Insufficient balance. Available: %s, Required: %s",
			available.StringFixed(2), required.StringFixed(2),
		)
	}
	return nil
}

// lockedBalance reads one balance under FOR UPDATE, a missing row reads as
// zero. Must run inside the caller's transaction.
func (s *service) lockedBalance(ctx context.Context, userID string, leaveType domain.LeaveType) (decimal.Decimal, error) {
	b, err := s.repo.FindForUpdate(ctx, userID, leaveType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return b.Balance, nil
}

func (s *service) Deduct(ctx context.Context, userID string, leaveType domain.LeaveType, amount decimal.Decimal, relatedRequestID *uuid.UUID, reason string) error {
	if !leaveType.HasBalance() {
		return nil
	}

	// Sufficiency is re-checked here against rows locked FOR UPDATE. The
	// CheckSufficient call at apply time reads an unlocked snapshot, so a
	// concurrent approval may have drained the balance since.
	if leaveType == domain.LeaveTypeCasual {
		earned, err := s.lockedBalance(ctx, userID, domain.LeaveTypeEarned)
		if err != nil {
			return err
		}
		casual, err := s.lockedBalance(ctx, userID, domain.LeaveTypeCasual)
		if err != nil {
			return err
		}
		total := casual.Add(earned)
		if total.LessThan(amount) {
			return apperrInsufficient(
				"Insufficient balance. Available: %s (Casual: %s, Earned: %s), Required: %s",
				total.StringFixed(2), casual.StringFixed(2), earned.StringFixed(2), amount.StringFixed(2),
			)
		}

		// Earned pool drains first so casual days stay usable longer.
		fromEarned := decimal.Min(earned, amount)
		fromCasual := amount.Sub(fromEarned)

		if err := s.ApplyDelta(ctx, ChangeRequest{
			UserID:           userID,
			LeaveType:        domain.LeaveTypeEarned,
			Delta:            fromEarned.Neg(),
			ChangeType:       domain.ChangeDeduction,
			Reason:           reason,
			RelatedRequestID: relatedRequestID,
		}); err != nil {
			return err
		}
		return s.ApplyDelta(ctx, ChangeRequest{
			UserID:           userID,
			LeaveType:        domain.LeaveTypeCasual,
			Delta:            fromCasual.Neg(),
			ChangeType:       domain.ChangeDeduction,
			Reason:           reason,
			RelatedRequestID: relatedRequestID,
		})
	}

	available, err := s.lockedBalance(ctx, userID, leaveType)
	if err != nil {
		return err
	}
	if available.LessThan(amount) {
		return apperrInsufficient(
			"Insufficient balance. Available: %s, Required: %s",
			available.StringFixed(2), amount.StringFixed(2),
		)
	}

	return s.ApplyDelta(ctx, ChangeRequest{
		UserID:           userID,
		LeaveType:        leaveType,
		Delta:            amount.Neg(),
		ChangeType:       domain.ChangeDeduction,
		Reason:           reason,
		RelatedRequestID: relatedRequestID,
	})
}

func (s *service) Refund(ctx context.Context, userID string, leaveType domain.LeaveType, amount decimal.Decimal, relatedRequestID *uuid.UUID, reason string) error {
	if !leaveType.HasBalance() {
		return nil
	}

	// Refunds credit the request's own pool. A casual deduction's earned
	// split is not restored.
	return s.ApplyDelta(ctx, ChangeRequest{
		UserID:           userID,
		LeaveType:        leaveType,
		Delta:            amount,
		ChangeType:       domain.ChangeRefund,
		Reason:           reason,
		RelatedRequestID: relatedRequestID,
	})
}

func (s *service) Set(ctx context.Context, changedBy string, req SetBalanceRequest) (BalanceResponse, error) {
	leaveType, ok := domain.ParseLeaveType(req.LeaveType)
	if !ok {
		return BalanceResponse{}, balanceerrors.ErrUnknownLeaveType
	}
	if !leaveType.HasBalance() {
		return BalanceResponse{}, balanceerrors.ErrNoBalanceTracking
	}

	target := decimal.NewFromFloat(req.Balance).Round(2)
	if target.IsNegative() {
		return BalanceResponse{}, balanceerrors.ErrInvalidAdjustment
	}

	actor, err := uuid.Parse(changedBy)
	if err != nil {
		return BalanceResponse{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSvc := s.WithTx(tx).(*service)

		current, err := txSvc.Get(ctx, req.UserID, leaveType)
		if err != nil {
			return err
		}

		return txSvc.ApplyDelta(ctx, ChangeRequest{
			UserID:     req.UserID,
			LeaveType:  leaveType,
			Delta:      target.Sub(current),
			ChangeType: domain.ChangeManualAdjustment,
			Reason:     req.Reason,
			ChangedBy:  &actor,
		})
	})
	if err != nil {
		return BalanceResponse{}, err
	}

	s.logger.Info("balance manually adjusted",
		zap.String("user_id", req.UserID),
		zap.String("leave_type", string(leaveType)),
		zap.String("balance", target.String()),
		zap.String("changed_by", changedBy),
	)
	return BalanceResponse{
		LeaveType:   string(leaveType),
		DisplayName: leaveType.DisplayName(),
		Balance:     target.StringFixed(2),
	}, nil
}

func mapHistoryToResponse(h BalanceHistory) HistoryResponse {
	resp := HistoryResponse{
		ID:              h.ID.String(),
		LeaveType:       string(h.LeaveType),
		ChangeAmount:    h.ChangeAmount.StringFixed(2),
		PreviousBalance: h.PreviousBalance.StringFixed(2),
		BalanceAfter:    h.BalanceAfter.StringFixed(2),
		ChangeType:      string(h.ChangeType),
		Reason:          h.Reason,
		CreatedAt:       h.CreatedAt.Format(time.RFC3339),
	}
	if h.RelatedRequestID != nil {
		id := h.RelatedRequestID.String()
		resp.RelatedRequestID = &id
	}
	return resp
}
