package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leavedesk/internal/balance"
	"leavedesk/internal/calendar"
	"leavedesk/internal/domain"
	"leavedesk/internal/employee"
	"leavedesk/internal/events"
	leaveerrors "leavedesk/internal/leave/errors"
	"leavedesk/internal/messaging/kafka"
	"leavedesk/internal/shared/apperror"
)

const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"

	// Maternity leave is a fixed 180 calendar days from the start date.
	maternityDays = 180

	dateLayout = "2006-01-02"
)

// Actor identifies who is performing a workflow action. Elevated actors
// (HR, admin) may decide any request, not just their own reports'.
type Actor struct {
	ID       string
	Elevated bool
}

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Apply(ctx context.Context, userID string, req ApplyLeaveRequest) (LeaveResponse, error)
	Decide(ctx context.Context, id string, actor Actor, action string, note *string) (LeaveResponse, error)
	// Cancel is the owner's direct cancellation. Pending requests cancel
	// without any balance movement, approved ones refund the deducted days.
	Cancel(ctx context.Context, id, userID string) (LeaveResponse, error)
	// RequestCancellation asks the approver to confirm cancelling an
	// approved request instead of cancelling it outright.
	RequestCancellation(ctx context.Context, id, userID string) (LeaveResponse, error)
	Get(ctx context.Context, id string, actor Actor) (LeaveResponse, error)
	Mine(ctx context.Context, userID string) ([]LeaveResponse, error)
	Pending(ctx context.Context, actor Actor) ([]LeaveResponse, error)

	ClaimCompOff(ctx context.Context, userID string, req ClaimCompOffRequest) (CompOffResponse, error)
	DecideCompOff(ctx context.Context, id string, actor Actor, action string) (CompOffResponse, error)
	MyCompOffs(ctx context.Context, userID string) ([]CompOffResponse, error)
	PendingCompOffs(ctx context.Context) ([]CompOffResponse, error)
}

type service struct {
	db        *gorm.DB
	repo      Repository
	balances  balance.Service
	cal       calendar.Service
	employees employee.Repository
	outbox    kafka.OutboxRepository
	logger    *zap.Logger
}

func NewService(
	db *gorm.DB,
	repo Repository,
	balances balance.Service,
	cal calendar.Service,
	employees employee.Repository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		balances:  balances,
		cal:       cal,
		employees: employees,
		logger:    l,
	}
}

// NewServiceWithOutbox also records workflow events for the kafka worker.
func NewServiceWithOutbox(
	db *gorm.DB,
	repo Repository,
	balances balance.Service,
	cal calendar.Service,
	employees employee.Repository,
	outbox kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	s := NewService(db, repo, balances, cal, employees, logger...).(*service)
	s.outbox = outbox
	return s
}

func (s *service) Apply(ctx context.Context, userID string, req ApplyLeaveRequest) (LeaveResponse, error) {
	s.logger.Debug("apply leave requested",
		zap.String("user_id", userID),
		zap.String("leave_type", req.LeaveType),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidUserID
	}

	leaveType, ok := domain.ParseLeaveType(req.LeaveType)
	if !ok {
		return LeaveResponse{}, leaveerrors.ErrUnknownLeaveType
	}
	if leaveType == domain.LeaveTypeEarned {
		return LeaveResponse{}, leaveerrors.ErrEarnedNotApplicable
	}

	startDate, endDate, err := resolveDates(leaveType, req.StartDate, req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}

	// Day count is frozen here, later holiday changes never reprice the
	// request.
	deducted := decimal.Zero
	if leaveType.HasBalance() {
		if endDate == nil {
			return LeaveResponse{}, leaveerrors.ErrEndDateRequired
		}
		deducted, err = s.cal.DeductibleDays(ctx, *startDate, *endDate)
		if err != nil {
			return LeaveResponse{}, err
		}
		if deducted.IsZero() {
			return LeaveResponse{}, leaveerrors.ErrNoWorkingDays
		}
		if err := s.balances.CheckSufficient(ctx, userID, leaveType, deducted); err != nil {
			return LeaveResponse{}, err
		}
	}

	approverID, err := s.resolveApprover(ctx, userID)
	if err != nil {
		return LeaveResponse{}, err
	}

	l := &LeaveRequest{
		ID:           uuid.New(),
		UserID:       userUUID,
		LeaveType:    leaveType,
		StartDate:    *startDate,
		EndDate:      endDate,
		DeductedDays: deducted,
		Reason:       req.Reason,
		Status:       StatusPending,
		ApproverID:   approverID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		active, err := qtx.FindActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, existing := range active {
			if calendar.RangesOverlap(*startDate, endDate, existing.StartDate, existing.EndDate) {
				s.logger.Warn("apply leave overlap detected",
					zap.String("user_id", userID),
					zap.String("existing_id", existing.ID.String()),
					zap.String("existing_status", string(existing.Status)),
				)
				conflictRange := fmt.Sprintf("%s (open-ended)", existing.StartDate.Format(dateLayout))
				if existing.EndDate != nil {
					conflictRange = fmt.Sprintf("%s to %s",
						existing.StartDate.Format(dateLayout), existing.EndDate.Format(dateLayout))
				}
				return apperror.Detailf(leaveerrors.ErrLeaveOverlap,
					"Leave request overlaps with an existing %s request (%s)",
					existing.Status, conflictRange,
				)
			}
		}

		if err := qtx.Create(ctx, l); err != nil {
			return err
		}

		return s.emitRequested(ctx, tx, l)
	})
	if err != nil {
		return LeaveResponse{}, err
	}

	s.logger.Info("apply leave success",
		zap.String("request_id", l.ID.String()),
		zap.String("user_id", userID),
		zap.String("leave_type", string(leaveType)),
		zap.String("deducted_days", deducted.String()),
	)
	return mapToResponse(*l), nil
}

func (s *service) Decide(ctx context.Context, id string, actor Actor, action string, note *string) (LeaveResponse, error) {
	s.logger.Debug("decide leave requested",
		zap.String("request_id", id),
		zap.String("actor_id", actor.ID),
		zap.String("action", action),
	)

	if action != ActionApprove && action != ActionReject {
		return LeaveResponse{}, leaveerrors.ErrInvalidAction
	}
	actorUUID, err := uuid.Parse(actor.ID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidUserID
	}

	var l *LeaveRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)
		txBalances := s.balances.WithTx(tx)

		l, err = qtx.FindByIDForUpdate(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leaveerrors.ErrLeaveNotFound
		}
		if err != nil {
			return err
		}

		if !actor.Elevated && l.ApproverID != actorUUID {
			return leaveerrors.ErrNotApprover
		}

		reqID := l.ID
		switch {
		case l.Status == StatusPending && action == ActionApprove:
			if err := txBalances.Deduct(ctx, l.UserID.String(), l.LeaveType, l.DeductedDays, &reqID,
				fmt.Sprintf("Leave approved (%s)", l.LeaveType.DisplayName())); err != nil {
				return err
			}
			l.Status = StatusApproved

		case l.Status == StatusPending && action == ActionReject:
			l.Status = StatusRejected

		case l.Status == StatusCancellationRequested && action == ActionApprove:
			if err := txBalances.Refund(ctx, l.UserID.String(), l.LeaveType, l.DeductedDays, &reqID,
				"Leave cancellation approved"); err != nil {
				return err
			}
			l.Status = StatusCancelled

		case l.Status == StatusCancellationRequested && action == ActionReject:
			// The original approval stands.
			l.Status = StatusApproved

		default:
			s.logger.Warn("decide leave invalid state",
				zap.String("request_id", id),
				zap.String("status", string(l.Status)),
				zap.String("action", action),
			)
			return leaveerrors.ErrInvalidStatusTransition
		}

		now := time.Now().UTC()
		l.DecidedBy = &actorUUID
		l.DecidedAt = &now
		l.DecisionNote = note

		if err := qtx.Update(ctx, l); err != nil {
			return err
		}

		return s.emitDecided(ctx, tx, l, actor.ID)
	})
	if err != nil {
		return LeaveResponse{}, err
	}

	s.logger.Info("decide leave success",
		zap.String("request_id", id),
		zap.String("status", string(l.Status)),
		zap.String("decided_by", actor.ID),
	)
	return mapToResponse(*l), nil
}

func (s *service) Cancel(ctx context.Context, id, userID string) (LeaveResponse, error) {
	var l *LeaveRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		var err error
		l, err = qtx.FindByIDForUpdate(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leaveerrors.ErrLeaveNotFound
		}
		if err != nil {
			return err
		}
		if l.UserID.String() != userID {
			return leaveerrors.ErrNotRequestOwner
		}

		switch l.Status {
		case StatusPending:
			// Nothing was deducted yet, nothing to refund.
			l.Status = StatusCancelled
		case StatusApproved:
			reqID := l.ID
			if err := s.balances.WithTx(tx).Refund(ctx, userID, l.LeaveType, l.DeductedDays, &reqID,
				"Leave cancelled by owner"); err != nil {
				return err
			}
			l.Status = StatusCancelled
		default:
			return leaveerrors.ErrInvalidStatusTransition
		}

		if err := qtx.Update(ctx, l); err != nil {
			return err
		}
		return s.emitDecided(ctx, tx, l, userID)
	})
	if err != nil {
		return LeaveResponse{}, err
	}

	s.logger.Info("cancel leave success",
		zap.String("request_id", id),
		zap.String("user_id", userID),
	)
	return mapToResponse(*l), nil
}

func (s *service) RequestCancellation(ctx context.Context, id, userID string) (LeaveResponse, error) {
	var l *LeaveRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		var err error
		l, err = qtx.FindByIDForUpdate(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leaveerrors.ErrLeaveNotFound
		}
		if err != nil {
			return err
		}
		if l.UserID.String() != userID {
			return leaveerrors.ErrNotRequestOwner
		}
		if l.Status != StatusApproved {
			return leaveerrors.ErrInvalidStatusTransition
		}

		l.Status = StatusCancellationRequested
		return qtx.Update(ctx, l)
	})
	if err != nil {
		return LeaveResponse{}, err
	}

	s.logger.Info("cancellation requested",
		zap.String("request_id", id),
		zap.String("user_id", userID),
	)
	return mapToResponse(*l), nil
}

func (s *service) Get(ctx context.Context, id string, actor Actor) (LeaveResponse, error) {
	l, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
	}
	if err != nil {
		return LeaveResponse{}, err
	}

	if !actor.Elevated && l.UserID.String() != actor.ID && l.ApproverID.String() != actor.ID {
		return LeaveResponse{}, leaveerrors.ErrNotRequestOwner
	}
	return mapToResponse(*l), nil
}

func (s *service) Mine(ctx context.Context, userID string) ([]LeaveResponse, error) {
	leaves, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) Pending(ctx context.Context, actor Actor) ([]LeaveResponse, error) {
	var (
		leaves []LeaveRequest
		err    error
	)
	if actor.Elevated {
		leaves, err = s.repo.FindAllPending(ctx)
	} else {
		leaves, err = s.repo.FindPendingByApprover(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) ClaimCompOff(ctx context.Context, userID string, req ClaimCompOffRequest) (CompOffResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return CompOffResponse{}, leaveerrors.ErrInvalidUserID
	}

	workDate, err := time.Parse(dateLayout, req.WorkDate)
	if err != nil {
		return CompOffResponse{}, leaveerrors.ErrInvalidDateFormat
	}
	today := truncateToDate(time.Now().UTC())
	if workDate.After(today) {
		return CompOffResponse{}, leaveerrors.ErrWorkDateInFuture
	}

	exists, err := s.repo.HasCompOffForDate(ctx, userID, workDate)
	if err != nil {
		return CompOffResponse{}, err
	}
	if exists {
		return CompOffResponse{}, leaveerrors.ErrDuplicateCompOffClaim
	}

	approverID, err := s.resolveApprover(ctx, userID)
	if err != nil {
		return CompOffResponse{}, err
	}

	c := &CompOffClaim{
		ID:         uuid.New(),
		UserID:     userUUID,
		WorkDate:   workDate,
		Reason:     req.Reason,
		Status:     CompOffPending,
		ApproverID: approverID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateCompOff(ctx, c)
	})
	if err != nil {
		return CompOffResponse{}, err
	}

	s.logger.Info("comp-off claimed",
		zap.String("claim_id", c.ID.String()),
		zap.String("user_id", userID),
		zap.String("work_date", req.WorkDate),
	)
	return mapCompOffToResponse(*c), nil
}

func (s *service) DecideCompOff(ctx context.Context, id string, actor Actor, action string) (CompOffResponse, error) {
	if action != ActionApprove && action != ActionReject {
		return CompOffResponse{}, leaveerrors.ErrInvalidAction
	}
	actorUUID, err := uuid.Parse(actor.ID)
	if err != nil {
		return CompOffResponse{}, leaveerrors.ErrInvalidUserID
	}

	var c *CompOffClaim
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		c, err = qtx.FindCompOffByIDForUpdate(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leaveerrors.ErrCompOffNotFound
		}
		if err != nil {
			return err
		}
		if !actor.Elevated && c.ApproverID != actorUUID {
			return leaveerrors.ErrNotApprover
		}
		if c.Status != CompOffPending {
			return leaveerrors.ErrInvalidStatusTransition
		}

		if action == ActionApprove {
			claimID := c.ID
			if err := s.balances.WithTx(tx).ApplyDelta(ctx, balance.ChangeRequest{
				UserID:           c.UserID.String(),
				LeaveType:        domain.LeaveTypeCompOff,
				Delta:            decimal.NewFromInt(1),
				ChangeType:       domain.ChangeAccrual,
				Reason:           fmt.Sprintf("Comp-off credit for work on %s", c.WorkDate.Format(dateLayout)),
				RelatedRequestID: &claimID,
				ChangedBy:        &actorUUID,
			}); err != nil {
				return err
			}
			c.Status = CompOffApproved
		} else {
			c.Status = CompOffRejected
		}

		now := time.Now().UTC()
		c.DecidedBy = &actorUUID
		c.DecidedAt = &now
		return qtx.UpdateCompOff(ctx, c)
	})
	if err != nil {
		return CompOffResponse{}, err
	}

	s.logger.Info("comp-off decided",
		zap.String("claim_id", id),
		zap.String("status", string(c.Status)),
		zap.String("decided_by", actor.ID),
	)
	return mapCompOffToResponse(*c), nil
}

func (s *service) MyCompOffs(ctx context.Context, userID string) ([]CompOffResponse, error) {
	claims, err := s.repo.FindCompOffByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := make([]CompOffResponse, len(claims))
	for i, c := range claims {
		res[i] = mapCompOffToResponse(c)
	}
	return res, nil
}

func (s *service) PendingCompOffs(ctx context.Context) ([]CompOffResponse, error) {
	claims, err := s.repo.FindPendingCompOff(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]CompOffResponse, len(claims))
	for i, c := range claims {
		res[i] = mapCompOffToResponse(c)
	}
	return res, nil
}

// resolveApprover picks the employee's manager, falling back to HR when no
// manager is assigned.
func (s *service) resolveApprover(ctx context.Context, userID string) (uuid.UUID, error) {
	emp, err := s.employees.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, leaveerrors.ErrInvalidUserID
	}
	if err != nil {
		return uuid.Nil, err
	}

	if emp.ManagerID != nil && *emp.ManagerID != emp.ID {
		return *emp.ManagerID, nil
	}

	fallback, err := s.employees.FindFallbackApprover(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, leaveerrors.ErrNoApproverAvailable
	}
	if err != nil {
		return uuid.Nil, err
	}
	return fallback.ID, nil
}

func resolveDates(leaveType domain.LeaveType, startStr, endStr string) (*time.Time, *time.Time, error) {
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return nil, nil, leaveerrors.ErrInvalidDateFormat
	}

	switch leaveType {
	case domain.LeaveTypeMaternity:
		end := start.AddDate(0, 0, maternityDays-1)
		return &start, &end, nil
	case domain.LeaveTypeSabbatical:
		if endStr == "" {
			return &start, nil, nil
		}
	default:
		if endStr == "" {
			return nil, nil, leaveerrors.ErrEndDateRequired
		}
	}

	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return nil, nil, leaveerrors.ErrInvalidDateFormat
	}
	if end.Before(start) {
		return nil, nil, leaveerrors.ErrInvalidDateRange
	}
	return &start, &end, nil
}

func (s *service) emitRequested(ctx context.Context, tx *gorm.DB, l *LeaveRequest) error {
	if s.outbox == nil {
		return nil
	}

	evt := events.LeaveRequestedEvent{
		EventType:  "leave.requested",
		RequestID:  l.ID.String(),
		UserID:     l.UserID.String(),
		LeaveType:  string(l.LeaveType),
		StartDate:  l.StartDate.Format(dateLayout),
		ApproverID: l.ApproverID.String(),
		OccurredAt: time.Now().UTC(),
	}
	if l.EndDate != nil {
		evt.EndDate = l.EndDate.Format(dateLayout)
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, &kafka.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "leave_request",
		AggregateID:   l.ID.String(),
		EventType:     evt.EventType,
		Topic:         events.LeaveRequestedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) emitDecided(ctx context.Context, tx *gorm.DB, l *LeaveRequest, decidedBy string) error {
	if s.outbox == nil {
		return nil
	}

	evt := events.LeaveDecidedEvent{
		EventType:  "leave.decided",
		RequestID:  l.ID.String(),
		UserID:     l.UserID.String(),
		LeaveType:  string(l.LeaveType),
		Status:     string(l.Status),
		DecidedBy:  decidedBy,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, &kafka.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "leave_request",
		AggregateID:   l.ID.String(),
		EventType:     evt.EventType,
		Topic:         events.LeaveDecidedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:           l.ID.String(),
		UserID:       l.UserID.String(),
		LeaveType:    string(l.LeaveType),
		StartDate:    l.StartDate.Format(dateLayout),
		DeductedDays: l.DeductedDays.StringFixed(2),
		Reason:       l.Reason,
		Status:       string(l.Status),
		ApproverID:   l.ApproverID.String(),
		DecisionNote: l.DecisionNote,
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
	}
	if l.EndDate != nil {
		v := l.EndDate.Format(dateLayout)
		resp.EndDate = &v
	}
	if l.DecidedBy != nil {
		v := l.DecidedBy.String()
		resp.DecidedBy = &v
	}
	if l.DecidedAt != nil {
		v := l.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}

func mapToListResponse(leaves []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}

func mapCompOffToResponse(c CompOffClaim) CompOffResponse {
	resp := CompOffResponse{
		ID:         c.ID.String(),
		UserID:     c.UserID.String(),
		WorkDate:   c.WorkDate.Format(dateLayout),
		Reason:     c.Reason,
		Status:     string(c.Status),
		ApproverID: c.ApproverID.String(),
	}
	if c.DecidedBy != nil {
		v := c.DecidedBy.String()
		resp.DecidedBy = &v
	}
	if c.DecidedAt != nil {
		v := c.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}
