package rbac

import (
	"sync"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"

	"leavedesk/internal/domain"
)

// DefaultRolePermissions is the seed policy for a fresh database.
var DefaultRolePermissions = []RolePermissionRow{
	{Role: "manager", Resource: "leave", Action: "approve"},
	{Role: "manager", Resource: "comp_off", Action: "approve"},
	{Role: "manager", Resource: "balance", Action: "read"},

	{Role: "hr", Resource: "leave", Action: "approve"},
	{Role: "hr", Resource: "comp_off", Action: "approve"},
	{Role: "hr", Resource: "balance", Action: "read"},
	{Role: "hr", Resource: "balance", Action: "update"},
	{Role: "hr", Resource: "holiday", Action: "create"},
	{Role: "hr", Resource: "holiday", Action: "delete"},
	{Role: "hr", Resource: "policy", Action: "read"},
	{Role: "hr", Resource: "policy", Action: "update"},
	{Role: "hr", Resource: "job", Action: "read"},
	{Role: "hr", Resource: "job", Action: "execute"},

	{Role: "admin", Resource: "leave", Action: "approve"},
	{Role: "admin", Resource: "comp_off", Action: "approve"},
	{Role: "admin", Resource: "balance", Action: "read"},
	{Role: "admin", Resource: "balance", Action: "update"},
	{Role: "admin", Resource: "holiday", Action: "create"},
	{Role: "admin", Resource: "holiday", Action: "delete"},
	{Role: "admin", Resource: "policy", Action: "read"},
	{Role: "admin", Resource: "policy", Action: "update"},
	{Role: "admin", Resource: "job", Action: "read"},
	{Role: "admin", Resource: "job", Action: "execute"},
}

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	LoadPolicy() error
	Enforce(req domain.EnforceRequest) (bool, error)
}

type service struct {
	repo     Repository
	enforcer *casbin.Enforcer
	logger   *zap.Logger
	mu       sync.Mutex
	loaded   bool
}

func NewService(repo Repository, enforcer *casbin.Enforcer, logger ...*zap.Logger) Service {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}
	return &service{repo: repo, enforcer: enforcer, logger: l}
}

func (s *service) LoadPolicy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPolicyUnlocked()
}

func (s *service) loadPolicyUnlocked() error {
	s.enforcer.ClearPolicy()

	rows, err := s.repo.GetRolePermissions()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		rows = DefaultRolePermissions
	}

	for _, row := range rows {
		if _, err := s.enforcer.AddPolicy(row.Role, row.Resource, row.Action); err != nil {
			return err
		}
	}

	s.logger.Info("rbac policy loaded", zap.Int("rules", len(rows)))
	s.loaded = true
	return nil
}

func (s *service) Enforce(req domain.EnforceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadPolicyUnlocked(); err != nil {
			return false, err
		}
	}

	allowed, err := s.enforcer.Enforce(req.Role, req.Resource, req.Action)
	if err != nil {
		return false, err
	}

	s.logger.Debug("rbac enforce",
		zap.String("user_id", req.UserID),
		zap.String("role", req.Role),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.Bool("allowed", allowed),
	)
	return allowed, nil
}
