package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"leavedesk/internal/balance"
	"leavedesk/internal/calendar"
	"leavedesk/internal/employee"
	"leavedesk/internal/joblog"
	"leavedesk/internal/leave"
	"leavedesk/internal/messaging/kafka"
	"leavedesk/internal/middleware"
	"leavedesk/internal/policy"
	"leavedesk/internal/rbac"
	"leavedesk/internal/rbac/infra"
	"leavedesk/internal/scheduler"
)

func registerModules(
	router *gin.Engine,
	gormDB *gorm.DB,
	rdb *redis.Client,
) (*scheduler.Scheduler, error) {
	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	policyRepo := policy.NewRepository(gormDB)
	joblogRepo := joblog.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	calendarRepo := calendar.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(gormDB)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(filepath.Join("configs", "rbac_model.conf"))
	if err != nil {
		return nil, err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer)
	if err := rbacRepo.SeedRolePermissions(rbac.DefaultRolePermissions); err != nil {
		return nil, err
	}
	if err := rbacService.LoadPolicy(); err != nil {
		return nil, err
	}

	// --- Services ---
	balanceService := balance.NewService(gormDB, balanceRepo)
	policyService := policy.NewService(gormDB, policyRepo)
	calendarService := calendar.NewService(gormDB, calendarRepo, rdb)
	leaveService := leave.NewServiceWithOutbox(gormDB, leaveRepo, balanceService, calendarService, employeeRepo, outboxRepo)
	schedulerService := scheduler.NewService(gormDB, joblogRepo, balanceService, policyService, employeeRepo)

	// --- Handlers ---
	balanceHandler := balance.NewHandler(balanceService)
	calendarHandler := calendar.NewHandler(calendarService)
	leaveHandler := leave.NewHandler(leaveService)
	policyHandler := policy.NewHandler(policyService)
	schedulerHandler := scheduler.NewHandler(schedulerService)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	api.Use(middleware.Idempotency(rdb))
	{
		balance.RegisterRoutes(api, balanceHandler, rbacService)
		calendar.RegisterRoutes(api, calendarHandler, rbacService)
		leave.RegisterRoutes(api, leaveHandler, rbacService)
		policy.RegisterRoutes(api, policyHandler, rbacService)
		scheduler.RegisterRoutes(api, schedulerHandler, rbacService)
	}

	rbac.RegisterRoutes(router, rbacHandler)

	interval := time.Hour
	if raw := os.Getenv("SCHEDULER_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			interval = parsed
		}
	}
	sched := scheduler.New(schedulerService, interval)

	return sched, nil
}
