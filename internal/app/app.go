package app

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leavedesk/internal/balance"
	"leavedesk/internal/calendar"
	"leavedesk/internal/employee"
	"leavedesk/internal/joblog"
	"leavedesk/internal/leave"
	"leavedesk/internal/messaging/kafka"
	"leavedesk/internal/policy"
	"leavedesk/internal/rbac"
	"leavedesk/internal/scheduler"
	"leavedesk/internal/shared/connection"
)

// Runtime holds what main needs to manage after the app is built.
type Runtime struct {
	Scheduler *scheduler.Scheduler
	Close     func()
}

func BuildApp(router *gin.Engine) (*Runtime, error) {
	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return nil, err
	}
	zap.L().Info("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return nil, err
	}
	zap.L().Info("redis connection established")

	if err := gormDB.AutoMigrate(
		&employee.Employee{},
		&policy.LeavePolicy{},
		&joblog.JobLog{},
		&balance.LeaveBalance{},
		&balance.BalanceHistory{},
		&calendar.Holiday{},
		&leave.LeaveRequest{},
		&leave.CompOffClaim{},
		&kafka.OutboxEvent{},
		&rbac.RolePermissionRow{},
	); err != nil {
		return nil, err
	}

	sched, err := registerModules(router, gormDB, redisClient)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Scheduler: sched,
		Close: func() {
			if sqlDB, err := gormDB.DB(); err == nil {
				sqlDB.Close()
			}
			redisClient.Close()
		},
	}, nil
}
