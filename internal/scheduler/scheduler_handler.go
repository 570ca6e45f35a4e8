package scheduler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leavedesk/internal/joblog"
	"leavedesk/internal/shared/apperror"
	"leavedesk/internal/shared/response"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("scheduler.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("scheduler.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("scheduler request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// RunAccrual lets HR trigger the current month's accrual without waiting for
// the ticker. The job-log lockout still applies.
func (h *Handler) RunAccrual(c *gin.Context) {
	result, err := h.service.RunMonthlyAccrual(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result, nil)
}

func (h *Handler) RunYearlyReset(c *gin.Context) {
	actorID := c.GetString("user_id_validated")
	executedBy, err := uuid.Parse(actorID)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", "invalid actor id")
		return
	}

	result, err := h.service.RunYearlyReset(c.Request.Context(), time.Now().UTC(), true, &executedBy)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result, nil)
}

func (h *Handler) Jobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	logs, err := h.service.RecentJobs(c.Request.Context(), limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp := make([]gin.H, len(logs))
	for i, l := range logs {
		resp[i] = mapJobLogToResponse(l)
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func mapJobLogToResponse(l joblog.JobLog) gin.H {
	return gin.H{
		"id":          l.ID.String(),
		"job_name":    l.JobName,
		"status":      string(l.Status),
		"details":     l.Details,
		"executed_at": l.ExecutedAt.Format(time.RFC3339),
	}
}
