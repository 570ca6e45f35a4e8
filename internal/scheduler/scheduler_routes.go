package scheduler

import (
	"github.com/gin-gonic/gin"

	"leavedesk/internal/middleware"
	"leavedesk/internal/rbac"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	h *Handler,
	rbacService rbac.Service,
) {
	jobs := r.Group("/jobs")

	jobs.Use(middleware.AuthMiddleware())

	{
		jobs.GET("", middleware.RBACAuthorize(rbacService, "job", "read"), h.Jobs)
		jobs.POST("/accrual/run", middleware.RBACAuthorize(rbacService, "job", "execute"), h.RunAccrual)
		jobs.POST("/yearly-reset/run", middleware.RBACAuthorize(rbacService, "job", "execute"), h.RunYearlyReset)
	}
}
