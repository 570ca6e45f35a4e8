package calendar

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
	holidays := r.Group("/holidays")

	holidays.Use(middleware.AuthMiddleware())

	{
		holidays.GET("", h.List)
		holidays.GET("/working-days", h.WorkingDays)
		holidays.POST("/bulk", middleware.RBACAuthorize(rbacService, "holiday", "create"), h.BulkImport)
		holidays.DELETE("/:id", middleware.RBACAuthorize(rbacService, "holiday", "delete"), h.Delete)
	}
}
