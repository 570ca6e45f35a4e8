package balance

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
	balances := r.Group("/balances")

	balances.Use(middleware.AuthMiddleware())

	{
		balances.GET("/me", h.Mine)
		balances.GET("/me/history", h.MyHistory)
		balances.GET("/:user_id", middleware.RBACAuthorize(rbacService, "balance", "read"), h.ByUser)
		balances.GET("/:user_id/history", middleware.RBACAuthorize(rbacService, "balance", "read"), h.HistoryByUser)
		balances.PUT("", middleware.RBACAuthorize(rbacService, "balance", "update"), h.Set)
	}
}
