package policy

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
	policies := r.Group("/policies")

	policies.Use(middleware.AuthMiddleware())

	{
		policies.GET("", middleware.RBACAuthorize(rbacService, "policy", "read"), h.List)
		policies.GET("/effective", middleware.RBACAuthorize(rbacService, "policy", "read"), h.Effective)
		policies.PUT("", middleware.RBACAuthorize(rbacService, "policy", "update"), h.Upsert)
	}
}
