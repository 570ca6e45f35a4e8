package leave

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
	leaves := r.Group("/leaves")

	leaves.Use(middleware.AuthMiddleware())

	{
		leaves.POST("", h.Apply)
		leaves.GET("/mine", h.Mine)
		leaves.GET("/pending", middleware.RBACAuthorize(rbacService, "leave", "approve"), h.Pending)
		leaves.GET("/:id", h.GetByID)
		leaves.POST("/:id/decision", middleware.RBACAuthorize(rbacService, "leave", "approve"), h.Decide)
		leaves.POST("/:id/cancel", h.Cancel)
		leaves.POST("/:id/request-cancellation", h.RequestCancellation)
	}

	compoffs := r.Group("/comp-offs")

	compoffs.Use(middleware.AuthMiddleware())

	{
		compoffs.POST("", h.ClaimCompOff)
		compoffs.GET("/mine", h.MyCompOffs)
		compoffs.GET("/pending", middleware.RBACAuthorize(rbacService, "comp_off", "approve"), h.PendingCompOffs)
		compoffs.POST("/:id/decision", middleware.RBACAuthorize(rbacService, "comp_off", "approve"), h.DecideCompOff)
	}
}
