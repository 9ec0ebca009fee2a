package http

import "github.com/gin-gonic/gin"

// Register mounts the authenticated diagram routes. generate is extra
// middleware for the generation endpoints (rate limiting).
func (h *Handler) Register(api *gin.RouterGroup, generate ...gin.HandlerFunc) {
	diagrams := api.Group("/diagrams")
	{
		diagrams.POST("", append(generate, h.Create)...)
		diagrams.GET("", h.List)
		diagrams.GET("/:id", h.Get)
		diagrams.POST("/:id/versions", append(generate, h.CreateVersion)...)
		diagrams.GET("/:id/versions", h.ListVersions)
		diagrams.POST("/:id/versions/:versionNumber/rollback", h.Rollback)
		diagrams.DELETE("/:id", h.Delete)
		diagrams.POST("/:id/restore", h.Restore)
		diagrams.PATCH("/:id/title", h.UpdateTitle)
		diagrams.POST("/:id/share", h.CreateShareToken)
	}

	openai := api.Group("/openai")
	{
		openai.POST("/enhance/stream", append(generate, h.EnhanceDescription)...)
	}
}

// RegisterPublic mounts the unauthenticated share-resolution route.
func (h *Handler) RegisterPublic(r *gin.RouterGroup) {
	r.GET("/shared/:token", h.GetShared)
}

// RegisterProjectSubroutes mounts diagram listing under a project.
func (h *Handler) RegisterProjectSubroutes(projects *gin.RouterGroup) {
	projects.GET("/:projectId/diagrams", h.ListByProject)
}
