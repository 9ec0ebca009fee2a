package http

import (
	"errors"
	"net/http"

	"github.com/flowcraft-ai/flowcraft-backend/internal/projects/domain"
	"github.com/flowcraft-ai/flowcraft-backend/internal/projects/repository"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *repository.ProjectRepository
}

func NewHandler(repo *repository.ProjectRepository) *Handler {
	return &Handler{repo: repo}
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) Register(api *gin.RouterGroup) *gin.RouterGroup {
	projects := api.Group("/projects")
	{
		projects.POST("", h.Create)
		projects.GET("", h.List)
		projects.GET("/:projectId", h.Get)
		projects.DELETE("/:projectId", h.Delete)
	}
	return projects
}

func (h *Handler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.repo.Create(c.Request.Context(), c.GetString("user_id"), req.Name, req.Description)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) List(c *gin.Context) {
	projects, err := h.repo.ListByUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) Get(c *gin.Context) {
	project, err := h.repo.GetByID(c.Request.Context(), c.Param("projectId"), c.GetString("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.SoftDelete(c.Request.Context(), c.Param("projectId"), c.GetString("user_id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project successfully deleted"})
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
