package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"
	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/service"
	projectdomain "github.com/flowcraft-ai/flowcraft-backend/internal/projects/domain"
	quotadomain "github.com/flowcraft-ai/flowcraft-backend/internal/quota/domain"
	"github.com/gin-gonic/gin"
)

// Handler exposes the diagram API
type Handler struct {
	svc *service.DiagramService
}

func NewHandler(svc *service.DiagramService) *Handler {
	return &Handler{svc: svc}
}

// Create starts a streamed diagram-creation session. Validation errors
// reject synchronously; once streaming starts, failures surface as
// error events because headers are already committed.
func (h *Handler) Create(c *gin.Context) {
	var req CreateDiagramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := h.svc.StreamCreateDiagram(c.Request.Context(), userID(c), service.CreateDiagramInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
	})
	streamSession(c, events)
}

// CreateVersion starts a streamed version-creation session.
func (h *Handler) CreateVersion(c *gin.Context) {
	var req CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := h.svc.StreamCreateVersion(c.Request.Context(), userID(c), c.Param("id"), req.Description)
	streamSession(c, events)
}

// EnhanceDescription streams back an improved description. No
// persistence, no quota charge.
func (h *Handler) EnhanceDescription(c *gin.Context) {
	var req EnhanceDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := h.svc.StreamEnhanceDescription(c.Request.Context(), req.Description)
	streamSession(c, events)
}

func (h *Handler) List(c *gin.Context) {
	diagrams, err := h.svc.List(c.Request.Context(), userID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, diagrams)
}

func (h *Handler) Get(c *gin.Context) {
	diagram, err := h.svc.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, diagram)
}

func (h *Handler) ListByProject(c *gin.Context) {
	diagrams, err := h.svc.ListByProject(c.Request.Context(), c.Param("projectId"), userID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, diagrams)
}

func (h *Handler) ListVersions(c *gin.Context) {
	versions, err := h.svc.ListVersions(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// Rollback truncates history to the target version. Synchronous.
func (h *Handler) Rollback(c *gin.Context) {
	versionNumber, err := strconv.Atoi(c.Param("versionNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}

	if err := h.svc.Rollback(c.Request.Context(), c.Param("id"), userID(c), versionNumber); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully rolled back to version %d", versionNumber),
	})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Diagram successfully deleted"})
}

func (h *Handler) Restore(c *gin.Context) {
	if err := h.svc.Restore(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Diagram successfully restored"})
}

func (h *Handler) UpdateTitle(c *gin.Context) {
	var req UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.UpdateTitle(c.Request.Context(), c.Param("id"), userID(c), req.Title); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Title successfully updated", "title": req.Title})
}

// CreateShareToken mints a share link for the diagram.
func (h *Handler) CreateShareToken(c *gin.Context) {
	var req CreateShareTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.IssueShareToken(c.Request.Context(), c.Param("id"), userID(c), domain.ShareExpiration(req.Expiration))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetShared resolves a share token. Unauthenticated; the token itself
// is the capability.
func (h *Handler) GetShared(c *gin.Context) {
	shared, err := h.svc.ResolveShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, shared)
}

func userID(c *gin.Context) string {
	return c.GetString("user_id")
}

// abortWithError maps domain errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrVersionNotFound),
		errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, quotadomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, projectdomain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, quotadomain.ErrQuotaExhausted):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "quota_exhausted"})
	case errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
