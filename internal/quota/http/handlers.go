package http

import (
	"errors"
	"net/http"

	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/domain"
	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/service"
	"github.com/gin-gonic/gin"
)

// Handler exposes the read-only subscription surface plus the
// payment-completion collaborator that grants pro status. Payment
// provider webhook signature verification happens upstream of this
// service and is not re-checked here.
type Handler struct {
	svc *service.QuotaService
}

func NewHandler(svc *service.QuotaService) *Handler {
	return &Handler{svc: svc}
}

type paymentCompletedRequest struct {
	DurationDays int `json:"durationDays" binding:"required,gt=0"`
}

func (h *Handler) Register(api *gin.RouterGroup) {
	api.GET("/subscriptions/me", h.Status)
	api.POST("/payments/complete", h.PaymentCompleted)
}

// Status returns the account's quota/subscription state.
func (h *Handler) Status(c *gin.Context) {
	sub, err := h.svc.Status(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// PaymentCompleted is the single mutation path for pro status.
func (h *Handler) PaymentCompleted(c *gin.Context) {
	var req paymentCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.GrantPro(c.Request.Context(), c.GetString("user_id"), req.DurationDays); err != nil {
		abortWithError(c, err)
		return
	}

	sub, err := h.svc.Status(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
