package auth

import (
	"net/http"

	"github.com/flowcraft-ai/flowcraft-backend/internal/users"
	"github.com/gin-gonic/gin"
)

// WithUser resolves the authenticated identity to an internal account,
// provisioning the account row and its free-tier subscription on first
// sight, and stores the internal user id in the request context.
func WithUser(repo *users.Repo, freeTierVersions int) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("firebase_uid")
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			c.Abort()
			return
		}

		id, err := repo.EnsureUser(c.Request.Context(), users.UpsertUser{
			FirebaseUID: uid,
			Username:    c.GetString("display_name"),
			Email:       c.GetString("email"),
		}, freeTierVersions)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
			c.Abort()
			return
		}

		c.Set("user_id", id)
		c.Next()
	}
}
