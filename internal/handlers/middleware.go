package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxUserID = "userId"

func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	userId, err := h.services.ParseToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxUserID, userId)
	c.Next()
}

// adminMiddleware must run after userIdMiddleware. The admin flag is read
// from storage on every request.
func (h *Handler) adminMiddleware(c *gin.Context) {
	userId := c.GetInt(ctxUserID)
	admin, err := h.services.IsAdmin(userId)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("admin_check_failed", "user_id", userId, "err", err)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "failed to check permissions",
		})
		return
	}
	if !admin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "admin role required",
		})
		return
	}
	c.Next()
}
