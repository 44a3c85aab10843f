package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CJCR07/veridicus/internal/pkg/jwt"
	"github.com/CJCR07/veridicus/internal/pkg/response"
)

const ContextKeyUserID = "user_id"

// Auth returns a middleware that enforces bearer JWT authentication.
func Auth(verifier *jwt.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(verifier, ExtractToken(c))
		if err != nil {
			response.Unauthorized(c, "")
			return
		}
		c.Set(ContextKeyUserID, claims.UserID())
		c.Next()
	}
}

// ValidateToken verifies a raw token and returns its claims.
func ValidateToken(verifier *jwt.Verifier, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	return verifier.Parse(token)
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// ExtractToken pulls the bearer token from the Authorization header,
// falling back to the token query parameter for WebSocket clients.
func ExtractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
