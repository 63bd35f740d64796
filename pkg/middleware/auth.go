package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ims-platform/inventory-service/pkg/errors"
)

// ContextKeySubject holds the authenticated subject after RequireAuth
const ContextKeySubject = "authSubject"

// TokenVerifier is the capability check injected by the composition root.
// It validates a bearer token and returns the authenticated subject.
type TokenVerifier func(ctx context.Context, token string) (string, error)

// RequireAuth guards a route group with bearer-token authentication. Token
// issuance and validation live behind the verifier; this middleware only
// extracts the credential and enforces its presence.
func RequireAuth(verify TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			AbortWithAppError(c, errors.ErrUnauthorized("missing Authorization header"))
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			AbortWithAppError(c, errors.ErrUnauthorized("malformed Authorization header"))
			return
		}

		subject, err := verify(c.Request.Context(), token)
		if err != nil {
			AbortWithAppError(c, errors.ErrUnauthorized("invalid or expired token"))
			return
		}

		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}

// GetSubject extracts the authenticated subject from context
func GetSubject(c *gin.Context) string {
	if val, exists := c.Get(ContextKeySubject); exists {
		if subject, ok := val.(string); ok {
			return subject
		}
	}
	return ""
}
