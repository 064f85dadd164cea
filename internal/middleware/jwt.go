package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/response"
)

// ContextClaimsKey is the gin context key storing API token claims.
const ContextClaimsKey = "apiClaims"

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.APIClaims, error)
}

// JWT protects routes by requiring a valid API token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}
