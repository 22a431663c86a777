package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/supportline/internal/models"
)

const identityKey = "identity"

// Middleware returns an Echo middleware that validates JWT access tokens.
// It extracts "Bearer <token>" from the Authorization header, validates it,
// and stores the resolved identity in the Echo context.
func (ts *TokenService) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := ts.ValidateAccessToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			SetIdentity(c, claims.Identity())
			return next(c)
		}
	}
}

// RequireOperator rejects requests whose identity is not the operator.
// It must run after Middleware.
func RequireOperator() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := LookupIdentity(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !id.IsOperator() {
				return echo.NewHTTPError(http.StatusForbidden, "operator privileges required")
			}
			return next(c)
		}
	}
}

// SetIdentity stores the authenticated identity in the Echo context.
func SetIdentity(c echo.Context, id models.Identity) {
	c.Set(identityKey, id)
}

// GetIdentity extracts the authenticated identity from the Echo context.
func GetIdentity(c echo.Context) models.Identity {
	return c.Get(identityKey).(models.Identity)
}

// LookupIdentity returns the identity stored by Middleware, if any.
func LookupIdentity(c echo.Context) (models.Identity, bool) {
	id, ok := c.Get(identityKey).(models.Identity)
	return id, ok
}
