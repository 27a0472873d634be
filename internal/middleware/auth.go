package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
)

const (
	// UserContextKey is the gin context key holding the caller's claims.
	UserContextKey = "user"
	// StoredUserContextKey holds the stored user loaded during authentication.
	StoredUserContextKey = "storedUser"
)

// UserLookup loads the stored user behind a token, used to gate deactivated
// accounts and to honor explicit permission grants not carried in the token.
type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// ActiveUser loads the user behind a token. A deactivated account yields
// auth.ErrUserInactive.
func ActiveUser(ctx context.Context, users UserLookup, id string) (*models.User, error) {
	user, err := users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, auth.ErrUserInactive
	}
	return user, nil
}

// AbortUserLookup writes the response for a failed ActiveUser call.
func AbortUserLookup(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUserInactive):
		Abort(c, http.StatusUnauthorized, CodeUnauthorized, "Account is deactivated")
	case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrInvalidID):
		Abort(c, http.StatusUnauthorized, CodeUnauthorized, "User not found")
	default:
		_ = c.Error(err)
		Abort(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authService *auth.Service
	users       UserLookup
}

// NewAuthMiddleware creates a new authentication middleware. users may be
// nil, in which case permissions come from the role alone.
func NewAuthMiddleware(authService *auth.Service, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		users:       users,
	}
}

// Authenticate validates JWT tokens and adds user context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldSkipAuth(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			Abort(c, http.StatusUnauthorized, CodeUnauthorized, "Authorization header required")
			return
		}

		token, err := m.authService.ExtractTokenFromHeader(authHeader)
		if err != nil {
			Abort(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid authorization header")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "Token expired"
			}
			Abort(c, http.StatusUnauthorized, CodeUnauthorized, msg)
			return
		}

		if m.users != nil {
			stored, err := ActiveUser(c.Request.Context(), m.users, claims.UserID)
			if err != nil {
				AbortUserLookup(c, err)
				return
			}
			// Role changes apply without waiting for a new token.
			claims.Role = stored.Role
			c.Set(StoredUserContextKey, stored)
		}

		SetUser(c, claims)
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds one of the
// given roles. Admins are always allowed.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetUserFromContext(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, CodeUnauthorized, "User context not found")
			return
		}

		if claims.Role == models.RoleAdmin {
			c.Next()
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		Abort(c, http.StatusForbidden, CodeForbidden, "Insufficient permissions")
	}
}

// RequirePermission checks the caller's effective permissions. Role defaults
// are checked first; explicit grants need a lookup of the stored user.
func (m *AuthMiddleware) RequirePermission(required models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetUserFromContext(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, CodeUnauthorized, "User context not found")
			return
		}

		// Temporary user built from the token alone.
		user := &models.User{Role: claims.Role}
		if user.HasPermission(required) {
			c.Next()
			return
		}

		if stored, ok := c.Get(StoredUserContextKey); ok {
			if u, ok := stored.(*models.User); ok && u.HasPermission(required) {
				c.Next()
				return
			}
		} else if m.users != nil {
			stored, err := ActiveUser(c.Request.Context(), m.users, claims.UserID)
			if err == nil && stored.HasPermission(required) {
				c.Next()
				return
			}
		}

		Abort(c, http.StatusForbidden, CodeForbidden, "Insufficient permissions")
	}
}

// SetUser stores the caller's claims on the context.
func SetUser(c *gin.Context, claims *models.Claims) {
	c.Set(UserContextKey, claims)
}

// GetUserFromContext extracts user claims from the gin context
func GetUserFromContext(c *gin.Context) (*models.Claims, bool) {
	v, exists := c.Get(UserContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*models.Claims)
	return claims, ok && claims != nil
}

// shouldSkipAuth determines if authentication should be skipped for a given path
func shouldSkipAuth(path string) bool {
	skipPaths := []string{
		"/api/auth/login",
		"/api/auth/register",
		"/health",
	}

	for _, skipPath := range skipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}
