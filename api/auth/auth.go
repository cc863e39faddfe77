// Package auth resolves the session cookie to the current user and guards
// routes that need an authenticated or admin caller.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsv/votify/store"
)

// UserContextKey is the gin context key the resolved user is stored under.
const UserContextKey = "user"

// Middleware resolves session tokens against the store.
type Middleware struct {
	store      *store.Store
	cookieName string
}

// New creates the auth middleware.
func New(st *store.Store, cookieName string) *Middleware {
	return &Middleware{store: st, cookieName: cookieName}
}

// CurrentUser resolves the request's session cookie to a user. A nil user
// with a nil error means the caller is simply not authenticated (missing
// cookie, expired token, vanished user); only store failures are errors.
func (m *Middleware) CurrentUser(c *gin.Context) (*store.User, error) {
	token, err := c.Cookie(m.cookieName)
	if err != nil || token == "" {
		return nil, nil
	}

	userID, err := m.store.ResolveToken(c.Request.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	user, err := m.store.GetUser(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// RequireAuth aborts with 401 unless the request carries a valid session.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.CurrentUser(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal Server Error",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required.",
			})
			return
		}
		c.Set(UserContextKey, user)
	}
}

// RequireAdmin aborts with 403 unless the resolved user carries the admin
// flag. Must run after RequireAuth.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := c.MustGet(UserContextKey).(*store.User)
		if !ok || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Admin access required.",
			})
			return
		}
		c.Next()
	}
}
