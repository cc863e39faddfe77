package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mkarlsv/votify/api/models"
	"github.com/mkarlsv/votify/store"
)

// Register creates a new user account.
// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body.",
		})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		log.Debug("registration validation failed", "errors", len(errs))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  errs,
		})
		return
	}

	userID, err := h.store.CreateUser(c.Request.Context(), store.CreateUserParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if errors.Is(err, store.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "Username or email already exists.",
		})
		return
	}
	if err != nil {
		log.Error("registration failed", "error", err)
		internalError(c)
		return
	}

	log.Info("user registered", "userId", userID)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"userId":  userID,
	})
}

// Login verifies credentials and issues a session token cookie.
// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body.",
		})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  errs,
		})
		return
	}

	user, err := h.store.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid username or password.",
		})
		return
	}
	if err != nil {
		log.Error("login failed", "error", err)
		internalError(c)
		return
	}

	token, err := h.store.CreateToken(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("failed to create session token", "error", err)
		internalError(c)
		return
	}

	h.setSessionCookie(c, token, h.cfg.Session.MaxAge)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful.",
	})
}

// Logout revokes the session token and clears the cookie. Succeeds even when
// no cookie is present.
// POST /api/logout
func (h *Handler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cfg.Session.CookieName)
	if err == nil && token != "" {
		if err := h.store.DeleteToken(c.Request.Context(), token); err != nil {
			log.Error("failed to delete session token", "error", err)
			internalError(c)
			return
		}
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully.",
	})
}

// Me returns the current user, or a null user for every unauthenticated
// branch. Only unexpected store failures yield an error status.
// GET /api/me
func (h *Handler) Me(c *gin.Context) {
	user, err := h.auth.CurrentUser(c)
	if err != nil {
		log.Error("failed to resolve current user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"user": nil})
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.Session.CookieName, token, maxAge, "/", "", h.cfg.Production, true)
}
