// Package handler implements the JSON API route handlers.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsv/votify/api/auth"
	"github.com/mkarlsv/votify/cache"
	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/store"
)

type Handler struct {
	store    *store.Store
	sessions *cache.Sessions
	auth     *auth.Middleware
	cfg      *config.Config
}

func New(st *store.Store, sessions *cache.Sessions, authMw *auth.Middleware, cfg *config.Config) *Handler {
	return &Handler{
		store:    st,
		sessions: sessions,
		auth:     authMw,
		cfg:      cfg,
	}
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Internal Server Error",
	})
}
