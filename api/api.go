// Package api wires the HTTP surface of Votify: the JSON API and the
// server-rendered pages.
package api

import (
	"fmt"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/mkarlsv/votify/api/auth"
	"github.com/mkarlsv/votify/api/handler"
	"github.com/mkarlsv/votify/api/middleware"
	"github.com/mkarlsv/votify/cache"
	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/store"
	"github.com/mkarlsv/votify/web"
)

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	store     *store.Store
	sessions  *cache.Sessions
	authMw    *auth.Middleware
}

func New(cfg *config.Config, st *store.Store, sessions *cache.Sessions) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.Default(),
		store:     st,
		sessions:  sessions,
		authMw:    auth.New(st, cfg.Session.CookieName),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))

	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("failed to parse page templates: %w", err)
	}
	s.ginEngine.SetHTMLTemplate(tmpl)

	h := handler.New(s.store, s.sessions, s.authMw, s.cfg)
	pages := web.New(s.store, s.sessions, s.authMw)

	// Server-rendered pages
	s.ginEngine.GET("/", pages.Home)
	s.ginEngine.GET("/login", pages.Login)
	s.ginEngine.GET("/register", pages.Register)
	s.ginEngine.GET("/vote/new", pages.NewSession)
	s.ginEngine.GET("/vote/:sessionId", pages.Session)
	s.ginEngine.GET("/vote/:sessionId/results", pages.Results)
	s.ginEngine.GET("/vote/:sessionId/settings", pages.EditSession)

	// JSON API
	api := s.ginEngine.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/login", middleware.LoginRateLimit(s.store.Client(), s.cfg.RateLimit), h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/me", h.Me)

	api.GET("/getSession/:sessionId", h.GetSession)
	api.GET("/getAllSessions", h.GetAllSessions)
	api.GET("/getResults/:sessionId", h.GetResults)

	protected := api.Group("", s.authMw.RequireAuth())
	protected.POST("/castVote/:sessionId", h.CastVote)

	admin := protected.Group("", s.authMw.RequireAdmin())
	admin.POST("/createSession", h.CreateSession)
	admin.PUT("/updateSession/:sessionId", h.UpdateSession)
	admin.GET("/admin/stats", h.Stats)

	return nil
}

// Router exposes the configured engine, used by tests and by Run.
func (s *Server) Router() *gin.Engine {
	return s.ginEngine
}

func (s *Server) Run() error {
	return s.ginEngine.Run(s.cfg.Listen)
}
