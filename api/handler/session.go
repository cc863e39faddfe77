package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mkarlsv/votify/api/models"
	"github.com/mkarlsv/votify/store"
)

// CreateSession creates a new voting session. Groups referenced by the
// payload are auto-created; without explicit groups the session goes to the
// default group.
// POST /api/createSession
func (h *Handler) CreateSession(c *gin.Context) {
	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body.",
		})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		log.Debug("session creation validation failed", "errors", len(errs))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  errs,
		})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.EnsureDefaultGroup(ctx); err != nil {
		log.Error("failed to ensure default group", "error", err)
		internalError(c)
		return
	}

	groupIDs := req.AssignedGroupIDs
	if len(groupIDs) == 0 {
		groupIDs = []string{h.cfg.DefaultGroup.ID}
	} else if err := h.store.EnsureGroups(ctx, groupIDs); err != nil {
		log.Error("failed to ensure groups", "error", err)
		internalError(c)
		return
	}

	start, end := req.Window()
	sessionID, err := h.store.CreateSession(ctx, store.SessionParams{
		Title:            req.Title,
		Description:      req.Description,
		StartTime:        start,
		EndTime:          end,
		SlideIDs:         req.SlideIDs,
		AssignedGroupIDs: groupIDs,
	})
	if err != nil {
		log.Error("failed to create voting session", "error", err)
		internalError(c)
		return
	}

	h.sessions.Invalidate(ctx)
	log.Info("voting session created", "sessionId", sessionID)
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"sessionId": sessionID,
	})
}

// GetSession returns one voting session with its slides and votes.
// GET /api/getSession/:sessionId
func (h *Handler) GetSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	ctx := c.Request.Context()

	sess, err := h.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Voting session not found.",
		})
		return
	}
	if errors.Is(err, store.ErrInvalidData) {
		log.Error("stored session data is invalid", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Invalid session data.",
		})
		return
	}
	if err != nil {
		log.Error("failed to load voting session", "sessionId", sessionID, "error", err)
		internalError(c)
		return
	}

	slides, err := h.store.SessionSlides(ctx, sessionID)
	if err != nil {
		log.Error("failed to load slides", "sessionId", sessionID, "error", err)
		internalError(c)
		return
	}

	votes, err := h.store.ListVotes(ctx, sessionID)
	if err != nil {
		log.Error("failed to load votes", "sessionId", sessionID, "error", err)
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": models.ToSessionView(sess, time.Now()),
		"slides":  slides,
		"votes":   votes,
	})
}

// GetAllSessions returns summaries of every voting session, served from the
// session list cache when fresh.
// GET /api/getAllSessions
func (h *Handler) GetAllSessions(c *gin.Context) {
	ctx := c.Request.Context()

	sessions, ok := h.sessions.Get(ctx)
	if !ok {
		var err error
		sessions, err = h.store.ListSessions(ctx)
		if err != nil {
			log.Error("failed to list voting sessions", "error", err)
			internalError(c)
			return
		}
		if err := h.sessions.Set(ctx, sessions); err != nil {
			log.Warn("failed to cache session list", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": models.ToSessionViews(sessions, time.Now()),
	})
}

// UpdateSession overwrites a voting session's attributes and replaces its
// slide list wholesale.
// PUT /api/updateSession/:sessionId
func (h *Handler) UpdateSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	ctx := c.Request.Context()

	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body.",
		})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		log.Debug("session update validation failed", "sessionId", sessionID, "errors", len(errs))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"errors":  errs,
		})
		return
	}

	groupIDs := req.AssignedGroupIDs
	if len(groupIDs) == 0 {
		groupIDs = []string{h.cfg.DefaultGroup.ID}
	} else if err := h.store.EnsureGroups(ctx, groupIDs); err != nil {
		log.Error("failed to ensure groups", "error", err)
		internalError(c)
		return
	}

	start, end := req.Window()
	err := h.store.UpdateSession(ctx, sessionID, store.SessionParams{
		Title:            req.Title,
		Description:      req.Description,
		StartTime:        start,
		EndTime:          end,
		SlideIDs:         req.SlideIDs,
		AssignedGroupIDs: groupIDs,
	})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Voting session not found.",
		})
		return
	}
	if err != nil {
		log.Error("failed to update voting session", "sessionId", sessionID, "error", err)
		internalError(c)
		return
	}

	h.sessions.Invalidate(ctx)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": sessionID,
	})
}
