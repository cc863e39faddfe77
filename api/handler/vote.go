package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mkarlsv/votify/api/auth"
	"github.com/mkarlsv/votify/api/models"
	"github.com/mkarlsv/votify/store"
)

// CastVote records the caller's vote for one option of an ongoing session
// and returns the updated tally. One vote per user, first write wins.
// POST /api/castVote/:sessionId
func (h *Handler) CastVote(c *gin.Context) {
	sessionID := c.Param("sessionId")
	user := c.MustGet(auth.UserContextKey).(*store.User)

	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SelectedOption == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "An option must be selected.",
		})
		return
	}

	ctx := c.Request.Context()
	err := h.store.CastVote(ctx, sessionID, user.ID, req.SelectedOption)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Voting session not found.",
		})
		return
	case errors.Is(err, store.ErrSessionClosed):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "This voting session is not open for votes.",
		})
		return
	case errors.Is(err, store.ErrUnknownOption):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Unknown option.",
		})
		return
	case errors.Is(err, store.ErrAlreadyVoted):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "You have already voted in this session.",
		})
		return
	case err != nil:
		log.Error("failed to cast vote", "sessionId", sessionID, "error", err)
		internalError(c)
		return
	}

	tally, err := h.store.TallyVotes(ctx, sessionID)
	if err != nil {
		log.Error("failed to tally votes", "sessionId", sessionID, "error", err)
		internalError(c)
		return
	}

	log.Info("vote cast", "sessionId", sessionID, "userId", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tally":   tally,
	})
}

// GetResults returns the per-option vote counts of a session.
// GET /api/getResults/:sessionId
func (h *Handler) GetResults(c *gin.Context) {
	sessionID := c.Param("sessionId")

	tally, err := h.store.TallyVotes(c.Request.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Voting session not found.",
		})
		return
	}
	if err != nil {
		log.Error("failed to tally votes", "sessionId", sessionID, "error", err)
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"results":    tally.Counts,
		"totalVotes": tally.Total,
	})
}
