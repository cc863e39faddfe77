package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mkarlsv/votify/store"
)

// sessionCard is the view model for one entry on the session list.
type sessionCard struct {
	ID          string
	Title       string
	Description string
	Status      store.Status
	StartTime   time.Time
	EndTime     time.Time
	CreatedAt   time.Time
	VoteCount   int
}

// Home renders the voting session list.
func (p *Pages) Home(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := p.auth.CurrentUser(c)
	if err != nil {
		log.Error("failed to resolve current user", "error", err)
	}

	sessions, ok := p.sessions.Get(ctx)
	if !ok {
		sessions, err = p.store.ListSessions(ctx)
		if err != nil {
			log.Error("failed to list voting sessions", "error", err)
			c.String(http.StatusInternalServerError, "failed to load voting sessions")
			return
		}
		if err := p.sessions.Set(ctx, sessions); err != nil {
			log.Warn("failed to cache session list", "error", err)
		}
	}

	now := time.Now()
	cards := make([]sessionCard, 0, len(sessions))
	for _, s := range sessions {
		tally, err := p.store.TallyVotes(ctx, s.ID)
		if err != nil {
			log.Warn("failed to tally votes", "sessionId", s.ID, "error", err)
			tally = &store.Tally{}
		}
		cards = append(cards, sessionCard{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Status:      s.Status(now),
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			CreatedAt:   s.CreatedAt,
			VoteCount:   tally.Total,
		})
	}

	c.HTML(http.StatusOK, "home.html", gin.H{
		"User":     user,
		"Sessions": cards,
	})
}

// Login renders the login form, or redirects home when already logged in.
func (p *Pages) Login(c *gin.Context) {
	if user, _ := p.auth.CurrentUser(c); user != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", nil)
}

// Register renders the registration form.
func (p *Pages) Register(c *gin.Context) {
	if user, _ := p.auth.CurrentUser(c); user != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "register.html", nil)
}

// NewSession renders the session creation form. Only admins manage
// sessions; everyone else is sent back to the list.
func (p *Pages) NewSession(c *gin.Context) {
	user, err := p.auth.CurrentUser(c)
	if err != nil {
		log.Error("failed to resolve current user", "error", err)
	}
	if user == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if !user.IsAdmin {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "session_new.html", gin.H{"User": user})
}

// EditSession renders the settings form for one session, prefilled with its
// current attributes. Admin only.
func (p *Pages) EditSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	ctx := c.Request.Context()

	user, err := p.auth.CurrentUser(c)
	if err != nil {
		log.Error("failed to resolve current user", "error", err)
	}
	if user == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if !user.IsAdmin {
		c.Redirect(http.StatusFound, "/vote/"+sessionID)
		return
	}

	sess, err := p.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		c.String(http.StatusNotFound, "voting session not found")
		return
	}
	if err != nil {
		log.Error("failed to load voting session", "sessionId", sessionID, "error", err)
		c.String(http.StatusInternalServerError, "failed to load voting session")
		return
	}

	slides, err := p.store.SessionSlides(ctx, sessionID)
	if err != nil {
		log.Error("failed to load slides", "sessionId", sessionID, "error", err)
		c.String(http.StatusInternalServerError, "failed to load voting session")
		return
	}

	c.HTML(http.StatusOK, "session_edit.html", gin.H{
		"User":    user,
		"Session": sess,
		"Slides":  slides,
	})
}

// Session renders the voting page for one session.
func (p *Pages) Session(c *gin.Context) {
	sessionID := c.Param("sessionId")
	ctx := c.Request.Context()

	user, err := p.auth.CurrentUser(c)
	if err != nil {
		log.Error("failed to resolve current user", "error", err)
	}

	sess, err := p.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		c.String(http.StatusNotFound, "voting session not found")
		return
	}
	if err != nil {
		log.Error("failed to load voting session", "sessionId", sessionID, "error", err)
		c.String(http.StatusInternalServerError, "failed to load voting session")
		return
	}

	slides, err := p.store.SessionSlides(ctx, sessionID)
	if err != nil {
		log.Error("failed to load slides", "sessionId", sessionID, "error", err)
		c.String(http.StatusInternalServerError, "failed to load voting session")
		return
	}

	c.HTML(http.StatusOK, "session.html", gin.H{
		"User":    user,
		"Session": sess,
		"Status":  sess.Status(time.Now()),
		"Slides":  slides,
	})
}

// Results renders the tally page for one session.
func (p *Pages) Results(c *gin.Context) {
	sessionID := c.Param("sessionId")
	ctx := c.Request.Context()

	user, err := p.auth.CurrentUser(c)
	if err != nil {
		log.Error("failed to resolve current user", "error", err)
	}

	sess, err := p.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		c.String(http.StatusNotFound, "voting session not found")
		return
	}
	if err != nil {
		log.Error("failed to load voting session", "sessionId", sessionID, "error", err)
		c.String(http.StatusInternalServerError, "failed to load voting session")
		return
	}

	tally, err := p.store.TallyVotes(ctx, sessionID)
	if err != nil {
		log.Error("failed to tally votes", "sessionId", sessionID, "error", err)
		c.String(http.StatusInternalServerError, "failed to load results")
		return
	}

	c.HTML(http.StatusOK, "results.html", gin.H{
		"User":    user,
		"Session": sess,
		"Status":  sess.Status(time.Now()),
		"Tally":   tally,
	})
}
