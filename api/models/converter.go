package models

import (
	"time"

	"github.com/mkarlsv/votify/store"
)

// SessionView is the JSON shape of a voting session, with the status derived
// at render time from the session's window.
type SessionView struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	StartTime        string   `json:"startTime"`
	EndTime          string   `json:"endTime"`
	Status           string   `json:"status"`
	SlideIDs         []string `json:"slideIds"`
	AssignedGroupIDs []string `json:"assignedGroupIds"`
	CreatedAt        string   `json:"createdAt"`
}

// ToSessionView converts a stored session to its API shape.
func ToSessionView(s *store.Session, now time.Time) SessionView {
	view := SessionView{
		ID:               s.ID,
		Title:            s.Title,
		Description:      s.Description,
		StartTime:        s.StartTime.Format(time.RFC3339),
		EndTime:          s.EndTime.Format(time.RFC3339),
		Status:           string(s.Status(now)),
		SlideIDs:         s.SlideIDs,
		AssignedGroupIDs: s.AssignedGroupIDs,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
	}
	if view.SlideIDs == nil {
		view.SlideIDs = []string{}
	}
	if view.AssignedGroupIDs == nil {
		view.AssignedGroupIDs = []string{}
	}
	return view
}

// ToSessionViews converts a stored session list to its API shape.
func ToSessionViews(sessions []*store.Session, now time.Time) []SessionView {
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, ToSessionView(s, now))
	}
	return views
}
