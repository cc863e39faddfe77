// Package models defines the JSON request and response shapes of the Votify API.
package models

import (
	"net/mail"
	"time"

	"github.com/mkarlsv/votify/store"
)

// FieldError reports a validation failure for a single request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RegisterRequest is the payload of POST /api/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password"`
}

// Validate checks the registration payload and reports every offending field.
func (r *RegisterRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.FirstName) < 2 {
		errs = append(errs, FieldError{"firstName", "First name must be at least 2 characters."})
	}
	if len(r.LastName) < 2 {
		errs = append(errs, FieldError{"lastName", "Last name must be at least 2 characters."})
	}
	if len(r.Username) < 2 {
		errs = append(errs, FieldError{"username", "Username must be at least 2 characters."})
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			errs = append(errs, FieldError{"email", "Invalid email address."})
		}
	}
	if len(r.Password) < 6 {
		errs = append(errs, FieldError{"password", "Password must be at least 6 characters."})
	}
	return errs
}

// LoginRequest is the payload of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the login payload.
func (r *LoginRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.Username) < 2 {
		errs = append(errs, FieldError{"username", "Username must be at least 2 characters."})
	}
	if len(r.Password) < 6 {
		errs = append(errs, FieldError{"password", "Password must be at least 6 characters."})
	}
	return errs
}

// SessionRequest is the payload of POST /api/createSession and
// PUT /api/updateSession/:sessionId.
type SessionRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	StartTime        string   `json:"startTime"`
	EndTime          string   `json:"endTime"`
	AssignedGroupIDs []string `json:"assignedGroupIds,omitempty"`
	SlideIDs         []string `json:"slideIds"`
}

// Validate checks the session payload and reports every offending field.
func (r *SessionRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.Title) < 5 {
		errs = append(errs, FieldError{"title", "Title must be at least 5 characters."})
	}
	if len(r.Description) < 10 {
		errs = append(errs, FieldError{"description", "Description must be at least 10 characters."})
	}
	if _, err := store.ParseTimestamp(r.StartTime); err != nil {
		errs = append(errs, FieldError{"startTime", "Invalid start time."})
	}
	if _, err := store.ParseTimestamp(r.EndTime); err != nil {
		errs = append(errs, FieldError{"endTime", "Invalid end time."})
	}
	if len(r.SlideIDs) == 0 {
		errs = append(errs, FieldError{"slideIds", "At least one slide is required."})
	}
	return errs
}

// Window returns the parsed start and end timestamps. Call Validate first.
func (r *SessionRequest) Window() (start, end time.Time) {
	start, _ = store.ParseTimestamp(r.StartTime)
	end, _ = store.ParseTimestamp(r.EndTime)
	return start, end
}

// VoteRequest is the payload of POST /api/castVote/:sessionId.
type VoteRequest struct {
	SelectedOption string `json:"selectedOption"`
}
