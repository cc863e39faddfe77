package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret1",
	}

	t.Run("valid", func(t *testing.T) {
		assert.Empty(t, valid.Validate())
	})

	t.Run("email is optional", func(t *testing.T) {
		r := valid
		r.Email = ""
		assert.Empty(t, r.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		field  string
	}{
		{"short first name", func(r *RegisterRequest) { r.FirstName = "A" }, "firstName"},
		{"short last name", func(r *RegisterRequest) { r.LastName = "S" }, "lastName"},
		{"short username", func(r *RegisterRequest) { r.Username = "a" }, "username"},
		{"invalid email", func(r *RegisterRequest) { r.Email = "nope" }, "email"},
		{"short password", func(r *RegisterRequest) { r.Password = "12345" }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			errs := r.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.NotEmpty(t, errs[0].Message)
		})
	}

	t.Run("reports every offending field", func(t *testing.T) {
		r := RegisterRequest{}
		assert.Len(t, r.Validate(), 4, "email is the only optional field")
	})
}

func TestSessionRequestValidate(t *testing.T) {
	valid := SessionRequest{
		Title:       "Quarterly planning vote",
		Description: "Pick the slide we present first.",
		StartTime:   "2026-03-01T10:00",
		EndTime:     "2026-03-01T12:00:00Z",
		SlideIDs:    []string{"slide-1"},
	}

	t.Run("valid, both timestamp layouts", func(t *testing.T) {
		assert.Empty(t, valid.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*SessionRequest)
		field  string
	}{
		{"short title", func(r *SessionRequest) { r.Title = "vote" }, "title"},
		{"short description", func(r *SessionRequest) { r.Description = "too short" }, "description"},
		{"bad start time", func(r *SessionRequest) { r.StartTime = "yesterday" }, "startTime"},
		{"bad end time", func(r *SessionRequest) { r.EndTime = "" }, "endTime"},
		{"no slides", func(r *SessionRequest) { r.SlideIDs = nil }, "slideIds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			errs := r.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestSessionRequestWindow(t *testing.T) {
	r := SessionRequest{
		StartTime: "2026-03-01T10:00",
		EndTime:   "2026-03-01T12:00:00Z",
	}
	start, end := r.Window()
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), end)
}
