package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// User is a registered account. The password hash never leaves the store.
type User struct {
	ID        string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	IsAdmin   bool   `json:"isAdmin"`
}

// CreateUserParams holds the attributes for a new user.
type CreateUserParams struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// CreateUser registers a new user. The username index (and email index, when
// an email is given) is claimed with a single conditional write so two
// concurrent registrations cannot both pass a separate existence check.
// Returns ErrConflict when the username or email is already taken.
func (s *Store) CreateUser(ctx context.Context, p CreateUserParams) (string, error) {
	username := strings.ToLower(strings.TrimSpace(p.Username))
	email := strings.ToLower(strings.TrimSpace(p.Email))

	id := uuid.NewString()

	claimed, err := s.rdb.SetNX(ctx, usernameKey(username), id, 0).Result()
	if err != nil {
		return "", fmt.Errorf("failed to claim username: %w", err)
	}
	if !claimed {
		return "", fmt.Errorf("username %q: %w", username, ErrConflict)
	}

	if email != "" {
		claimed, err := s.rdb.SetNX(ctx, emailKey(email), id, 0).Result()
		if err != nil {
			return "", fmt.Errorf("failed to claim email: %w", err)
		}
		if !claimed {
			// Unwind the username claim so the name stays available.
			s.rdb.Del(ctx, usernameKey(username))
			return "", fmt.Errorf("email %q: %w", email, ErrConflict)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.rdb.HSet(ctx, userKey(id), map[string]any{
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"username":  username,
		"email":     email,
		"password":  string(hash),
	}).Err(); err != nil {
		return "", fmt.Errorf("failed to store user: %w", err)
	}

	if err := s.rdb.Set(ctx, adminFlagKey(id), "false", 0).Err(); err != nil {
		return "", fmt.Errorf("failed to set admin flag: %w", err)
	}

	if err := s.EnsureDefaultGroup(ctx); err != nil {
		return "", err
	}
	if err := s.AddUserToGroup(ctx, id, s.cfg.DefaultGroup.ID); err != nil {
		return "", err
	}

	return id, nil
}

// GetUser loads a user record by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	data, err := s.rdb.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}

	isAdmin, err := s.IsAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:        id,
		FirstName: data["firstName"],
		LastName:  data["lastName"],
		Username:  data["username"],
		Email:     data["email"],
		IsAdmin:   isAdmin,
	}, nil
}

// GetUserByUsername resolves a username through the index and loads the user.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	id, err := s.rdb.Get(ctx, usernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("username %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}
	return s.GetUser(ctx, id)
}

// Authenticate verifies a username/password pair. Every failure branch
// (unknown user, missing record, wrong password) collapses into
// ErrInvalidCredentials to resist user enumeration.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	id, err := s.rdb.Get(ctx, usernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}

	data, err := s.rdb.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(data["password"]), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	isAdmin, err := s.IsAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:        id,
		FirstName: data["firstName"],
		LastName:  data["lastName"],
		Username:  data["username"],
		Email:     data["email"],
		IsAdmin:   isAdmin,
	}, nil
}

// IsAdmin reads the admin flag of a user. Missing flags count as false.
func (s *Store) IsAdmin(ctx context.Context, id string) (bool, error) {
	val, err := s.rdb.Get(ctx, adminFlagKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read admin flag: %w", err)
	}
	return val == "true", nil
}

// SetAdmin flips the admin flag of a user.
func (s *Store) SetAdmin(ctx context.Context, id string, admin bool) error {
	exists, err := s.rdb.Exists(ctx, userKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	val := "false"
	if admin {
		val = "true"
	}
	if err := s.rdb.Set(ctx, adminFlagKey(id), val, 0).Err(); err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	return nil
}

// CountUsers returns the number of user index entries.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.countKeys(ctx, "user:username:*")
}

func (s *Store) countKeys(ctx context.Context, pattern string) (int, error) {
	var n int
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan keys: %w", err)
	}
	return n, nil
}
