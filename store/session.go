package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Status of a voting session, derived from its time window at read time.
// It is never persisted.
type Status string

const (
	StatusOngoing Status = "ongoing"
	StatusEnded   Status = "ended"
)

// Session is a time-bounded poll with slides and eligible groups.
type Session struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	SlideIDs         []string  `json:"slideIds"`
	AssignedGroupIDs []string  `json:"assignedGroupIds"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Status derives the session state from the wall clock: ongoing while now
// falls within [start, end], ended otherwise.
func (s *Session) Status(now time.Time) Status {
	if !now.Before(s.StartTime) && !now.After(s.EndTime) {
		return StatusOngoing
	}
	return StatusEnded
}

// SessionParams holds the writable attributes of a voting session.
type SessionParams struct {
	Title            string
	Description      string
	StartTime        time.Time
	EndTime          time.Time
	SlideIDs         []string
	AssignedGroupIDs []string
}

// CreateSession writes a new session hash and its slide list and returns the
// generated id. Array-valued fields are stored as JSON strings. The vote
// list starts empty.
func (s *Store) CreateSession(ctx context.Context, p SessionParams) (string, error) {
	id := uuid.NewString()

	fields, err := sessionFields(p)
	if err != nil {
		return "", err
	}
	fields["createdAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.rdb.HSet(ctx, sessionKey(id), fields).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	if err := s.rdb.RPush(ctx, slidesKey(id), toAnySlice(p.SlideIDs)...).Err(); err != nil {
		return "", fmt.Errorf("failed to store slide list: %w", err)
	}

	return id, nil
}

// GetSession loads and decodes a session hash.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return decodeSession(id, data)
}

// SessionSlides returns the ordered slide list of a session.
func (s *Store) SessionSlides(ctx context.Context, id string) ([]string, error) {
	slides, err := s.rdb.LRange(ctx, slidesKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load slide list: %w", err)
	}
	return slides, nil
}

// UpdateSession overwrites the session hash fields and replaces the slide
// list wholesale. The session must already exist.
func (s *Store) UpdateSession(ctx context.Context, id string, p SessionParams) error {
	exists, err := s.rdb.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}

	fields, err := sessionFields(p)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, sessionKey(id), fields).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if err := s.rdb.Del(ctx, slidesKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear slide list: %w", err)
	}
	if err := s.rdb.RPush(ctx, slidesKey(id), toAnySlice(p.SlideIDs)...).Err(); err != nil {
		return fmt.Errorf("failed to rewrite slide list: %w", err)
	}

	return nil
}

// ListSessions scans all session record keys and hydrates them concurrently.
// Sub-list keys (slides, votes, voters) are filtered out by key shape.
// Records that fail to decode are skipped, not fatal.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	var ids []string
	iter := s.rdb.Scan(ctx, 0, "session:*", 0).Iterator()
	for iter.Next(ctx) {
		if key := iter.Val(); isRecordKey(key) {
			ids = append(ids, strings.TrimPrefix(key, "session:"))
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	var (
		mu       sync.Mutex
		sessions []*Session
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, id := range ids {
		g.Go(func() error {
			sess, err := s.GetSession(gctx, id)
			if err != nil {
				// Tolerate individual bad records so one corrupt
				// session cannot take down the whole listing.
				return nil
			}
			mu.Lock()
			sessions = append(sessions, sess)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// CountSessions returns the number of session records.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	iter := s.rdb.Scan(ctx, 0, "session:*", 0).Iterator()
	for iter.Next(ctx) {
		if isRecordKey(iter.Val()) {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan keys: %w", err)
	}
	return n, nil
}

func sessionFields(p SessionParams) (map[string]any, error) {
	slideIDs, err := json.Marshal(p.SlideIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode slide ids: %w", err)
	}
	groupIDs, err := json.Marshal(lo.Uniq(p.AssignedGroupIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to encode group ids: %w", err)
	}
	return map[string]any{
		"title":            p.Title,
		"description":      p.Description,
		"startTime":        p.StartTime.UTC().Format(time.RFC3339),
		"endTime":          p.EndTime.UTC().Format(time.RFC3339),
		"slideIds":         string(slideIDs),
		"assignedGroupIds": string(groupIDs),
	}, nil
}

func decodeSession(id string, data map[string]string) (*Session, error) {
	for _, field := range []string{"title", "description", "startTime", "endTime"} {
		if data[field] == "" {
			return nil, fmt.Errorf("session %q missing field %s: %w", id, field, ErrInvalidData)
		}
	}

	start, err := ParseTimestamp(data["startTime"])
	if err != nil {
		return nil, fmt.Errorf("session %q start time: %w", id, ErrInvalidData)
	}
	end, err := ParseTimestamp(data["endTime"])
	if err != nil {
		return nil, fmt.Errorf("session %q end time: %w", id, ErrInvalidData)
	}

	sess := &Session{
		ID:               id,
		Title:            data["title"],
		Description:      data["description"],
		StartTime:        start,
		EndTime:          end,
		SlideIDs:         decodeStringSlice(data["slideIds"]),
		AssignedGroupIDs: decodeStringSlice(data["assignedGroupIds"]),
	}
	if created, err := ParseTimestamp(data["createdAt"]); err == nil {
		sess.CreatedAt = created
	}
	return sess, nil
}

// decodeStringSlice reads an array-valued hash field. The canonical encoding
// is a JSON array string; legacy rows used comma-joined strings, which are
// still accepted at read time.
func decodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var vals []string
		if err := json.Unmarshal([]byte(raw), &vals); err == nil {
			return vals
		}
	}
	return strings.Split(raw, ",")
}

// ParseTimestamp reads a timestamp in either of the two accepted layouts:
// RFC 3339 or the datetime-local form browsers submit.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// isRecordKey reports whether a key names a top-level record rather than a
// derived sub-collection like session:<id>:slides.
func isRecordKey(key string) bool {
	return strings.Count(key, ":") == 1
}

func toAnySlice(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
