package store

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// Group is a named collection of users used to scope voting sessions.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"groupName"`
	Description string `json:"description"`
}

// EnsureDefaultGroup creates the well-known default group if it does not
// exist yet. Idempotent.
func (s *Store) EnsureDefaultGroup(ctx context.Context) error {
	def := s.cfg.DefaultGroup
	return s.ensureGroup(ctx, def.ID, def.Name, def.Description)
}

// EnsureGroups creates any group on the list that does not exist yet, with a
// placeholder name and description. Idempotent.
func (s *Store) EnsureGroups(ctx context.Context, ids []string) error {
	ids = lo.Uniq(lo.Compact(ids))
	for _, id := range ids {
		name := fmt.Sprintf("Group %s", id)
		if err := s.ensureGroup(ctx, id, name, "Automatically created group for voting session"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureGroup(ctx context.Context, id, name, description string) error {
	exists, err := s.rdb.Exists(ctx, groupKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check group %s: %w", id, err)
	}
	if exists > 0 {
		return nil
	}
	if err := s.rdb.HSet(ctx, groupKey(id), map[string]any{
		"groupName":   name,
		"description": description,
	}).Err(); err != nil {
		return fmt.Errorf("failed to create group %s: %w", id, err)
	}
	return nil
}

// GetGroup loads a group record by id.
func (s *Store) GetGroup(ctx context.Context, id string) (*Group, error) {
	data, err := s.rdb.HGetAll(ctx, groupKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	return &Group{
		ID:          id,
		Name:        data["groupName"],
		Description: data["description"],
	}, nil
}

// AddUserToGroup records the membership on both the group's member set and
// the user's own group set.
func (s *Store) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	if err := s.rdb.SAdd(ctx, groupUsersKey(groupID), userID).Err(); err != nil {
		return fmt.Errorf("failed to add user to group: %w", err)
	}
	if err := s.rdb.SAdd(ctx, userGroupsKey(userID), groupID).Err(); err != nil {
		return fmt.Errorf("failed to record user membership: %w", err)
	}
	return nil
}

// GroupMembers returns the ids of all users in a group.
func (s *Store) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, groupUsersKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", err)
	}
	return members, nil
}

// UserGroups returns the ids of all groups a user belongs to.
func (s *Store) UserGroups(ctx context.Context, userID string) ([]string, error) {
	groups, err := s.rdb.SMembers(ctx, userGroupsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load user groups: %w", err)
	}
	return groups, nil
}

// CountGroups returns the number of group records.
func (s *Store) CountGroups(ctx context.Context) (int, error) {
	var n int
	iter := s.rdb.Scan(ctx, 0, "group:*", 0).Iterator()
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
