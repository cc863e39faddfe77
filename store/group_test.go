package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultGroup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.EnsureDefaultGroup(ctx))
	require.NoError(t, s.EnsureDefaultGroup(ctx), "idempotent")

	g, err := s.GetGroup(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "General", g.Name)
	assert.Equal(t, "Default group for all registered users", g.Description)
}

func TestEnsureGroups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.EnsureGroups(ctx, []string{"team-a", "team-b", "team-a", ""}))

	g, err := s.GetGroup(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, "Group team-a", g.Name)

	_, err = s.GetGroup(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound, "empty ids are dropped")

	// ensure does not overwrite an existing group
	require.NoError(t, s.Client().HSet(ctx, groupKey("team-a"), "groupName", "Alpha").Err())
	require.NoError(t, s.EnsureGroups(ctx, []string{"team-a"}))
	g, err = s.GetGroup(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", g.Name)
}

func TestAddUserToGroup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateUser(ctx, CreateUserParams{
		FirstName: "Alice", LastName: "Smith", Username: "alice", Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, s.EnsureGroups(ctx, []string{"team-a"}))
	require.NoError(t, s.AddUserToGroup(ctx, id, "team-a"))

	members, err := s.GroupMembers(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, members)

	groups, err := s.UserGroups(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"default", "team-a"}, groups)
}
