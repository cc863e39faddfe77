package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastVote(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, testSessionParams(
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, s.CastVote(ctx, id, "voter-1", "slide-2"))

	votes, err := s.ListVotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "voter-1", votes[0].VoterID)
	assert.Equal(t, "slide-2", votes[0].SelectedOption)
	assert.False(t, votes[0].VotedAt.IsZero())
}

func TestCastVote_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	open, err := s.CreateSession(ctx, testSessionParams(
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	closed, err := s.CreateSession(ctx, testSessionParams(
		time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	t.Run("unknown session", func(t *testing.T) {
		err := s.CastVote(ctx, "missing", "voter-1", "slide-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("closed session", func(t *testing.T) {
		err := s.CastVote(ctx, closed, "voter-1", "slide-1")
		assert.ErrorIs(t, err, ErrSessionClosed)
	})

	t.Run("option not on the slide list", func(t *testing.T) {
		err := s.CastVote(ctx, open, "voter-1", "slide-99")
		assert.ErrorIs(t, err, ErrUnknownOption)
	})

	t.Run("second vote by the same voter", func(t *testing.T) {
		require.NoError(t, s.CastVote(ctx, open, "voter-1", "slide-1"))
		err := s.CastVote(ctx, open, "voter-1", "slide-2")
		assert.ErrorIs(t, err, ErrAlreadyVoted)

		// the first vote is the one that sticks
		votes, err := s.ListVotes(ctx, open)
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, "slide-1", votes[0].SelectedOption)
	})
}

func TestTallyVotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, testSessionParams(
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, s.CastVote(ctx, id, "voter-1", "slide-1"))
	require.NoError(t, s.CastVote(ctx, id, "voter-2", "slide-1"))
	require.NoError(t, s.CastVote(ctx, id, "voter-3", "slide-3"))

	tally, err := s.TallyVotes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, tally.Total)
	assert.Equal(t, map[string]int{
		"slide-1": 2,
		"slide-2": 0,
		"slide-3": 1,
	}, tally.Counts, "every slide id is present, zero-filled")
}

func TestListVotes_SkipsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, testSessionParams(
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	// legacy rows carry a "[]" placeholder and the odd broken entry
	require.NoError(t, s.Client().RPush(ctx, votesKey(id), "[]", "not json").Err())
	require.NoError(t, s.CastVote(ctx, id, "voter-1", "slide-1"))

	votes, err := s.ListVotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "voter-1", votes[0].VoterID)
}

func TestMarkNotified(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.MarkNotified(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.MarkNotified(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, again)
}
