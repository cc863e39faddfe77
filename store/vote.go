package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Vote is a single vote record, appended to a session's vote list as a JSON
// blob.
type Vote struct {
	VoterID        string    `json:"voterId"`
	SelectedOption string    `json:"selectedOption"`
	VotedAt        time.Time `json:"votedAt"`
}

// Tally is the vote count per option for a session. Every slide id appears,
// zero-filled when it received no votes.
type Tally struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"totalVotes"`
}

// CastVote appends a vote to a session's vote list. The session must be
// ongoing and the option must be on its slide list. Each voter gets exactly
// one vote, enforced with a set membership write: the first SADD wins.
func (s *Store) CastVote(ctx context.Context, sessionID, voterID, option string) error {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status(time.Now()) != StatusOngoing {
		return ErrSessionClosed
	}
	if !slices.Contains(sess.SlideIDs, option) {
		return fmt.Errorf("option %q: %w", option, ErrUnknownOption)
	}

	added, err := s.rdb.SAdd(ctx, votersKey(sessionID), voterID).Result()
	if err != nil {
		return fmt.Errorf("failed to record voter: %w", err)
	}
	if added == 0 {
		return ErrAlreadyVoted
	}

	record, err := json.Marshal(Vote{
		VoterID:        voterID,
		SelectedOption: option,
		VotedAt:        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode vote: %w", err)
	}
	if err := s.rdb.RPush(ctx, votesKey(sessionID), record).Err(); err != nil {
		// Unwind the voter mark so the vote can be retried.
		s.rdb.SRem(ctx, votersKey(sessionID), voterID)
		return fmt.Errorf("failed to store vote: %w", err)
	}

	return nil
}

// ListVotes returns all vote records of a session in cast order.
// Entries that fail to decode (legacy placeholder blobs) are skipped.
func (s *Store) ListVotes(ctx context.Context, sessionID string) ([]Vote, error) {
	raw, err := s.rdb.LRange(ctx, votesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load vote list: %w", err)
	}

	votes := make([]Vote, 0, len(raw))
	for _, entry := range raw {
		var v Vote
		if err := json.Unmarshal([]byte(entry), &v); err != nil || v.SelectedOption == "" {
			continue
		}
		votes = append(votes, v)
	}
	return votes, nil
}

// TallyVotes counts the votes per option over the session's full slide list.
func (s *Store) TallyVotes(ctx context.Context, sessionID string) (*Tally, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	votes, err := s.ListVotes(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	tally := &Tally{Counts: make(map[string]int, len(sess.SlideIDs))}
	for _, slideID := range sess.SlideIDs {
		tally.Counts[slideID] = 0
	}
	for _, v := range votes {
		if _, ok := tally.Counts[v.SelectedOption]; !ok {
			// Votes for slides removed by a later update still count
			// toward the total but get no own bucket.
			tally.Total++
			continue
		}
		tally.Counts[v.SelectedOption]++
		tally.Total++
	}
	return tally, nil
}

// MarkNotified records that the open-session notification for a session went
// out. Returns false when the mark was already set.
func (s *Store) MarkNotified(ctx context.Context, sessionID string) (bool, error) {
	set, err := s.rdb.SetNX(ctx, notifiedKey(sessionID), "1", 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark session notified: %w", err)
	}
	return set, nil
}
