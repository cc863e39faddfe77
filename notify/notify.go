// Package notify sweeps for voting sessions whose window just opened and
// fans the notification out to the members of their assigned groups.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/mkarlsv/votify/notify/email"
	"github.com/mkarlsv/votify/store"
)

// Notifier finds newly opened sessions and notifies eligible voters.
type Notifier struct {
	store *store.Store
	email *email.Service
}

// New creates a notifier.
func New(st *store.Store, emailSvc *email.Service) *Notifier {
	return &Notifier{
		store: st,
		email: emailSvc,
	}
}

// NotifyOpenSessions sends the one-time "voting is open" notification for
// every ongoing session that has not been announced yet. The notified mark
// is claimed with a conditional write, so concurrent sweeps send at most
// one announcement per session.
func (n *Notifier) NotifyOpenSessions(ctx context.Context) error {
	if !n.email.Enabled() {
		return nil
	}

	sessions, err := n.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	now := time.Now()
	for _, sess := range sessions {
		if sess.Status(now) != store.StatusOngoing {
			continue
		}

		claimed, err := n.store.MarkNotified(ctx, sess.ID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}

		users, err := n.sessionAudience(ctx, sess)
		if err != nil {
			return err
		}

		log.Info("announcing opened voting session", "sessionId", sess.ID, "recipients", len(users))
		if err := n.email.SendSessionOpened(sess, users); err != nil {
			return err
		}
	}

	return nil
}

// sessionAudience collects the users of every group assigned to a session,
// deduplicated across groups.
func (n *Notifier) sessionAudience(ctx context.Context, sess *store.Session) ([]*store.User, error) {
	var memberIDs []string
	for _, groupID := range sess.AssignedGroupIDs {
		members, err := n.store.GroupMembers(ctx, groupID)
		if err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, members...)
	}

	users := make([]*store.User, 0, len(memberIDs))
	for _, id := range lo.Uniq(memberIDs) {
		user, err := n.store.GetUser(ctx, id)
		if err != nil {
			// Stale membership entries are skipped, not fatal.
			log.Warn("failed to load group member", "userId", id, "error", err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
