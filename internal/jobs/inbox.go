package jobs

import (
	"context"
	"sort"
	"time"

	"insta/internal/logging"
	"insta/internal/metrics"
	"insta/internal/model"
)

// InboxClient lists a user's conversations.
type InboxClient interface {
	Conversations(ctx context.Context, user string) ([]model.Conversation, error)
}

// Change is a thread that appeared or moved since the previous poll.
type Change struct {
	Conversation model.Conversation
	With         string
	New          bool
}

// Inbox remembers what user has already seen. The cursor survives restarts
// through the store.
type Inbox struct {
	client InboxClient
	db     CursorStore
	user   string
	seen   map[string]seenThread
}

func NewInbox(ctx context.Context, client InboxClient, db CursorStore, user string) *Inbox {
	return &Inbox{client: client, db: db, user: user, seen: loadCursor(ctx, db, inboxCursorKey(user))}
}

// PollOnce fetches the thread list and returns the changes, oldest first.
func (in *Inbox) PollOnce(ctx context.Context) ([]Change, error) {
	metrics.InboxPolls.Inc()
	convs, err := in.client.Conversations(ctx, in.user)
	if err != nil {
		return nil, err
	}
	var changes []Change
	for _, c := range convs {
		key := threadKey(c)
		prev, ok := in.seen[key]
		if ok && !c.Timestamp.After(prev.Timestamp) && c.LastMessage == prev.LastMessage {
			continue
		}
		in.seen[key] = seenThread{Timestamp: c.Timestamp, LastMessage: c.LastMessage}
		changes = append(changes, Change{Conversation: c, With: c.OtherParty(in.user), New: !ok})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Conversation.Timestamp.Before(changes[j].Conversation.Timestamp)
	})
	if len(changes) > 0 {
		if err := saveCursor(ctx, in.db, inboxCursorKey(in.user), in.seen); err != nil {
			logging.Warn("inbox_cursor_save_failed", map[string]any{"error": err.Error()})
		}
	}
	return changes, nil
}

// DefaultPollInterval replaces a non-positive interval given to WatchInbox.
const DefaultPollInterval = 10 * time.Second

// WatchInbox runs PollOnce on a ticker until ctx is cancelled, handing
// every non-empty batch of changes to onChange.
func WatchInbox(ctx context.Context, in *Inbox, interval time.Duration, onChange func([]Change)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	poll := func() {
		changes, err := in.PollOnce(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.Error("inbox_poll_error", map[string]any{"error": err.Error()})
			}
			return
		}
		if len(changes) > 0 {
			onChange(changes)
		}
	}
	// run immediately
	poll()
	for {
		select {
		case <-ctx.Done():
			logging.Info("inbox_watch_stop", nil)
			return ctx.Err()
		case <-t.C:
			poll()
		}
	}
}

func threadKey(c model.Conversation) string {
	if c.ID != "" {
		return c.ID
	}
	return c.Sender + "|" + c.Receiver
}
