package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// CursorStore is the key/value space inbox cursors persist into.
type CursorStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

func inboxCursorKey(user string) string { return "inbox:seen:" + user }

// seenThread is what the last poll saw of a thread.
type seenThread struct {
	Timestamp   time.Time `json:"ts"`
	LastMessage string    `json:"last"`
}

// loadCursor never returns nil. An unreadable cursor means everything
// shows up as new once.
func loadCursor(ctx context.Context, db CursorStore, key string) map[string]seenThread {
	b, err := db.Get(ctx, key)
	if err != nil || b == nil {
		return make(map[string]seenThread)
	}
	var seen map[string]seenThread
	if err := json.Unmarshal(b, &seen); err != nil || seen == nil {
		return make(map[string]seenThread)
	}
	return seen
}

func saveCursor(ctx context.Context, db CursorStore, key string, seen map[string]seenThread) error {
	b, err := json.Marshal(seen)
	if err != nil {
		return err
	}
	return db.Set(ctx, key, b)
}
