package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"insta/internal/model"
	"insta/internal/store/localdb"
)

type fakeInbox struct {
	mu    sync.Mutex
	convs []model.Conversation
	err   error
	calls int
}

func (f *fakeInbox) Conversations(ctx context.Context, user string) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]model.Conversation{}, f.convs...), f.err
}

func (f *fakeInbox) set(convs ...model.Conversation) {
	f.mu.Lock()
	f.convs = convs
	f.mu.Unlock()
}

func openDB(t *testing.T) *localdb.DB {
	t.Helper()
	db, err := localdb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPollOnceReportsNewAndMovedThreads(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f := &fakeInbox{}
	f.set(
		model.Conversation{ID: "c2", Sender: "carol", Receiver: "alice", LastMessage: "yo", Timestamp: t0.Add(time.Minute)},
		model.Conversation{ID: "c1", Sender: "alice", Receiver: "bob", LastMessage: "hi", Timestamp: t0},
	)
	in := NewInbox(ctx, f, db, "alice")

	changes, err := in.PollOnce(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, "bob", changes[0].With)
	require.True(t, changes[0].New)
	require.Equal(t, "carol", changes[1].With)

	changes, err = in.PollOnce(ctx)
	require.NoError(t, err)
	require.Empty(t, changes)

	f.set(
		model.Conversation{ID: "c2", Sender: "carol", Receiver: "alice", LastMessage: "yo", Timestamp: t0.Add(time.Minute)},
		model.Conversation{ID: "c1", Sender: "alice", Receiver: "bob", LastMessage: "later", Timestamp: t0.Add(time.Hour)},
	)
	changes, err = in.PollOnce(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "c1", changes[0].Conversation.ID)
	require.False(t, changes[0].New)
}

func TestInboxCursorSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	f := &fakeInbox{}
	f.set(model.Conversation{ID: "c1", Sender: "alice", Receiver: "bob", Timestamp: time.Now().UTC()})

	_, err := NewInbox(ctx, f, db, "alice").PollOnce(ctx)
	require.NoError(t, err)

	changes, err := NewInbox(ctx, f, db, "alice").PollOnce(ctx)
	require.NoError(t, err)
	require.Empty(t, changes)

	// cursors are per user
	changes, err = NewInbox(ctx, f, db, "bob").PollOnce(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "alice", changes[0].With)
}

func TestWatchInboxStopsOnCancel(t *testing.T) {
	db := openDB(t)
	f := &fakeInbox{}
	f.set(model.Conversation{ID: "c1", Sender: "alice", Receiver: "bob", Timestamp: time.Now().UTC()})
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan []Change, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchInbox(ctx, NewInbox(ctx, f, db, "alice"), 10*time.Millisecond, func(c []Change) { got <- c })
	}()

	select {
	case batch := <-got:
		require.Len(t, batch, 1)
	case <-time.After(time.Second):
		t.Fatal("no initial batch")
	}
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.calls >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Empty(t, got)
}

func TestWatchInboxSurvivesPollErrors(t *testing.T) {
	db := openDB(t)
	f := &fakeInbox{err: errors.New("down")}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := WatchInbox(ctx, NewInbox(ctx, f, db, "alice"), 10*time.Millisecond, func([]Change) {
		t.Error("unexpected change")
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, f.calls, 2)
}

func TestUnreadableCursorStartsFresh(t *testing.T) {
	ctx := context.Background()
	conv := model.Conversation{ID: "c1", Sender: "alice", Receiver: "bob", Timestamp: time.Now().UTC()}
	for _, stored := range []string{`null`, `{"c1":`, `[1,2]`} {
		db := openDB(t)
		require.NoError(t, db.Set(ctx, inboxCursorKey("alice"), []byte(stored)))
		f := &fakeInbox{}
		f.set(conv)

		changes, err := NewInbox(ctx, f, db, "alice").PollOnce(ctx)
		require.NoError(t, err, stored)
		require.Len(t, changes, 1, stored)
		require.True(t, changes[0].New, stored)
	}
}

func TestWatchInboxNonPositiveIntervalFallsBack(t *testing.T) {
	db := openDB(t)
	f := &fakeInbox{}
	f.set(model.Conversation{ID: "c1", Sender: "alice", Receiver: "bob", Timestamp: time.Now().UTC()})

	for _, interval := range []time.Duration{0, -time.Second} {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		err := WatchInbox(ctx, NewInbox(ctx, f, db, "alice"), interval, func([]Change) {})
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
}
