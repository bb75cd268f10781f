package screens

import (
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insta/internal/apiclient"
	"insta/internal/config"
	"insta/internal/model"
	"insta/internal/session"
)

var (
	_ apiclient.API = (*fakeAPI)(nil)
	_ Session       = (*session.Store)(nil)
)

func TestLoginMessages(t *testing.T) {
	api := newFakeAPI("alice")
	sess := session.New(api, newMemStorage())
	l := NewLogin(context.Background(), sess)
	defer l.Close()

	msg, err := l.Submit("alice", "wrong")
	require.ErrorIs(t, err, apiclient.ErrAuthenticationFailure)
	require.Equal(t, MsgLoginBad, msg)

	msg, err = l.Submit("alice", "x")
	require.NoError(t, err)
	require.Equal(t, MsgLoginOK, msg)
	u, ok := sess.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "alice", u.UserName)
	require.NotEmpty(t, sess.Credential())
}

type downSession struct{ Session }

func (downSession) Login(context.Context, string, string) error {
	return fmt.Errorf("%w: refused", apiclient.ErrNetworkFailure)
}

func TestLoginNetworkFailureMessage(t *testing.T) {
	l := NewLogin(context.Background(), downSession{})
	msg, err := l.Submit("alice", "x")
	require.ErrorIs(t, err, apiclient.ErrNetworkFailure)
	require.Equal(t, MsgLoginFailed, msg)
}

func TestProfileZeroPosts(t *testing.T) {
	api := newFakeAPI("alice")
	sess := loggedIn(t, api, "alice")

	p := NewProfile(context.Background(), sess, api)
	defer p.Close()
	require.NoError(t, p.Load())
	require.Equal(t, 0, p.PostCount())
	require.NotNil(t, p.Posts())
	require.Equal(t, "alice", p.User().UserName)
}

func TestProfileCreateAndDeletePost(t *testing.T) {
	api := newFakeAPI("alice")
	sess := loggedIn(t, api, "alice")
	p := NewProfile(context.Background(), sess, api)
	defer p.Close()
	require.NoError(t, p.Load())

	first, err := p.CreatePost("one", "a.jpg")
	require.NoError(t, err)
	_, err = p.CreatePost("two", "b.jpg")
	require.NoError(t, err)
	require.Equal(t, 2, p.PostCount())

	require.NoError(t, p.DeletePost(first.ID))
	require.Equal(t, 1, p.PostCount())
	assert.Equal(t, "two", p.Posts()[0].Caption)

	require.ErrorIs(t, p.DeletePost("missing"), apiclient.ErrNotFound)
	require.Equal(t, 1, p.PostCount())
}

func TestProfileExpiredCredentialLogsOut(t *testing.T) {
	api := newFakeAPI("alice")
	sess := loggedIn(t, api, "alice")
	api.expired = true

	p := NewProfile(context.Background(), sess, api)
	require.ErrorIs(t, p.Load(), apiclient.ErrSessionExpired)
	require.Equal(t, session.Unauthenticated, sess.State())
}

func TestSnapshotWithoutCredentialLogsOutOnFirstProtectedCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()
	api := apiclient.New(config.APIConfig{BaseURL: ts.URL, RPS: 1000, Burst: 100, MaxAttempts: 1})

	store := newMemStorage()
	raw, err := json.Marshal(model.User{ID: "1", UserName: "alice"})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), session.SnapshotKey, raw))
	sess := session.New(api, store)
	require.NoError(t, sess.Restore(context.Background()))
	require.Equal(t, session.Authenticated, sess.State())

	p := NewProfile(context.Background(), sess, api)
	require.ErrorIs(t, p.Load(), apiclient.ErrSessionExpired)
	require.Equal(t, session.Unauthenticated, sess.State())
	snap, _ := store.Get(context.Background(), session.SnapshotKey)
	require.Nil(t, snap)
}

func TestUserProfileZeroPostsAndFollowState(t *testing.T) {
	api := newFakeAPI("alice", "bob")
	sess := loggedIn(t, api, "alice")

	up := NewUserProfile(context.Background(), sess, api, "bob")
	defer up.Close()
	require.NoError(t, up.Load())
	require.Equal(t, 0, up.PostCount())
	require.False(t, up.IsFollowing())
	require.Equal(t, 1, api.count("user"))
	require.Equal(t, 1, api.count("user_posts"))
}

func TestUserProfileFollowRefreshesSession(t *testing.T) {
	api := newFakeAPI("alice", "bob")
	sess := loggedIn(t, api, "alice")
	up := NewUserProfile(context.Background(), sess, api, "bob")
	defer up.Close()
	require.NoError(t, up.Load())

	require.NoError(t, up.Follow())
	require.True(t, up.IsFollowing())
	require.Equal(t, []string{"alice"}, up.Profile().Followers)
	me, _ := sess.CurrentUser()
	require.True(t, me.Follows("bob"))

	require.NoError(t, up.ToggleFollow())
	require.False(t, up.IsFollowing())
	me, _ = sess.CurrentUser()
	require.False(t, me.Follows("bob"))
	require.Empty(t, up.Profile().Followers)

	// a fresh screen derives the flag from the refreshed snapshot
	require.NoError(t, up.Follow())
	again := NewUserProfile(context.Background(), sess, api, "bob")
	require.NoError(t, again.Load())
	require.True(t, again.IsFollowing())
}

func TestUserProfileCannotFollowSelf(t *testing.T) {
	api := newFakeAPI("alice")
	sess := loggedIn(t, api, "alice")
	up := NewUserProfile(context.Background(), sess, api, "alice")
	require.ErrorIs(t, up.Follow(), ErrSelfFollow)
	require.Zero(t, api.count("follow"))
}

func TestUserProfileMissingUser(t *testing.T) {
	api := newFakeAPI("alice")
	sess := loggedIn(t, api, "alice")
	up := NewUserProfile(context.Background(), sess, api, "ghost")
	require.ErrorIs(t, up.Load(), apiclient.ErrNotFound)
	require.Equal(t, session.Authenticated, sess.State())
}

func TestStartChatFindsOrCreates(t *testing.T) {
	api := newFakeAPI("alice", "bob")
	sess := loggedIn(t, api, "alice")
	up := NewUserProfile(context.Background(), sess, api, "bob")

	c1, err := up.StartChat()
	require.NoError(t, err)
	require.Equal(t, "alice", c1.Sender)
	require.Equal(t, "bob", c1.Receiver)

	c2, err := up.StartChat()
	require.NoError(t, err)
	require.Equal(t, c1.ID, c2.ID)
	require.Equal(t, 1, api.count("create_conversation"))
}

func TestUserListSearch(t *testing.T) {
	api := newFakeAPI("alice", "Bobby", "carol")
	sess := loggedIn(t, api, "alice")
	l := NewUserList(context.Background(), sess, api)
	require.NoError(t, l.Load())
	require.Len(t, l.Users(), 3)

	got := l.Search("  BOB ")
	require.Len(t, got, 1)
	require.Equal(t, "Bobby", got[0].UserName)
	require.Len(t, l.Search(""), 3)
	require.Empty(t, l.Search("zed"))
}

func TestFeedLikeThenUnlikeRestoresState(t *testing.T) {
	api := newFakeAPI("alice", "bob")
	api.posts = []model.Post{
		{ID: "p1", UserName: "bob", Likes: []string{"carol"}},
		{ID: "p2", UserName: "bob", Likes: []string{"alice"}},
	}
	sess := loggedIn(t, api, "alice")
	f := NewFeed(context.Background(), sess, api)
	defer f.Close()
	require.NoError(t, f.Load())

	for _, id := range []string{"p1", "p2"} {
		before, ok := f.Post(id)
		require.True(t, ok)

		liked, err := f.ToggleLike(id)
		require.NoError(t, err)
		require.NotEqual(t, before.IsLikedByUser, liked.IsLikedByUser)
		require.NotEqual(t, len(before.Likes), len(liked.Likes))

		after, err := f.ToggleLike(id)
		require.NoError(t, err)
		require.Equal(t, before.IsLikedByUser, after.IsLikedByUser, id)
		require.Equal(t, len(before.Likes), len(after.Likes), id)
	}
	require.Equal(t, 4, api.count("like"))
}

func TestFeedMarksLikedPosts(t *testing.T) {
	api := newFakeAPI("alice")
	api.posts = []model.Post{{ID: "p1", Likes: []string{"alice"}}, {ID: "p2", Likes: []string{}}}
	sess := loggedIn(t, api, "alice")
	f := NewFeed(context.Background(), sess, api)
	require.NoError(t, f.Load())

	got := map[string]bool{}
	for _, p := range f.Posts() {
		got[p.ID] = p.IsLikedByUser
	}
	if diff := cmp.Diff(map[string]bool{"p1": true, "p2": false}, got); diff != "" {
		t.Fatalf("liked flags (-want +got):\n%s", diff)
	}
}

func TestFeedAddCommentUsesServerList(t *testing.T) {
	api := newFakeAPI("alice")
	api.posts = []model.Post{{ID: "p1", Comments: []model.Comment{{UserName: "bob", Comment: "first"}}}}
	sess := loggedIn(t, api, "alice")
	f := NewFeed(context.Background(), sess, api)
	require.NoError(t, f.Load())

	comments, err := f.AddComment("p1", "nice")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	p, _ := f.Post("p1")
	require.Equal(t, comments, p.Comments)
}

func TestFeedToggleUnknownPost(t *testing.T) {
	api := newFakeAPI("alice")
	sess := loggedIn(t, api, "alice")
	f := NewFeed(context.Background(), sess, api)
	require.NoError(t, f.Load())
	_, err := f.ToggleLike("nope")
	require.ErrorIs(t, err, apiclient.ErrNotFound)
	require.Zero(t, api.count("like"))
}

func TestMessagesOtherParty(t *testing.T) {
	api := newFakeAPI("alice", "bob", "carol")
	api.convs = []model.Conversation{
		{ID: "c1", Sender: "alice", Receiver: "bob"},
		{ID: "c2", Sender: "carol", Receiver: "alice"},
		{ID: "c3", Sender: "bob", Receiver: "carol"},
	}
	sess := loggedIn(t, api, "alice")
	m := NewMessages(context.Background(), sess, api)
	require.NoError(t, m.Load())

	var with []string
	for _, th := range m.Threads() {
		with = append(with, th.With)
	}
	require.Equal(t, []string{"bob", "carol"}, with)
}

func TestClosedScreenDropsLateResult(t *testing.T) {
	api := newFakeAPI("alice", "bob")
	api.posts = []model.Post{{ID: "p1", UserName: "bob"}}
	sess := loggedIn(t, api, "alice")

	api.blockOn = "user_posts"
	api.released = make(chan struct{})
	up := NewUserProfile(context.Background(), sess, api, "bob")

	done := make(chan error, 1)
	go func() { done <- up.Load() }()
	require.Eventually(t, func() bool { return api.count("user_posts") == 1 }, time.Second, 5*time.Millisecond)
	up.Close()
	close(api.released)

	err := <-done
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, 0, up.PostCount())
	require.Empty(t, up.Profile().UserName)
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{apiclient.ErrAuthenticationFailure, MsgLoginBad},
		{ErrClosed, ""},
		{fmt.Errorf("x: %w", apiclient.ErrNotFound), "Not found."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Describe(tc.err))
	}
	assert.Contains(t, Describe(apiclient.ErrNetworkFailure), "reach the server")
	assert.Contains(t, Describe(&apiclient.StatusError{Code: 500}), "server")
	assert.Contains(t, Describe(errors.New("boom")), "boom")
}
