package screens

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"insta/internal/apiclient"
	"insta/internal/logging"
	"insta/internal/model"
)

var ErrSelfFollow = errors.New("cannot follow yourself")

// UserProfile shows another user's page with follow and chat actions.
type UserProfile struct {
	*scope
	sess     Session
	api      apiclient.API
	userName string

	profile     model.User
	posts       []model.Post
	isFollowing bool
}

func NewUserProfile(ctx context.Context, sess Session, api apiclient.API, userName string) *UserProfile {
	return &UserProfile{scope: newScope(ctx), sess: sess, api: api, userName: userName, posts: []model.Post{}}
}

// Load fetches the profile and the posts concurrently. IsFollowing comes
// from the session snapshot, not from the fetched record.
func (u *UserProfile) Load() error {
	var (
		profile model.User
		posts   []model.Post
	)
	g, gctx := errgroup.WithContext(u.ctx)
	g.Go(func() error {
		var err error
		profile, err = u.api.GetUser(gctx, u.userName)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = u.api.UserPosts(gctx, u.userName)
		return err
	})
	if err := g.Wait(); err != nil {
		return boundary(u.sess, "", "user_profile", err)
	}
	me, _ := u.sess.CurrentUser()
	return u.commit(func() {
		u.profile = profile
		u.posts = posts
		u.isFollowing = me.Follows(profile.UserName)
	})
}

func (u *UserProfile) Profile() model.User {
	var p model.User
	u.read(func() { p = u.profile.Clone() })
	return p
}

func (u *UserProfile) Posts() []model.Post {
	var out []model.Post
	u.read(func() { out = append([]model.Post{}, u.posts...) })
	return out
}

func (u *UserProfile) PostCount() int {
	var n int
	u.read(func() { n = len(u.posts) })
	return n
}

func (u *UserProfile) IsFollowing() bool {
	var f bool
	u.read(func() { f = u.isFollowing })
	return f
}

func (u *UserProfile) Follow() error {
	return u.setFollow(true)
}

func (u *UserProfile) Unfollow() error {
	return u.setFollow(false)
}

// ToggleFollow follows or unfollows depending on the current flag.
func (u *UserProfile) ToggleFollow() error {
	return u.setFollow(!u.IsFollowing())
}

func (u *UserProfile) setFollow(follow bool) error {
	me, err := requireUser(u.sess)
	if err != nil {
		return err
	}
	if me.UserName == u.userName {
		return ErrSelfFollow
	}
	op, call := "follow", u.api.Follow
	if !follow {
		op, call = "unfollow", u.api.Unfollow
	}
	token := u.sess.Credential()
	if err := call(u.ctx, token, u.userName); err != nil {
		return boundary(u.sess, token, op, err)
	}
	if err := u.commit(func() { u.isFollowing = follow }); err != nil {
		return err
	}

	// counts on both sides changed; refresh what we show and the snapshot
	if p, err := u.api.GetUser(u.ctx, u.userName); err == nil {
		_ = u.commit(func() { u.profile = p })
	} else {
		logging.Warn("user_profile_refetch_failed", map[string]any{"user": u.userName, "error": err.Error()})
	}
	if err := u.sess.RefreshProfile(u.ctx); err != nil {
		logging.Warn("session_refresh_failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (u *UserProfile) Followers() ([]model.FollowEntry, error) {
	out, err := u.api.Followers(u.ctx, u.userName)
	return out, boundary(u.sess, "", "followers", err)
}

func (u *UserProfile) Following() ([]model.FollowEntry, error) {
	out, err := u.api.Following(u.ctx, u.userName)
	return out, boundary(u.sess, "", "following", err)
}

// StartChat returns the existing thread with this user, creating one when
// there is none.
func (u *UserProfile) StartChat() (model.Conversation, error) {
	me, err := requireUser(u.sess)
	if err != nil {
		return model.Conversation{}, err
	}
	found, err := u.api.FindConversations(u.ctx, me.UserName, u.userName)
	if err != nil {
		return model.Conversation{}, boundary(u.sess, "", "find_conversation", err)
	}
	if len(found) > 0 {
		return found[0], nil
	}
	conv, err := u.api.CreateConversation(u.ctx, model.Conversation{Sender: me.UserName, Receiver: u.userName})
	if err != nil {
		return model.Conversation{}, boundary(u.sess, "", "create_conversation", err)
	}
	return conv, nil
}
