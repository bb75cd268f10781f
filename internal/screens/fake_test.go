package screens

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"insta/internal/apiclient"
	"insta/internal/model"
	"insta/internal/session"
	"insta/internal/store/localdb"
)

// fakeAPI is an in-memory backend. Tokens are "tok-<userName>".
type fakeAPI struct {
	mu       sync.Mutex
	users    map[string]*model.User
	posts    []model.Post
	convs    []model.Conversation
	expired  bool
	calls    map[string]int
	blockOn  string
	released chan struct{}
}

func newFakeAPI(names ...string) *fakeAPI {
	f := &fakeAPI{users: map[string]*model.User{}, calls: map[string]int{}}
	for i, n := range names {
		f.users[n] = &model.User{ID: fmt.Sprint(i + 1), UserName: n, Followers: []string{}, Following: []string{}}
	}
	return f
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	block, rel := f.blockOn == name, f.released
	f.mu.Unlock()
	if block {
		<-rel
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) owner(token string) (*model.User, error) {
	if f.expired {
		return nil, fmt.Errorf("%w: test", apiclient.ErrSessionExpired)
	}
	var name string
	if _, err := fmt.Sscanf(token, "tok-%s", &name); err != nil {
		return nil, apiclient.ErrSessionExpired
	}
	u, ok := f.users[name]
	if !ok {
		return nil, apiclient.ErrSessionExpired
	}
	return u, nil
}

func (f *fakeAPI) Login(ctx context.Context, userName, password string) (string, error) {
	f.hit("login")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userName]; !ok || password != "x" {
		return "", apiclient.ErrAuthenticationFailure
	}
	return "tok-" + userName, nil
}

func (f *fakeAPI) Profile(ctx context.Context, token string) (model.User, error) {
	f.hit("profile")
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.owner(token)
	if err != nil {
		return model.User{}, err
	}
	return u.Clone(), nil
}

func (f *fakeAPI) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	f.hit("users")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.users {
		out = append(out, u.Clone())
	}
	return out, nil
}

func (f *fakeAPI) GetUser(ctx context.Context, userName string) (model.User, error) {
	f.hit("user")
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return model.User{}, fmt.Errorf("%w: %s", apiclient.ErrNotFound, userName)
	}
	return u.Clone(), nil
}

func (f *fakeAPI) UserPosts(ctx context.Context, userName string) ([]model.Post, error) {
	f.hit("user_posts")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Post{}
	for _, p := range f.posts {
		if p.UserName == userName {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAPI) Follow(ctx context.Context, token, userName string) error {
	f.hit("follow")
	f.mu.Lock()
	defer f.mu.Unlock()
	me, err := f.owner(token)
	if err != nil {
		return err
	}
	other := f.users[userName]
	me.Following = append(me.Following, userName)
	other.Followers = append(other.Followers, me.UserName)
	return nil
}

func (f *fakeAPI) Unfollow(ctx context.Context, token, userName string) error {
	f.hit("unfollow")
	f.mu.Lock()
	defer f.mu.Unlock()
	me, err := f.owner(token)
	if err != nil {
		return err
	}
	other := f.users[userName]
	me.Following = without(me.Following, userName)
	other.Followers = without(other.Followers, me.UserName)
	return nil
}

func (f *fakeAPI) Followers(ctx context.Context, askedUser string) ([]model.FollowEntry, error) {
	f.hit("followers")
	f.mu.Lock()
	defer f.mu.Unlock()
	return entries(f.users[askedUser].Followers), nil
}

func (f *fakeAPI) Following(ctx context.Context, askedUser string) ([]model.FollowEntry, error) {
	f.hit("following")
	f.mu.Lock()
	defer f.mu.Unlock()
	return entries(f.users[askedUser].Following), nil
}

func (f *fakeAPI) FindConversations(ctx context.Context, sender, receiver string) ([]model.Conversation, error) {
	f.hit("find_conversations")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Conversation{}
	for _, c := range f.convs {
		if c.Sender == sender && c.Receiver == receiver {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateConversation(ctx context.Context, c model.Conversation) (model.Conversation, error) {
	f.hit("create_conversation")
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = fmt.Sprintf("c%d", len(f.convs)+1)
	f.convs = append(f.convs, c)
	return c, nil
}

func (f *fakeAPI) Conversations(ctx context.Context, user string) ([]model.Conversation, error) {
	f.hit("conversations")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Conversation{}
	for _, c := range f.convs {
		if c.Sender == user || c.Receiver == user {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeAPI) AllPosts(ctx context.Context, userID string) ([]model.Post, error) {
	f.hit("all_posts")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Post, len(f.posts))
	for i, p := range f.posts {
		p.Likes = append([]string{}, p.Likes...)
		out[i] = p
	}
	return out, nil
}

func (f *fakeAPI) MyPosts(ctx context.Context, token string) ([]model.Post, error) {
	f.hit("my_posts")
	f.mu.Lock()
	me, err := f.owner(token)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.UserPosts(ctx, me.UserName)
}

func (f *fakeAPI) CreatePost(ctx context.Context, token, caption, image string) (model.Post, error) {
	f.hit("create_post")
	f.mu.Lock()
	defer f.mu.Unlock()
	me, err := f.owner(token)
	if err != nil {
		return model.Post{}, err
	}
	p := model.Post{ID: fmt.Sprintf("p%d", len(f.posts)+1), UserName: me.UserName, Caption: caption, Image: image, Likes: []string{}}
	f.posts = append(f.posts, p)
	return p, nil
}

func (f *fakeAPI) ToggleLike(ctx context.Context, postID, userName string) error {
	f.hit("like")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == postID {
			if p.LikedBy(userName) {
				f.posts[i].Likes = without(p.Likes, userName)
			} else {
				f.posts[i].Likes = append(p.Likes, userName)
			}
			return nil
		}
	}
	return apiclient.ErrNotFound
}

func (f *fakeAPI) AddComment(ctx context.Context, postID, userName, comment string) ([]model.Comment, error) {
	f.hit("comment")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == postID {
			f.posts[i].Comments = append(p.Comments, model.Comment{UserName: userName, Comment: comment})
			return append([]model.Comment{}, f.posts[i].Comments...), nil
		}
	}
	return nil, apiclient.ErrNotFound
}

func (f *fakeAPI) DeletePost(ctx context.Context, token, postID string) error {
	f.hit("delete_post")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owner(token); err != nil {
		return err
	}
	for i, p := range f.posts {
		if p.ID == postID {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return apiclient.ErrNotFound
}

func without(list []string, name string) []string {
	out := []string{}
	for _, s := range list {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

func entries(names []string) []model.FollowEntry {
	out := []model.FollowEntry{}
	for _, n := range names {
		out = append(out, model.FollowEntry{UserName: n})
	}
	return out
}

// loggedIn returns a session authenticated as userName against api.
func loggedIn(t *testing.T, api *fakeAPI, userName string) *session.Store {
	t.Helper()
	db, err := localdb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sess := session.New(api, db)
	require.NoError(t, sess.Login(context.Background(), userName, "x"))
	return sess
}

type memStorage struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{m: map[string][]byte{}} }

func (s *memStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key], nil
}

func (s *memStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
