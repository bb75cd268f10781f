package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"insta/internal/model"
)

const loginEndpoint = "/api/login"

// Login exchanges credentials for a bearer token. The backend answers
// {"user": "<token>"} on success and a falsy "user" otherwise.
func (c *HTTPClient) Login(ctx context.Context, userName, password string) (string, error) {
	if err := requireArg("user name", userName); err != nil {
		return "", err
	}
	var raw struct {
		User json.RawMessage `json:"user"`
	}
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: loginEndpoint,
		path:     loginEndpoint,
		body:     map[string]string{"userName": userName, "password": password},
	}, &raw)
	if err != nil {
		return "", err
	}
	var token string
	if json.Unmarshal(raw.User, &token) != nil || token == "" {
		return "", ErrAuthenticationFailure
	}
	return token, nil
}

// Profile fetches the user the token belongs to.
func (c *HTTPClient) Profile(ctx context.Context, token string) (model.User, error) {
	var out model.User
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/profile", path: "/profile", token: token, bearer: true}, &out)
	return out, err
}

func (c *HTTPClient) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	out := []model.User{}
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/users", path: "/users", token: token, bearer: true}, &out)
	return out, err
}

func (c *HTTPClient) GetUser(ctx context.Context, userName string) (model.User, error) {
	var out model.User
	if err := requireArg("user name", userName); err != nil {
		return out, err
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/users/:userName",
		path:     "/users/" + url.PathEscape(userName),
	}, &out)
	return out, err
}

// UserPosts returns the posts of userName; never nil on success.
func (c *HTTPClient) UserPosts(ctx context.Context, userName string) ([]model.Post, error) {
	if err := requireArg("user name", userName); err != nil {
		return nil, err
	}
	out := []model.Post{}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/users/:userName/posts",
		path:     "/users/" + url.PathEscape(userName) + "/posts",
	}, &out)
	return nonNilPosts(out), err
}

func (c *HTTPClient) Follow(ctx context.Context, token, userName string) error {
	if err := requireArg("user name", userName); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/follow",
		path:     "/follow",
		token:    token,
		bearer:   true,
		body:     map[string]string{"followId": userName},
	}, nil)
}

func (c *HTTPClient) Unfollow(ctx context.Context, token, userName string) error {
	if err := requireArg("user name", userName); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/unfollow",
		path:     "/unfollow",
		token:    token,
		bearer:   true,
		body:     map[string]string{"unfollowId": userName},
	}, nil)
}

func (c *HTTPClient) Followers(ctx context.Context, askedUser string) ([]model.FollowEntry, error) {
	return c.followList(ctx, "followers", askedUser)
}

func (c *HTTPClient) Following(ctx context.Context, askedUser string) ([]model.FollowEntry, error) {
	return c.followList(ctx, "following", askedUser)
}

// followList reads /profile/{kind}?askedUser=, answered as {"<kind>": [...]}.
func (c *HTTPClient) followList(ctx context.Context, kind, askedUser string) ([]model.FollowEntry, error) {
	if err := requireArg("user name", askedUser); err != nil {
		return nil, err
	}
	var raw map[string][]model.FollowEntry
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/profile/" + kind,
		path:     "/profile/" + kind,
		query:    url.Values{"askedUser": {askedUser}},
	}, &raw)
	if err != nil {
		return nil, err
	}
	out := raw[kind]
	if out == nil {
		out = []model.FollowEntry{}
	}
	return out, nil
}

// FindConversations looks up threads between sender and receiver.
func (c *HTTPClient) FindConversations(ctx context.Context, sender, receiver string) ([]model.Conversation, error) {
	out := []model.Conversation{}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/conversations",
		path:     "/conversations",
		query:    url.Values{"sender": {sender}, "receiver": {receiver}},
	}, &out)
	return out, err
}

func (c *HTTPClient) CreateConversation(ctx context.Context, conv model.Conversation) (model.Conversation, error) {
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now().UTC()
	}
	out := conv
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/conversations",
		path:     "/conversations",
		body:     conv,
	}, &out)
	if err != nil {
		return model.Conversation{}, err
	}
	return out, nil
}

// Conversations lists every thread user takes part in.
func (c *HTTPClient) Conversations(ctx context.Context, user string) ([]model.Conversation, error) {
	if err := requireArg("user name", user); err != nil {
		return nil, err
	}
	out := []model.Conversation{}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/conversations/convos",
		path:     "/conversations/convos",
		query:    url.Values{"user": {user}},
	}, &out)
	return out, err
}

func (c *HTTPClient) AllPosts(ctx context.Context, userID string) ([]model.Post, error) {
	out := []model.Post{}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		endpoint: "/allPosts",
		path:     "/allPosts",
		query:    url.Values{"userId": {userID}},
	}, &out)
	return nonNilPosts(out), err
}

// MyPosts returns the posts of the token's owner.
func (c *HTTPClient) MyPosts(ctx context.Context, token string) ([]model.Post, error) {
	out := []model.Post{}
	err := c.do(ctx, call{method: http.MethodGet, endpoint: "/poster", path: "/poster", token: token, bearer: true}, &out)
	return nonNilPosts(out), err
}

func (c *HTTPClient) CreatePost(ctx context.Context, token, caption, image string) (model.Post, error) {
	var out model.Post
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/poster",
		path:     "/poster",
		token:    token,
		bearer:   true,
		body:     map[string]string{"caption": caption, "image": image},
	}, &out)
	return out, err
}

// ToggleLike likes the post, or unlikes it if userName already does.
func (c *HTTPClient) ToggleLike(ctx context.Context, postID, userName string) error {
	if err := requireArg("post id", postID); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/posts/:id/like",
		path:     fmt.Sprintf("/posts/%s/like", url.PathEscape(postID)),
		body:     map[string]string{"userName": userName},
	}, nil)
}

// AddComment returns the post's full comment list after the insert.
func (c *HTTPClient) AddComment(ctx context.Context, postID, userName, comment string) ([]model.Comment, error) {
	if err := requireArg("post id", postID); err != nil {
		return nil, err
	}
	var out struct {
		Comments []model.Comment `json:"comments"`
	}
	err := c.do(ctx, call{
		method:   http.MethodPost,
		endpoint: "/posts/:id/comment",
		path:     fmt.Sprintf("/posts/%s/comment", url.PathEscape(postID)),
		body:     map[string]string{"userName": userName, "comment": comment},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *HTTPClient) DeletePost(ctx context.Context, token, postID string) error {
	if err := requireArg("post id", postID); err != nil {
		return err
	}
	return c.do(ctx, call{
		method:   http.MethodDelete,
		endpoint: "/posts/:id",
		path:     "/posts/" + url.PathEscape(postID),
		token:    token,
		bearer:   true,
	}, nil)
}

func nonNilPosts(p []model.Post) []model.Post {
	if p == nil {
		return []model.Post{}
	}
	return p
}
