package screens

import (
	"context"

	"insta/internal/apiclient"
	"insta/internal/model"
)

// Profile is the current user's own page: the snapshot, their posts, and
// the follower/following lists.
type Profile struct {
	*scope
	sess Session
	api  apiclient.API

	user  model.User
	posts []model.Post
}

func NewProfile(ctx context.Context, sess Session, api apiclient.API) *Profile {
	return &Profile{scope: newScope(ctx), sess: sess, api: api, posts: []model.Post{}}
}

// Load reads the snapshot and fetches the user's posts.
func (p *Profile) Load() error {
	me, err := requireUser(p.sess)
	if err != nil {
		return err
	}
	token := p.sess.Credential()
	posts, err := p.api.MyPosts(p.ctx, token)
	if err != nil {
		return boundary(p.sess, token, "profile_posts", err)
	}
	return p.commit(func() {
		p.user = me
		p.posts = posts
	})
}

func (p *Profile) User() model.User {
	var u model.User
	p.read(func() { u = p.user.Clone() })
	return u
}

func (p *Profile) Posts() []model.Post {
	var out []model.Post
	p.read(func() { out = append([]model.Post{}, p.posts...) })
	return out
}

func (p *Profile) PostCount() int {
	var n int
	p.read(func() { n = len(p.posts) })
	return n
}

// CreatePost publishes a post and prepends it to the local list.
func (p *Profile) CreatePost(caption, image string) (model.Post, error) {
	token := p.sess.Credential()
	post, err := p.api.CreatePost(p.ctx, token, caption, image)
	if err != nil {
		return model.Post{}, boundary(p.sess, token, "create_post", err)
	}
	err = p.commit(func() {
		p.posts = append([]model.Post{post}, p.posts...)
	})
	return post, err
}

// DeletePost removes the post on the server, then from the local list.
func (p *Profile) DeletePost(postID string) error {
	token := p.sess.Credential()
	if err := p.api.DeletePost(p.ctx, token, postID); err != nil {
		return boundary(p.sess, token, "delete_post", err)
	}
	return p.commit(func() {
		kept := p.posts[:0:0]
		for _, post := range p.posts {
			if post.ID != postID {
				kept = append(kept, post)
			}
		}
		p.posts = kept
	})
}

func (p *Profile) Followers() ([]model.FollowEntry, error) {
	return p.followList(p.api.Followers, "followers")
}

func (p *Profile) Following() ([]model.FollowEntry, error) {
	return p.followList(p.api.Following, "following")
}

func (p *Profile) followList(fetch func(context.Context, string) ([]model.FollowEntry, error), op string) ([]model.FollowEntry, error) {
	me, err := requireUser(p.sess)
	if err != nil {
		return nil, err
	}
	out, err := fetch(p.ctx, me.UserName)
	if err != nil {
		return nil, boundary(p.sess, "", op, err)
	}
	if p.ctx.Err() != nil {
		return nil, ErrClosed
	}
	return out, nil
}
