package screens

import (
	"context"
	"fmt"

	"insta/internal/apiclient"
	"insta/internal/model"
)

// Feed is the news page. Likes and comments only change this screen's copy
// of a post; other screens re-fetch.
type Feed struct {
	*scope
	sess  Session
	api   apiclient.API
	posts []model.Post
}

func NewFeed(ctx context.Context, sess Session, api apiclient.API) *Feed {
	return &Feed{scope: newScope(ctx), sess: sess, api: api, posts: []model.Post{}}
}

func (f *Feed) Load() error {
	me, err := requireUser(f.sess)
	if err != nil {
		return err
	}
	posts, err := f.api.AllPosts(f.ctx, me.ID)
	if err != nil {
		return boundary(f.sess, "", "feed", err)
	}
	for i := range posts {
		posts[i].IsLikedByUser = posts[i].LikedBy(me.UserName)
	}
	return f.commit(func() { f.posts = posts })
}

func (f *Feed) Posts() []model.Post {
	var out []model.Post
	f.read(func() { out = append([]model.Post{}, f.posts...) })
	return out
}

// Post returns the local copy of one post.
func (f *Feed) Post(postID string) (model.Post, bool) {
	var (
		p  model.Post
		ok bool
	)
	f.read(func() {
		if i := f.index(postID); i >= 0 {
			p, ok = f.posts[i], true
		}
	})
	return p, ok
}

// ToggleLike likes or unlikes the post for the current user and flips the
// local like list to match.
func (f *Feed) ToggleLike(postID string) (model.Post, error) {
	me, err := requireUser(f.sess)
	if err != nil {
		return model.Post{}, err
	}
	before, ok := f.Post(postID)
	if !ok {
		return model.Post{}, fmt.Errorf("%w: post %s", apiclient.ErrNotFound, postID)
	}
	if err := f.api.ToggleLike(f.ctx, postID, me.UserName); err != nil {
		return model.Post{}, boundary(f.sess, "", "like", err)
	}
	var after model.Post
	err = f.commit(func() {
		i := f.index(postID)
		if i < 0 {
			return
		}
		p := f.posts[i]
		if before.IsLikedByUser {
			likes := make([]string, 0, len(p.Likes))
			for _, l := range p.Likes {
				if l != me.UserName {
					likes = append(likes, l)
				}
			}
			p.Likes = likes
		} else {
			p.Likes = append(append([]string{}, p.Likes...), me.UserName)
		}
		p.IsLikedByUser = !before.IsLikedByUser
		f.posts[i] = p
		after = p
	})
	return after, err
}

// AddComment posts a comment and replaces the post's comments with the
// server's list.
func (f *Feed) AddComment(postID, text string) ([]model.Comment, error) {
	me, err := requireUser(f.sess)
	if err != nil {
		return nil, err
	}
	comments, err := f.api.AddComment(f.ctx, postID, me.UserName, text)
	if err != nil {
		return nil, boundary(f.sess, "", "comment", err)
	}
	err = f.commit(func() {
		if i := f.index(postID); i >= 0 {
			f.posts[i].Comments = comments
		}
	})
	return comments, err
}

func (f *Feed) index(postID string) int {
	for i, p := range f.posts {
		if p.ID == postID {
			return i
		}
	}
	return -1
}
