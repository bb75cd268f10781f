package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// User is a profile record as served by the backend. The authenticated
// user's copy doubles as the session snapshot.
type User struct {
	ID        string   `json:"_id,omitempty"`
	UserName  string   `json:"userName"`
	Avatar    string   `json:"avatar,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

// Follows reports whether u follows userName.
func (u User) Follows(userName string) bool {
	for _, f := range u.Following {
		if f == userName {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so snapshot readers never share slices.
func (u User) Clone() User {
	c := u
	c.Followers = append([]string(nil), u.Followers...)
	c.Following = append([]string(nil), u.Following...)
	return c
}

// Comment on a post.
type Comment struct {
	ID        string    `json:"_id,omitempty"`
	UserName  string    `json:"userName"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Post is a feed item. Likes holds the user names that liked it.
// IsLikedByUser is derived client side and never sent.
type Post struct {
	ID            string    `json:"_id"`
	UserName      string    `json:"userName,omitempty"`
	Caption       string    `json:"caption"`
	Image         string    `json:"image,omitempty"`
	Likes         []string  `json:"likes"`
	Comments      []Comment `json:"comments"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	IsLikedByUser bool      `json:"-"`
}

// LikedBy reports whether userName is in the like list.
func (p Post) LikedBy(userName string) bool {
	for _, l := range p.Likes {
		if l == userName {
			return true
		}
	}
	return false
}

// Conversation is a direct-message thread between two users.
type Conversation struct {
	ID          string    `json:"_id,omitempty"`
	Sender      string    `json:"sender"`
	Receiver    string    `json:"receiver"`
	LastMessage string    `json:"lastMessage"`
	Timestamp   time.Time `json:"timestamp"`
}

// OtherParty returns the participant that is not me.
func (c Conversation) OtherParty(me string) string {
	if c.Sender == me {
		return c.Receiver
	}
	return c.Sender
}

// FollowEntry is one element of a follower/following list. The backend
// returns either bare user names or populated user objects.
type FollowEntry struct {
	UserName string `json:"userName"`
	Avatar   string `json:"avatar,omitempty"`
}

func (f *FollowEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &f.UserName)
	}
	type plain FollowEntry
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = FollowEntry(p)
	return nil
}

// ActivityEvent is a mutation the local user issued.
type ActivityEvent struct {
	Timestamp time.Time
	Type      string // like, comment, follow, unfollow, post, delete
	Target    string // post id or user name
}
