package screens

import (
	"context"
	"strings"

	"insta/internal/apiclient"
	"insta/internal/model"
	"insta/internal/util"
)

type UserList struct {
	*scope
	sess  Session
	api   apiclient.API
	users []model.User
}

func NewUserList(ctx context.Context, sess Session, api apiclient.API) *UserList {
	return &UserList{scope: newScope(ctx), sess: sess, api: api, users: []model.User{}}
}

func (l *UserList) Load() error {
	token := l.sess.Credential()
	users, err := l.api.ListUsers(l.ctx, token)
	if err != nil {
		return boundary(l.sess, token, "list_users", err)
	}
	return l.commit(func() { l.users = users })
}

func (l *UserList) Users() []model.User {
	var out []model.User
	l.read(func() { out = append([]model.User{}, l.users...) })
	return out
}

// Search filters the loaded users by name, ignoring case. An empty query
// matches everyone.
func (l *UserList) Search(query string) []model.User {
	query = util.NormalizeWhitespace(query)
	all := l.Users()
	if query == "" {
		return all
	}
	out := []model.User{}
	for _, u := range all {
		if util.ContainsAnyCaseInsensitive(u.UserName, strings.Fields(query)) {
			out = append(out, u)
		}
	}
	return out
}
