package screens

import (
	"context"
	"errors"

	"insta/internal/apiclient"
)

type Login struct {
	*scope
	sess Session
}

func NewLogin(ctx context.Context, sess Session) *Login {
	return &Login{scope: newScope(ctx), sess: sess}
}

// Submit logs in and returns the message to show. err is nil only on
// success.
func (l *Login) Submit(userName, password string) (string, error) {
	err := l.sess.Login(l.ctx, userName, password)
	if l.ctx.Err() != nil {
		return "", ErrClosed
	}
	switch {
	case err == nil:
		return MsgLoginOK, nil
	case errors.Is(err, apiclient.ErrAuthenticationFailure):
		return MsgLoginBad, err
	default:
		return MsgLoginFailed, boundary(l.sess, "", "login", err)
	}
}
