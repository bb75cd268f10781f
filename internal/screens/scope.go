// Package screens holds the view controllers the CLI drives: login, own
// profile, another user's profile, the user list, the feed and the message
// list. Every screen is built with the session and the backend client it
// needs and owns a cancellation scope; once Close is called, in-flight
// requests are cancelled and late results are dropped without touching the
// screen's state.
package screens

import (
	"context"
	"errors"
	"sync"

	"insta/internal/apiclient"
	"insta/internal/logging"
	"insta/internal/model"
)

// ErrClosed is returned by screen operations after Close.
var ErrClosed = errors.New("screen closed")

// Session is the view of the session store screens depend on.
type Session interface {
	Login(ctx context.Context, userName, password string) error
	CurrentUser() (model.User, bool)
	Credential() string
	RefreshProfile(ctx context.Context) error
	Expire(token string, cause error)
}

type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

func newScope(parent context.Context) *scope {
	ctx, cancel := context.WithCancel(parent)
	return &scope{ctx: ctx, cancel: cancel}
}

// Close cancels every request still in flight. Safe to call twice.
func (s *scope) Close() { s.cancel() }

// commit runs apply under the screen lock unless the scope was closed while
// the request was outstanding.
func (s *scope) commit(apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	apply()
	return nil
}

func (s *scope) read(f func()) {
	s.mu.Lock()
	f()
	s.mu.Unlock()
}

// boundary is where request errors stop. A stale credential logs the
// session out, provided token is still the one in use; everything else is
// logged and handed back for display. token is what the failed request
// carried, empty for public routes.
func boundary(sess Session, token, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return ErrClosed
	}
	if errors.Is(err, apiclient.ErrSessionExpired) {
		sess.Expire(token, err)
	}
	logging.Debug("screen_error", map[string]any{"op": op, "error": err.Error()})
	return err
}

func requireUser(sess Session) (model.User, error) {
	u, ok := sess.CurrentUser()
	if !ok {
		return model.User{}, apiclient.ErrSessionExpired
	}
	return u, nil
}
