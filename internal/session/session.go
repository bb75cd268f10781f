// Package session holds the authenticated identity of the client: the bearer
// credential, the cached profile snapshot, and their durable copies.
//
// A Store is created once per process and passed explicitly to every screen.
// It has two states. Unauthenticated becomes Authenticated through a
// successful Login or Restore; Authenticated falls back to Unauthenticated
// through Logout, a failed Restore, or a refresh that finds the credential
// expired. Network failures are never retried here: the only recovery is the
// downgrade, after which the caller is expected to send the user back to
// the login entry point.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"insta/internal/apiclient"
	"insta/internal/logging"
	"insta/internal/metrics"
	"insta/internal/model"
)

// Durable keys. No schema versioning.
const (
	TokenKey    = "token"
	SnapshotKey = "loggedInUser"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Storage is the durable key/value space the session persists into.
// Get returns (nil, nil) for an absent key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Authenticator is the subset of the backend the session needs.
type Authenticator interface {
	Login(ctx context.Context, userName, password string) (string, error)
	Profile(ctx context.Context, token string) (model.User, error)
}

type Store struct {
	auth    Authenticator
	storage Storage

	// wmu serializes transitions together with their durable writes, so a
	// Logout cannot be undone by a write that checked state before it.
	wmu sync.Mutex

	mu         sync.RWMutex
	state      State
	token      string
	user       model.User
	invalidate []func(error)
}

func New(auth Authenticator, storage Storage) *Store {
	return &Store{auth: auth, storage: storage}
}

// OnInvalidate registers fn to run whenever a failure forces the session
// back to Unauthenticated. fn must not call back into the Store.
func (s *Store) OnInvalidate(fn func(cause error)) {
	s.mu.Lock()
	s.invalidate = append(s.invalidate, fn)
	s.mu.Unlock()
}

// Restore rebuilds the session from durable storage at process start.
//
// A persisted snapshot is loaded as is, with no network call. Without one, a
// persisted credential is checked with exactly one profile request; any
// failure clears both keys and the classified cause is returned.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	raw, err := s.storage.Get(ctx, SnapshotKey)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if raw != nil {
		var u model.User
		if err := json.Unmarshal(raw, &u); err == nil {
			_ = s.establish(string(token), u, nil)
			metrics.IncSessionTransition(Authenticated.String(), "restore_snapshot")
			logging.Debug("session_restored", map[string]any{"user": u.UserName, "source": "snapshot"})
			return nil
		}
		logging.Warn("session_snapshot_corrupt", map[string]any{"bytes": len(raw)})
		_ = s.storage.Delete(ctx, SnapshotKey)
	}

	if len(token) == 0 {
		return nil
	}

	u, err := s.auth.Profile(apiclient.WithoutRetry(ctx), string(token))
	if err != nil {
		s.downgrade(ctx, "restore_failed", err)
		return fmt.Errorf("restore session: %w", err)
	}
	_ = s.establish(string(token), u, func() error {
		s.persistSnapshot(ctx, u)
		return nil
	})
	metrics.IncSessionTransition(Authenticated.String(), "restore_profile")
	logging.Info("session_restored", map[string]any{"user": u.UserName, "source": "profile"})
	return nil
}

// Login authenticates against the backend and stores the credential. The
// profile snapshot is fetched right after; if that fetch fails the session
// is still authenticated with a minimal snapshot that is not persisted.
func (s *Store) Login(ctx context.Context, userName, password string) error {
	token, err := s.auth.Login(ctx, userName, password)
	if err != nil {
		logging.Info("login_failed", map[string]any{"user": userName, "error": err.Error()})
		return err
	}

	u, perr := s.auth.Profile(apiclient.WithoutRetry(ctx), token)
	if perr != nil {
		logging.Warn("login_profile_fetch_failed", map[string]any{"user": userName, "error": perr.Error()})
		u = model.User{UserName: userName}
	}
	err = s.establish(token, u, func() error {
		if err := s.storage.Set(ctx, TokenKey, []byte(token)); err != nil {
			return fmt.Errorf("persist credential: %w", err)
		}
		if perr != nil {
			_ = s.storage.Delete(ctx, SnapshotKey)
		} else {
			s.persistSnapshot(ctx, u)
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.IncSessionTransition(Authenticated.String(), "login")
	logging.Info("login_ok", map[string]any{"user": u.UserName})
	return nil
}

// Logout clears memory and durable storage. It cannot fail; storage errors
// are logged.
func (s *Store) Logout() {
	s.clear(context.Background())
	metrics.IncSessionTransition(Unauthenticated.String(), "logout")
	logging.Info("logout", nil)
}

// CurrentUser returns a copy of the snapshot, and false when unauthenticated.
func (s *Store) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated {
		return model.User{}, false
	}
	return s.user.Clone(), true
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Credential returns the bearer token, empty when unauthenticated.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetUser replaces the snapshot as a whole and persists it. Last write wins.
func (s *Store) SetUser(ctx context.Context, u model.User) {
	s.replaceUser(ctx, func() bool { return s.state == Authenticated }, u)
}

// RefreshProfile re-fetches the current user's record and replaces the
// snapshot. An expired or missing credential logs the session out.
func (s *Store) RefreshProfile(ctx context.Context) error {
	token := s.Credential()
	if s.State() != Authenticated {
		return apiclient.ErrSessionExpired
	}
	if token == "" {
		// restored from a snapshot with no credential behind it
		s.expire(ctx, "", "missing_credential", apiclient.ErrSessionExpired)
		return apiclient.ErrSessionExpired
	}
	u, err := s.auth.Profile(apiclient.WithoutRetry(ctx), token)
	if err != nil {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			s.expire(ctx, token, "refresh_expired", err)
		}
		return err
	}
	s.replaceUser(ctx, s.holds(token), u)
	return nil
}

// Expire downgrades the session after a request carrying token was rejected
// as stale. It is a no-op when the session is unauthenticated or has since
// moved to another credential.
func (s *Store) Expire(token string, cause error) {
	s.expire(context.Background(), token, "request_expired", cause)
}

// CredentialExpiry reads the exp claim when the credential is a JWT. The
// signature is not verified; the value is informational.
func (s *Store) CredentialExpiry() (time.Time, bool) {
	token := s.Credential()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// establish runs writes and, if they succeed, makes token and u the
// current session.
func (s *Store) establish(token string, u model.User, writes func() error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if writes != nil {
		if err := writes(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.state, s.token, s.user = Authenticated, token, u.Clone()
	s.mu.Unlock()
	return nil
}

// holds reports, under mu, whether the session is still the one token opened.
func (s *Store) holds(token string) func() bool {
	return func() bool { return s.state == Authenticated && s.token == token }
}

func (s *Store) replaceUser(ctx context.Context, still func() bool, u model.User) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.Lock()
	ok := still()
	if ok {
		s.user = u.Clone()
	}
	s.mu.Unlock()
	if ok {
		s.persistSnapshot(ctx, u)
	}
}

func (s *Store) persistSnapshot(ctx context.Context, u model.User) {
	b, err := json.Marshal(u)
	if err == nil {
		err = s.storage.Set(ctx, SnapshotKey, b)
	}
	if err != nil {
		logging.Warn("session_snapshot_persist_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Store) clear(ctx context.Context) {
	s.clearIf(ctx, func() bool { return true })
}

// clearIf drops the session and its durable keys when still holds.
func (s *Store) clearIf(ctx context.Context, still func() bool) bool {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.Lock()
	if !still() {
		s.mu.Unlock()
		return false
	}
	s.state, s.token, s.user = Unauthenticated, "", model.User{}
	s.mu.Unlock()
	for _, k := range []string{SnapshotKey, TokenKey} {
		if err := s.storage.Delete(ctx, k); err != nil {
			logging.Warn("session_storage_clear_failed", map[string]any{"key": k, "error": err.Error()})
		}
	}
	return true
}

func (s *Store) expire(ctx context.Context, token, cause string, err error) {
	if !s.clearIf(context.WithoutCancel(ctx), s.holds(token)) {
		logging.Debug("session_expire_ignored", map[string]any{"cause": cause})
		return
	}
	s.invalidated(cause, err)
}

func (s *Store) downgrade(ctx context.Context, cause string, err error) {
	// storage must be cleared even if the caller's ctx is already done
	s.clear(context.WithoutCancel(ctx))
	s.invalidated(cause, err)
}

func (s *Store) invalidated(cause string, err error) {
	metrics.IncSessionTransition(Unauthenticated.String(), cause)
	logging.Warn("session_invalidated", map[string]any{"cause": cause, "error": err.Error()})
	s.mu.RLock()
	hooks := append([]func(error){}, s.invalidate...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(err)
	}
}
