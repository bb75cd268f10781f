package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"insta/internal/config"
	"insta/internal/logging"
	"insta/internal/metrics"
	"insta/internal/model"
)

// API defines the backend calls the screens and the session layer use.
// Calls that need a bearer credential take it explicitly.
type API interface {
	Login(ctx context.Context, userName, password string) (string, error)
	Profile(ctx context.Context, token string) (model.User, error)
	ListUsers(ctx context.Context, token string) ([]model.User, error)
	GetUser(ctx context.Context, userName string) (model.User, error)
	UserPosts(ctx context.Context, userName string) ([]model.Post, error)
	Follow(ctx context.Context, token, userName string) error
	Unfollow(ctx context.Context, token, userName string) error
	Followers(ctx context.Context, askedUser string) ([]model.FollowEntry, error)
	Following(ctx context.Context, askedUser string) ([]model.FollowEntry, error)
	FindConversations(ctx context.Context, sender, receiver string) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, c model.Conversation) (model.Conversation, error)
	Conversations(ctx context.Context, user string) ([]model.Conversation, error)
	AllPosts(ctx context.Context, userID string) ([]model.Post, error)
	MyPosts(ctx context.Context, token string) ([]model.Post, error)
	CreatePost(ctx context.Context, token, caption, image string) (model.Post, error)
	ToggleLike(ctx context.Context, postID, userName string) error
	AddComment(ctx context.Context, postID, userName, comment string) ([]model.Comment, error)
	DeletePost(ctx context.Context, token, postID string) error
}

// HTTPClient is a JSON client for the social backend.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

var _ API = (*HTTPClient)(nil)

func New(cfg config.APIConfig) *HTTPClient {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     newLimiter(cfg.RPS, cfg.Burst),
		maxAttempts: attempts,
		baseBackoff: cfg.BaseBackoff,
	}
}

type noRetryKey struct{}

// WithoutRetry marks ctx so that calls made with it are sent exactly once.
func WithoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

func retryAllowed(ctx context.Context) bool {
	v, _ := ctx.Value(noRetryKey{}).(bool)
	return !v
}

// call describes one backend request. endpoint is the route template used
// for metrics and error messages; path is the concrete path. bearer marks
// routes that require a credential, whether or not token is set.
type call struct {
	method   string
	endpoint string
	path     string
	query    url.Values
	token    string
	bearer   bool
	body     any
}

func (c *HTTPClient) do(ctx context.Context, cl call, out any) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return err
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	var resp *http.Response
	if cl.method == http.MethodGet && retryAllowed(ctx) {
		resp, err = c.doWithRetry(ctx, cl.endpoint, req)
	} else {
		resp, err = c.httpClient.Do(req)
	}
	if err != nil {
		metrics.ObserveRequest(cl.endpoint, 0, start)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Debug("api_transport_error", map[string]any{"endpoint": cl.endpoint, "error": err.Error()})
		return fmt.Errorf("%w: %s %s: %v", ErrNetworkFailure, cl.method, cl.endpoint, err)
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(cl.endpoint, resp.StatusCode, start)

	if resp.StatusCode >= 400 {
		return classify(cl, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", cl.endpoint, err)
	}
	return nil
}

func classify(cl call, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	se := &StatusError{Endpoint: cl.endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	switch {
	case cl.endpoint == loginEndpoint && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		// unknown user and wrong password look the same to the caller
		return fmt.Errorf("%w: %w", ErrAuthenticationFailure, se)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// a missing credential on a protected route is as dead as a stale one
		if cl.bearer {
			return fmt.Errorf("%w: %w", ErrSessionExpired, se)
		}
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, se)
	}
	return se
}

func (c *HTTPClient) doWithRetry(ctx context.Context, endpoint string, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(endpoint)
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			ra := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			wait := backoff
			if ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			// jitter +/-20%
			jitter := time.Duration(float64(wait) * 0.2)
			if jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == c.maxAttempts {
			break
		}
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func requireArg(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("empty %s", name)
	}
	return nil
}
