// Package gotrue talks to the Supabase Auth (GoTrue) REST API and keeps the
// provider-side copy of the current session, including its refresh.
package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/usecase"
)

const authPath = "/auth/v1"

// Config describes the provider endpoint.
type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
	// Dial overrides the network dialer; tests use an in-memory listener.
	Dial fasthttp.DialFunc
}

// Client is the IdentityProvider backed by GoTrue.
type Client struct {
	baseURL string
	anonKey string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	session *domain.Session
	// revoking holds the access token of a sign out whose logout call has not
	// gone through yet, so a retried SignOut still revokes it.
	revoking string

	subs *listeners
}

// New builds a client. The URL is the project URL, without the /auth/v1 suffix.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("gotrue: url is required")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, err
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("gotrue: anon key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/") + authPath,
		anonKey: cfg.AnonKey,
		timeout: cfg.Timeout,
		http: &fasthttp.Client{
			Name:                "acreage-auth",
			Dial:                cfg.Dial,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		logger: logger.Named("gotrue"),
		now:    time.Now,
		subs:   newListeners(),
	}, nil
}

var _ usecase.IdentityProvider = (*Client)(nil)

// Session returns a copy of the session the client currently holds.
func (c *Client) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// OnAuthStateChange registers listener for every event the client emits.
func (c *Client) OnAuthStateChange(listener usecase.AuthStateListener) (usecase.Subscription, error) {
	if listener == nil {
		return nil, errors.New("gotrue: nil listener")
	}
	return c.subs.add(listener), nil
}

// SetSession adopts a session restored from local storage without a network
// round trip. No event is emitted.
func (c *Client) SetSession(_ context.Context, session *domain.Session) error {
	if session == nil || session.AccessToken == "" {
		return domain.ErrInvalidPayload
	}
	c.mu.Lock()
	c.session = session.Clone()
	c.mu.Unlock()
	return nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/signup", "", credentialsRequest{
		Email:    email,
		Password: password,
		Data:     metadata,
	})
	if err != nil {
		return nil, err
	}
	resp, err := decodeSignUp(body, c.now())
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "malformed signup response", err)
	}
	if resp.Session != nil {
		c.adopt(domain.EventSignedIn, resp.Session)
	}
	return resp, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	session, err := c.token(ctx, "password", credentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	c.adopt(domain.EventSignedIn, session)
	return &domain.AuthResponse{User: session.User.Clone(), Session: session}, nil
}

// SignOut forgets the held session and emits SIGNED_OUT before revoking the
// token remotely. A token the server no longer accepts counts as revoked.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	signedOut := c.session != nil
	if signedOut {
		c.revoking = c.session.AccessToken
		c.session = nil
	}
	token := c.revoking
	c.mu.Unlock()

	if signedOut {
		c.subs.emit(domain.EventSignedOut, nil)
	}
	if token == "" {
		return nil
	}

	_, err := c.do(ctx, http.MethodPost, "/logout?scope=global", token, nil)
	if err != nil && !domain.IsRejection(err) && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return err
	}
	c.mu.Lock()
	if c.revoking == token {
		c.revoking = ""
	}
	c.mu.Unlock()
	return nil
}

// UpdateUser patches user_metadata of the signed-in user.
func (c *Client) UpdateUser(ctx context.Context, patch map[string]any) (*domain.User, error) {
	current := c.Session()
	if current == nil {
		return nil, domain.ErrNoSession
	}
	body, err := c.do(ctx, http.MethodPut, "/user", current.AccessToken, updateUserRequest{Data: patch})
	if err != nil {
		return nil, err
	}
	var payload userResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "malformed user response", err)
	}
	user := payload.toDomain()
	if user == nil {
		return nil, domain.NewError(domain.ErrCodeUnavailable, "malformed user response")
	}

	c.mu.Lock()
	var updated *domain.Session
	if c.session != nil && c.session.AccessToken == current.AccessToken {
		c.session = c.session.WithUser(user)
		updated = c.session.Clone()
	}
	c.mu.Unlock()
	if updated != nil {
		c.subs.emit(domain.EventUserUpdated, updated)
	}
	return user, nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	_, err := c.do(ctx, http.MethodPost, path, "", recoverRequest{Email: email})
	return err
}

// Refresh exchanges the held refresh token for a new session. A refresh token
// the server rejects ends the session.
func (c *Client) Refresh(ctx context.Context) error {
	current := c.Session()
	if current == nil || current.RefreshToken == "" {
		return domain.ErrNoSession
	}

	session, err := c.token(ctx, "refresh_token", refreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		if domain.IsRejection(err) {
			c.logger.Warn("refresh token rejected, signing out", zap.Error(err))
			c.drop(current.AccessToken)
		}
		return err
	}
	if session.User == nil {
		session.User = current.User.Clone()
	}
	if !c.replace(current.AccessToken, domain.EventTokenRefreshed, session) {
		c.logger.Debug("session changed during refresh, discarding refreshed tokens")
		return domain.ErrNoSession
	}
	return nil
}

// Health pings the provider health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", "", nil)
	return err
}

func (c *Client) token(ctx context.Context, grant string, payload any) (*domain.Session, error) {
	body, err := c.do(ctx, http.MethodPost, "/token?grant_type="+grant, "", payload)
	if err != nil {
		return nil, err
	}
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "malformed token response", err)
	}
	session := tok.toSession(c.now())
	if session == nil {
		return nil, domain.NewError(domain.ErrCodeUnavailable, "token response without access token")
	}
	return session, nil
}

func (c *Client) adopt(event domain.AuthEvent, session *domain.Session) {
	c.mu.Lock()
	c.session = session.Clone()
	c.revoking = ""
	c.mu.Unlock()
	c.subs.emit(event, session)
}

// replace swaps in session only while the held session is still the one
// identified by token.
func (c *Client) replace(token string, event domain.AuthEvent, session *domain.Session) bool {
	c.mu.Lock()
	replaced := c.session != nil && c.session.AccessToken == token
	if replaced {
		c.session = session.Clone()
		c.revoking = ""
	}
	c.mu.Unlock()
	if replaced {
		c.subs.emit(event, session)
	}
	return replaced
}

// drop clears the held session if it is still the one identified by token.
func (c *Client) drop(token string) {
	c.mu.Lock()
	dropped := c.session != nil && c.session.AccessToken == token
	if dropped {
		c.session = nil
	}
	c.mu.Unlock()
	if dropped {
		c.subs.emit(domain.EventSignedOut, nil)
	}
}

// do sends a JSON request and returns the response body of a 2xx answer.
// bearer defaults to the anon key.
func (c *Client) do(ctx context.Context, method, path, bearer string, payload any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.logger.Debug("gotrue request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, transportError(err)
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)
	c.logger.Debug("gotrue request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))

	if status < 200 || status >= 300 {
		return nil, statusError(status, body)
	}
	return body, nil
}
