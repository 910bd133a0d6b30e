package gotrue

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fastygo/acreage/domain"
)

type userResponse struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	Metadata  map[string]any `json:"user_metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (u *userResponse) toDomain() *domain.User {
	if u == nil || u.ID == "" {
		return nil
	}
	return &domain.User{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Metadata:  u.Metadata,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// tokenResponse is returned by the token endpoint and, when no email
// confirmation is required, by signup.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

func (t *tokenResponse) toSession(now time.Time) *domain.Session {
	if t == nil || t.AccessToken == "" {
		return nil
	}
	return &domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresAt:    tokenExpiry(t, now),
		User:         t.User.toDomain(),
	}
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func (e errorResponse) kind() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	return e.Error
}

type credentialsRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateUserRequest struct {
	Data map[string]any `json:"data"`
}

type recoverRequest struct {
	Email string `json:"email"`
}

// decodeSignUp handles both signup shapes: a token response when the account
// is usable right away, or the bare user when confirmation is pending.
func decodeSignUp(body []byte, now time.Time) (*domain.AuthResponse, error) {
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, err
	}
	if session := tok.toSession(now); session != nil {
		return &domain.AuthResponse{User: session.User.Clone(), Session: session}, nil
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	if u := user.toDomain(); u != nil {
		return &domain.AuthResponse{User: u}, nil
	}
	return &domain.AuthResponse{User: tok.User.toDomain()}, nil
}

// tokenExpiry prefers the absolute expires_at, then the exp claim of the
// access token, then expires_in relative to now.
func tokenExpiry(t *tokenResponse, now time.Time) time.Time {
	if t.ExpiresAt > 0 {
		return time.Unix(t.ExpiresAt, 0).UTC()
	}
	if exp, ok := jwtExpiry(t.AccessToken); ok {
		return exp
	}
	if t.ExpiresIn > 0 {
		return now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	return now.UTC()
}

// jwtExpiry reads the exp claim without verifying the signature; the token is
// only ever checked by the server that issued it.
func jwtExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time.UTC(), true
}
