package domain

import "time"

// Session is one authenticated login issued by the identity provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// IsExpired reports whether the session can no longer be reused at reference.
// A session is only valid while ExpiresAt is strictly in the future.
func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// ExpiresWithin reports whether the session expires before reference+margin.
func (s *Session) ExpiresWithin(reference time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	return s.IsExpired(reference.Add(margin))
}

// Clone returns a deep copy so callers can't mutate shared state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User = s.User.Clone()
	return &out
}

// WithUser returns a copy of the session carrying user.
func (s *Session) WithUser(user *User) *Session {
	out := s.Clone()
	if out == nil {
		return nil
	}
	out.User = user.Clone()
	return out
}

// Redacted strips token material for display.
func (s *Session) Redacted() *Session {
	out := s.Clone()
	if out == nil {
		return nil
	}
	if out.AccessToken != "" {
		out.AccessToken = "***"
	}
	if out.RefreshToken != "" {
		out.RefreshToken = "***"
	}
	return out
}

// AuthResponse is what the provider returns from sign up and sign in.
// Session is nil when the provider requires email confirmation first.
type AuthResponse struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}
