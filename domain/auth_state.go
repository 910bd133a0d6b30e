package domain

// AuthEvent is the kind of notification emitted by the identity provider.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthState is the UI-visible projection of the current session.
type AuthState struct {
	User        *User    `json:"user"`
	Session     *Session `json:"session"`
	Loading     bool     `json:"loading"`
	Initialized bool     `json:"initialized"`
}

// IsAuthenticated reports whether a user is signed in.
func (s AuthState) IsAuthenticated() bool {
	return s.User != nil && s.Session != nil
}

// Clone deep-copies the state for handing out to observers.
func (s AuthState) Clone() AuthState {
	return AuthState{
		User:        s.User.Clone(),
		Session:     s.Session.Clone(),
		Loading:     s.Loading,
		Initialized: s.Initialized,
	}
}
