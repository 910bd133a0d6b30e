package usecase

import (
	"context"

	"github.com/fastygo/acreage/domain"
)

// AuthStateListener receives provider notifications. session is nil on sign out.
type AuthStateListener func(event domain.AuthEvent, session *domain.Session)

// Subscription is returned by OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}

// IdentityProvider abstracts the remote auth backend so the session manager
// stays transport-agnostic.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResponse, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResponse, error)
	SignOut(ctx context.Context) error
	UpdateUser(ctx context.Context, patch map[string]any) (*domain.User, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	// SetSession adopts a locally restored session. It must not deliver
	// notifications synchronously.
	SetSession(ctx context.Context, session *domain.Session) error
	OnAuthStateChange(listener AuthStateListener) (Subscription, error)
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}
