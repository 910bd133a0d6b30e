package session

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/pkg/retry"
)

// Operation names used in logs and metrics.
const (
	OpSignUp        = "sign_up"
	OpSignIn        = "sign_in"
	OpSignOut       = "sign_out"
	OpUpdateProfile = "update_profile"
	OpResetPassword = "reset_password"
)

var failureMessages = map[string]string{
	OpSignUp:        "Sign up failed. Please check your connection and try again.",
	OpSignIn:        "Sign in failed. Please check your connection and try again.",
	OpSignOut:       "Sign out failed. Please check your connection and try again.",
	OpUpdateProfile: "Profile update failed. Please check your connection and try again.",
	OpResetPassword: "Password reset failed. Please check your connection and try again.",
}

var rejectionMessages = map[string]string{
	OpSignUp:        "Sign up was rejected. Please review your details and try again.",
	OpSignIn:        "Invalid email or password.",
	OpSignOut:       "Sign out was rejected. Your local session has been cleared.",
	OpUpdateProfile: "Profile update was rejected. Please sign in again and retry.",
	OpResetPassword: "Password reset was rejected. Please check the email address.",
}

var (
	errEmptyResponse    = errors.New("provider returned an empty response")
	errEmailRequired    = domain.NewError(domain.ErrCodeInvalid, "Email is required.")
	errPasswordRequired = domain.NewError(domain.ErrCodeInvalid, "Password is required.")
)

// SignUp registers an account. When the provider returns a session right
// away (no email confirmation), the user is signed in immediately.
func (m *Manager) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResponse, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	m.beginOp()
	defer m.endOp()

	resp, err := remote(ctx, m, OpSignUp, m.cfg.AuthPolicy, func(ctx context.Context) (*domain.AuthResponse, error) {
		return nonNil(m.provider.SignUp(ctx, email, password, metadata))
	})
	if err != nil {
		return nil, err
	}
	if resp.Session != nil {
		m.applyEffect(domain.EventSignedIn, resp.Session)
	}
	return resp, nil
}

// SignIn authenticates with email and password and applies the new session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	m.beginOp()
	defer m.endOp()

	resp, err := remote(ctx, m, OpSignIn, m.cfg.AuthPolicy, func(ctx context.Context) (*domain.AuthResponse, error) {
		return nonNil(m.provider.SignInWithPassword(ctx, email, password))
	})
	if err != nil {
		return nil, err
	}
	if resp.Session != nil {
		m.applyEffect(domain.EventSignedIn, resp.Session)
	}
	return resp, nil
}

// SignOut clears the local session first and then asks the provider to
// revoke it. Local state stays cleared when the remote call fails; the
// failure is still returned.
func (m *Manager) SignOut(ctx context.Context) error {
	m.beginOp()
	defer m.endOp()

	m.clearLocal()

	_, err := remote(ctx, m, OpSignOut, m.cfg.SignOutPolicy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.provider.SignOut(ctx)
	})
	return err
}

// UpdateProfile sends a metadata patch and, when signed in, replaces the user
// on the current session.
func (m *Manager) UpdateProfile(ctx context.Context, patch map[string]any) (*domain.User, error) {
	m.beginOp()
	defer m.endOp()

	user, err := remote(ctx, m, OpUpdateProfile, m.cfg.AuthPolicy, func(ctx context.Context) (*domain.User, error) {
		u, err := m.provider.UpdateUser(ctx, patch)
		if err == nil && u == nil {
			return nil, errEmptyResponse
		}
		return u, err
	})
	if err != nil {
		return nil, err
	}
	if current := m.currentSession(); current != nil {
		m.applyEffect(domain.EventUserUpdated, current.WithUser(user))
	}
	return user, nil
}

// ResetPassword asks the provider to email a recovery link.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return errEmailRequired
	}
	m.beginOp()
	defer m.endOp()

	_, err := remote(ctx, m, OpResetPassword, m.cfg.AuthPolicy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.provider.ResetPasswordForEmail(ctx, email, m.cfg.RedirectURL)
	})
	return err
}

// remote runs call under policy and turns a terminal failure into a user-safe
// domain error. The raw cause is only logged.
func remote[T any](ctx context.Context, m *Manager, op string, policy retry.Policy, call func(ctx context.Context) (T, error)) (T, error) {
	opts := make([]retry.Option, 0, len(m.retryOpts)+2)
	opts = append(opts, retry.WithOnAttempt(func(attempt int, err error) {
		m.metrics.ObserveAttempt(op, err)
		if err != nil {
			m.logger.Debug("auth attempt failed",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
	}))
	if m.cfg.SkipRejectedRetries {
		opts = append(opts, retry.WithRetryIf(func(err error) bool {
			return !domain.IsRejection(err)
		}))
	}
	opts = append(opts, m.retryOpts...)

	result, err := retry.Do(ctx, policy, call, opts...)
	m.metrics.ObserveResult(op, err)
	if err != nil {
		var zero T
		return zero, m.failure(op, err)
	}
	return result, nil
}

func (m *Manager) failure(op string, err error) error {
	m.logger.Debug("auth operation failed", zap.String("operation", op), zap.Error(err))

	if m.cfg.SkipRejectedRetries && domain.IsRejection(err) {
		var dErr *domain.Error
		errors.As(err, &dErr)
		return domain.NewError(dErr.Code, rejectionMessages[op])
	}

	code := domain.ErrCodeUnavailable
	if errors.Is(err, retry.ErrAttemptTimeout) {
		code = domain.ErrCodeTimeout
	}
	m.logger.Warn("auth operation gave up", zap.String("operation", op))
	return domain.NewError(code, failureMessages[op])
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errEmailRequired
	}
	if password == "" {
		return errPasswordRequired
	}
	return nil
}

func nonNil(resp *domain.AuthResponse, err error) (*domain.AuthResponse, error) {
	if err == nil && resp == nil {
		return nil, errEmptyResponse
	}
	return resp, err
}
