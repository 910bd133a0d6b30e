package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/acreage/domain"
)

func TestRequireSession(t *testing.T) {
	user := &domain.User{ID: "u-1"}
	tests := []struct {
		name   string
		state  domain.AuthState
		status int
		passed bool
	}{
		{
			name:   "restore pending",
			state:  domain.AuthState{Loading: true},
			status: fasthttp.StatusServiceUnavailable,
		},
		{
			name:   "signed out",
			state:  domain.AuthState{Initialized: true},
			status: fasthttp.StatusUnauthorized,
		},
		{
			name: "expired",
			state: domain.AuthState{Initialized: true, User: user, Session: &domain.Session{
				AccessToken: "at", ExpiresAt: time.Now().Add(-time.Minute), User: user,
			}},
			status: fasthttp.StatusUnauthorized,
		},
		{
			name: "signed in",
			state: domain.AuthState{Initialized: true, User: user, Session: &domain.Session{
				AccessToken: "at", ExpiresAt: time.Now().Add(time.Hour), User: user,
			}},
			status: fasthttp.StatusOK,
			passed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed := false
			next := func(ctx *fasthttp.RequestCtx) {
				passed = true
				assert.Equal(t, "u-1", string(ctx.Request.Header.Peek("X-User-ID")))
				ctx.SetStatusCode(fasthttp.StatusOK)
			}

			var ctx fasthttp.RequestCtx
			RequireSession(func() domain.AuthState { return tt.state }, nil)(next)(&ctx)

			assert.Equal(t, tt.passed, passed)
			assert.Equal(t, tt.status, ctx.Response.StatusCode())
		})
	}
}
