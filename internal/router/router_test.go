package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/acreage/api/handler"
	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/internal/infrastructure/monitor"
	"github.com/fastygo/acreage/internal/middleware"
)

type signedOut struct{}

func (signedOut) State() domain.AuthState { return domain.AuthState{Initialized: true} }
func (signedOut) SignUp(context.Context, string, string, map[string]any) (*domain.AuthResponse, error) {
	return &domain.AuthResponse{}, nil
}
func (signedOut) SignIn(context.Context, string, string) (*domain.AuthResponse, error) {
	return &domain.AuthResponse{}, nil
}
func (signedOut) SignOut(context.Context) error { return nil }
func (signedOut) UpdateProfile(context.Context, map[string]any) (*domain.User, error) {
	return &domain.User{}, nil
}
func (signedOut) ResetPassword(context.Context, string) error { return nil }
func (signedOut) SetUser(*domain.User) {}

type upStatus struct{}

func (upStatus) GetStatus() monitor.Status {
	return monitor.Status{Provider: true, Storage: true, LastCheck: time.Now()}
}

func TestRoutes(t *testing.T) {
	var s signedOut
	r := New(Handlers{
		Auth:    apiHandler.NewAuthHandler(s, nil, nil),
		Profile: apiHandler.NewProfileHandler(s, nil, nil),
		Health:  apiHandler.NewHealthHandler(upStatus{}, s.State, nil, nil),
		Metrics: func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) },
	}, middleware.RequireSession(s.State, nil))

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{fasthttp.MethodGet, "/health", "", fasthttp.StatusOK},
		{fasthttp.MethodGet, "/metrics", "", fasthttp.StatusOK},
		{fasthttp.MethodGet, "/api/v1/auth/state", "", fasthttp.StatusOK},
		{fasthttp.MethodPost, "/api/v1/auth/signin", `{"email":"a@x.com","password":"pw"}`, fasthttp.StatusOK},
		{fasthttp.MethodPost, "/api/v1/auth/signup", `{"email":"a@x.com","password":"pw"}`, fasthttp.StatusCreated},
		{fasthttp.MethodPost, "/api/v1/auth/signout", "", fasthttp.StatusOK},
		{fasthttp.MethodPost, "/api/v1/auth/password/reset", `{"email":"a@x.com"}`, fasthttp.StatusAccepted},
		{fasthttp.MethodPut, "/api/v1/auth/profile", `{"metadata":{"a":1}}`, fasthttp.StatusUnauthorized},
		{fasthttp.MethodPut, "/api/v1/auth/user", `{}`, fasthttp.StatusOK},
		{fasthttp.MethodGet, "/api/v1/tasks", "", fasthttp.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var ctx fasthttp.RequestCtx
			ctx.Request.Header.SetMethod(tt.method)
			ctx.Request.SetRequestURI(tt.path)
			if tt.body != "" {
				ctx.Request.SetBodyString(tt.body)
			}
			r.Handler(&ctx)
			assert.Equal(t, tt.status, ctx.Response.StatusCode())
		})
	}
}
