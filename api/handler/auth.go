package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/acreage/api/transport"
	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/pkg/httpcontext"
)

// SessionService is the part of the session manager the API needs.
type SessionService interface {
	State() domain.AuthState
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*domain.AuthResponse, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, patch map[string]any) (*domain.User, error)
	ResetPassword(ctx context.Context, email string) error
	SetUser(user *domain.User)
}

type AuthHandler struct {
	baseHandler
	sessions SessionService
}

func NewAuthHandler(sessions SessionService, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sessions:    sessions,
	}
}

// @Summary Current auth state
// @Tags auth
// @Router /api/v1/auth/state [get]
func (h *AuthHandler) State(ctx *fasthttp.RequestCtx) {
	h.respondSuccess(ctx, http.StatusOK, transport.NewStateResponse(h.sessions.State()))
}

// @Summary Register an account
// @Tags auth
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) SignUp(ctx *fasthttp.RequestCtx) {
	var req transport.SignUpRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.sessions.SignUp(stdCtx, req.Email, req.Password, req.Metadata)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.SignUpResponse{
		User:                 resp.User,
		ConfirmationRequired: resp.Session == nil,
		State:                transport.NewStateResponse(h.sessions.State()),
	})
}

// @Summary Sign in with email and password
// @Tags auth
// @Router /api/v1/auth/signin [post]
func (h *AuthHandler) SignIn(ctx *fasthttp.RequestCtx) {
	var req transport.SignInRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.sessions.SignIn(stdCtx, req.Email, req.Password); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewStateResponse(h.sessions.State()))
}

// @Summary Sign out
// @Description The local session is cleared even when the provider call fails.
// @Tags auth
// @Router /api/v1/auth/signout [post]
func (h *AuthHandler) SignOut(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.sessions.SignOut(stdCtx); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewStateResponse(h.sessions.State()))
}

// @Summary Request a password recovery email
// @Tags auth
// @Router /api/v1/auth/password/reset [post]
func (h *AuthHandler) ResetPassword(ctx *fasthttp.RequestCtx) {
	var req transport.ResetPasswordRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.sessions.ResetPassword(stdCtx, req.Email); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusAccepted, map[string]bool{"sent": true})
}
