package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/acreage/api/transport"
	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/pkg/httpcontext"
)

type ProfileHandler struct {
	baseHandler
	sessions SessionService
}

func NewProfileHandler(sessions SessionService, adapter *httpcontext.Adapter, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sessions:    sessions,
	}
}

// @Summary Update profile metadata
// @Tags profile
// @Accept json
// @Produce json
// @Router /api/v1/auth/profile [put]
func (h *ProfileHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	var req transport.ProfileUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}
	if len(req.Metadata) == 0 {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "Nothing to update.", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.sessions.UpdateProfile(stdCtx, req.Metadata)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Replace the visible user without a provider call
// @Description An empty id clears the user.
// @Tags profile
// @Router /api/v1/auth/user [put]
func (h *ProfileHandler) SetUser(ctx *fasthttp.RequestCtx) {
	var req transport.SetUserRequest
	if !h.decode(ctx, &req) {
		return
	}

	var user *domain.User
	if req.ID != "" {
		user = &domain.User{
			ID:       req.ID,
			Email:    req.Email,
			Role:     req.Role,
			Metadata: req.Metadata,
		}
	}
	h.sessions.SetUser(user)
	h.respondSuccess(ctx, http.StatusOK, transport.NewStateResponse(h.sessions.State()))
}
