package middleware

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/acreage/api/transport"
	"github.com/fastygo/acreage/domain"
)

// RequireSession lets a request through only when a user is signed in. While
// the startup restore is pending it answers 503 so callers can retry.
func RequireSession(state func() domain.AuthState, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			current := state()
			if !current.Initialized {
				reject(ctx, fasthttp.StatusServiceUnavailable, domain.ErrCodeUnavailable, "Session is still loading.")
				return
			}
			if !current.IsAuthenticated() {
				logger.Debug("rejecting unauthenticated request", zap.ByteString("path", ctx.Path()))
				reject(ctx, fasthttp.StatusUnauthorized, domain.ErrCodeUnauthorized, "Please sign in first.")
				return
			}
			if current.Session.IsExpired(time.Now()) {
				reject(ctx, fasthttp.StatusUnauthorized, domain.ErrCodeUnauthorized, domain.ErrSessionExpired.Message)
				return
			}

			ctx.Request.Header.Set("X-User-ID", current.User.ID)
			next(ctx)
		}
	}
}

func reject(ctx *fasthttp.RequestCtx, status int, code domain.ErrorCode, message string) {
	body, _ := json.Marshal(transport.NewError(string(code), message, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
