package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/acreage/api/transport"
	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/internal/infrastructure/monitor"
	"github.com/fastygo/acreage/pkg/httpcontext"
)

// StatusSource reports dependency health.
type StatusSource interface {
	GetStatus() monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
	state   func() domain.AuthState
}

func NewHealthHandler(mon StatusSource, state func() domain.AuthState, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		state:       state,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"services": map[string]interface{}{
			"provider":   status.Provider,
			"storage":    status.Storage,
			"last_check": status.LastCheck,
		},
	}
	if h.state != nil {
		state := h.state()
		payload["session"] = map[string]interface{}{
			"initialized":   state.Initialized,
			"loading":       state.Loading,
			"authenticated": state.IsAuthenticated(),
		}
	}

	if status.Healthy() {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
