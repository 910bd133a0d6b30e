package gotrue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/acreage/domain"
)

// errInvalidGrant is what the token endpoint answers for bad credentials or a
// revoked refresh token.
const errInvalidGrant = "invalid_grant"

// statusError classifies a non-2xx response. Rejections keep their
// provider text as the cause; callers decide whether to show it.
func statusError(status int, body []byte) error {
	var payload errorResponse
	_ = json.Unmarshal(body, &payload)
	cause := fmt.Errorf("gotrue: status %d: %s", status, payload.text())

	switch {
	case status == http.StatusBadRequest && payload.kind() == errInvalidGrant:
		return domain.WrapError(domain.ErrCodeUnauthorized, errInvalidGrant, cause)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return domain.WrapError(domain.ErrCodeInvalid, "rejected by identity provider", cause)
	case status == http.StatusUnauthorized:
		return domain.WrapError(domain.ErrCodeUnauthorized, "unauthorized", cause)
	case status == http.StatusForbidden:
		return domain.WrapError(domain.ErrCodeForbidden, "forbidden", cause)
	case status == http.StatusNotFound:
		return domain.WrapError(domain.ErrCodeNotFound, "not found", cause)
	case status == http.StatusConflict:
		return domain.WrapError(domain.ErrCodeConflict, "conflict", cause)
	default:
		return domain.WrapError(domain.ErrCodeUnavailable, "identity provider unavailable", cause)
	}
}

// transportError wraps a failure to get any response at all.
func transportError(err error) error {
	if errors.Is(err, fasthttp.ErrTimeout) {
		return domain.WrapError(domain.ErrCodeTimeout, "identity provider timed out", err)
	}
	return domain.WrapError(domain.ErrCodeUnavailable, "identity provider unreachable", err)
}
