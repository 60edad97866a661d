package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/safedump/internal/export"
	"github.com/samcharles93/safedump/pkg/safetensors"
)

var ErrBodyTooLarge = errors.New("request body too large")

func writeError(c *echo.Context, status int, errType, msg, code string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{
			Message: msg,
			Type:    errType,
			Code:    code,
		},
	})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

// writeDecodeError maps decoder and export failures onto HTTP responses.
// Container problems are the client's fault and surface as 400 with the
// failure kind as code.
func writeDecodeError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error", err.Error(), "payload_too_large")
	case errors.Is(err, export.ErrNonFinite):
		return writeError(c, http.StatusUnprocessableEntity, "decode_error", err.Error(), "non_finite")
	}
	if kind := safetensors.KindName(err); kind != "" {
		return writeError(c, http.StatusBadRequest, "decode_error", err.Error(), kind)
	}
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
}
