package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/domain/services"
	"courier-dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// errorResponse classifies err into a status code and a stable error kind.
func errorResponse(err error) ErrorResponse {
	var (
		httpErr     *echo.HTTPError
		notEligible *services.NotEligibleError
	)
	resp := ErrorResponse{Message: err.Error()}

	switch {
	case errors.As(err, &httpErr):
		resp.Code = httpErr.Code
		resp.Error = http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			resp.Message = msg
		}
	case errs.IsValidation(err):
		resp.Code, resp.Error = http.StatusBadRequest, "validation"
	case errors.Is(err, errs.ErrObjectNotFound):
		resp.Code, resp.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, parcel.ErrIllegalTransition),
		errors.Is(err, courier.ErrCourierArchived),
		errors.Is(err, courier.ErrHasActiveWork):
		resp.Code, resp.Error = http.StatusConflict, "illegal_transition"
	case errors.Is(err, commands.ErrConflict), errors.Is(err, errs.ErrVersionIsInvalid):
		resp.Code, resp.Error = http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrNoCourierAvailable):
		resp.Code, resp.Error = http.StatusUnprocessableEntity, "no_courier_available"
	case errors.As(err, &notEligible):
		resp.Code, resp.Error = http.StatusUnprocessableEntity, "courier_not_eligible"
		resp.Reason = string(notEligible.Reason)
	case errors.Is(err, courier.ErrLoadInvariantViolated):
		resp.Code, resp.Error = http.StatusInternalServerError, "fatal"
		resp.Message = "internal error"
	case errors.Is(err, context.DeadlineExceeded):
		resp.Code, resp.Error = http.StatusGatewayTimeout, "timeout"
	default:
		resp.Code, resp.Error = http.StatusBadGateway, "downstream"
		resp.Message = "dependency failure"
	}
	return resp
}

// errorHandler replaces echo's default handler so every error shares one body shape.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		resp := errorResponse(err)
		if resp.Code >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Path(), "status", resp.Code, "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(resp.Code)
		} else {
			writeErr = c.JSON(resp.Code, resp)
		}
		if writeErr != nil {
			logger.WarnContext(c.Request().Context(), "write error response", "error", writeErr)
		}
	}
}
