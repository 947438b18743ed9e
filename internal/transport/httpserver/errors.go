package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

const internalErrorMessage = "Internal server error"

var errInvalidBody = echo.NewHTTPError(http.StatusBadRequest, "invalid body")

// statusFor сопоставляет ошибку с HTTP-статусом и сообщением для клиента.
func statusFor(err error) (int, string) {
	var httpErr *echo.HTTPError
	switch {
	case domain.IsBusiness(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.As(err, &httpErr):
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, internalErrorMessage
		}
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

// errorHandler пишет ответ {"status":"error","message":...}. Внутренние ошибки логируются, клиенту уходит общий текст.
func errorHandler(logger *log.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := statusFor(err)
		if code >= http.StatusInternalServerError {
			logger.WithError(err).WithFields(log.Fields{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Error("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, errorResponse{Status: "error", Message: message})
		}
		if writeErr != nil {
			logger.WithError(writeErr).Warn("failed to write error response")
		}
	}
}
