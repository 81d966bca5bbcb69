package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicer/internal/domain"
	"invoicer/internal/engine"
	"invoicer/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Engine state errors are checked before ErrGeneration since a failed
// generation may wrap either.
func MapDomainError(err error) (status int, code, msg string) {
	var rlErr *engine.RateLimitError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "forbidden"
	case errors.Is(err, domain.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "ENGINE_NOT_READY", "generation engine is not ready"
	case errors.Is(err, domain.ErrEngineBusy):
		return http.StatusServiceUnavailable, "ENGINE_BUSY", "generation engine is busy; retry shortly"
	case errors.Is(err, domain.ErrEngineReleased):
		return http.StatusServiceUnavailable, "ENGINE_RELEASED", "generation engine is shutting down"
	case errors.As(err, &rlErr):
		return http.StatusTooManyRequests, "RATE_LIMITED", "generation provider rate limit reached; retry later"
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, "GENERATION_FAILED", "text generation failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)

	var rlErr *engine.RateLimitError
	if errors.As(err, &rlErr) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rlErr.RetryAfter.Seconds()))))
	}

	logger := middleware.GetLogger(c)
	switch {
	case status >= 500:
		logger.Error("request failed", zap.String("code", code), zap.Error(err))
	case status == http.StatusTooManyRequests:
		logger.Warn("request rate limited", zap.Error(err))
	}
	RespondError(c, status, code, msg)
}
