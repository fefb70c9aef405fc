package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pharmasource/backend/internal/domain"
)

// errorMapping pairs a sentinel error with its HTTP status and a stable code
type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order; the first errors.Is match wins
var errorMappings = []errorMapping{
	{domain.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrSessionNotFound, http.StatusUnauthorized, "unauthenticated"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrEmailNotVerified, http.StatusForbidden, "email_not_verified"},
	{domain.ErrAccessPending, http.StatusForbidden, "access_pending"},
	{domain.ErrAssistantDisabled, http.StatusForbidden, "assistant_disabled"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{domain.ErrEmailInUse, http.StatusConflict, "email_in_use"},
	{domain.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{domain.ErrAssistantFailure, http.StatusBadGateway, "assistant_failure"},
	{domain.ErrAssistantUnavailable, http.StatusServiceUnavailable, "assistant_unavailable"},
	{domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog_unavailable"},
	{domain.ErrInvalidCatalog, http.StatusServiceUnavailable, "catalog_invalid"},
}

// statusFor classifies err into an HTTP status and error code
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes err as a JSON error body. Unclassified errors are
// logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		message = "internal server error"
	} else if status >= http.StatusBadGateway {
		h.logger.Warn("dependency failure", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
