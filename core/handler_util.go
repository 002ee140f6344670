package core

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondAuthError maps the auth error taxonomy onto transport codes and
// emits the unified payload. Validation details ride along when present.
func respondAuthError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "validation failed",
			"details": verr.Details,
		}})
	case errors.Is(err, ErrNoCredential):
		respondError(c, http.StatusUnauthorized, "NO_CREDENTIAL", "authentication required")
	case errors.Is(err, ErrTokenExpired):
		respondError(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "session has expired")
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnknownUser):
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid token")
	case errors.Is(err, ErrAccountDeactivated):
		respondError(c, http.StatusUnauthorized, "ACCOUNT_DEACTIVATED", "account has been deactivated")
	case errors.Is(err, ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
	case errors.Is(err, ErrDuplicateEmail):
		respondError(c, http.StatusConflict, "CONFLICT", "an account with this email already exists")
	case errors.Is(err, ErrDirectoryUnavailable):
		respondError(c, http.StatusServiceUnavailable, "DIRECTORY_UNAVAILABLE", "user directory unavailable")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
	}
}
