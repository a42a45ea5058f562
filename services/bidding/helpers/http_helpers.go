package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"bidding-ledger/internal/biddingerrors"
	"bidding-ledger/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrItemNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, biddingerrors.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, biddingerrors.ErrInvalidBid),
		errors.Is(err, biddingerrors.ErrInvalidItem),
		errors.Is(err, biddingerrors.ErrInvalidAccount):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, biddingerrors.ErrInsufficientCredits):
		return http.StatusConflict, "insufficient credits"
	case errors.Is(err, biddingerrors.ErrItemClosed):
		return http.StatusConflict, "item closed"
	case errors.Is(err, biddingerrors.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, biddingerrors.ErrLockTimeout):
		return http.StatusServiceUnavailable, "bid contention, retry later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
