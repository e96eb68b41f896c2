package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/subgate/subgate/internal/billing/domain"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
	userdomain "github.com/subgate/subgate/internal/user/domain"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrForbidden      = errors.New("forbidden")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware renders the last unhandled error as JSON after
// the handler chain completes.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billingdomain.ErrUnknownTier),
		errors.Is(err, billingdomain.ErrInvalidGrant),
		errors.Is(err, entitlementdomain.ErrInvalidTier):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}

	case errors.Is(err, billingdomain.ErrPaymentNotReceived):
		return http.StatusPaymentRequired, errorPayload{Type: "payment_not_received", Message: "payment not received yet"}

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "access denied"}

	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, userdomain.ErrUserNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}

	case errors.Is(err, billingdomain.ErrInvoiceClosed),
		errors.Is(err, billingdomain.ErrIdempotencyConflict),
		errors.Is(err, invoicedomain.ErrDuplicateInvoice):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}

	case errors.Is(err, billingdomain.ErrPaymentUnavailable):
		return http.StatusServiceUnavailable, errorPayload{Type: "payment_system_unavailable", Message: "payment system unavailable, try again later"}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
