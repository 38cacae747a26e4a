package http

import (
	"context"
	"errors"
	"net/http"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/logging"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func ok(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg, Code: code})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	fail(c, http.StatusBadRequest, "ValidationError", "invalid request body")
}

// writeError maps domain and use-case errors onto status codes. Unknown
// errors become a bare 500; the detail only goes to the log.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		ve  *domain.ValidationError
		upe *domain.UnknownProductError
		se  *domain.StockError
		uce *domain.UnknownCustomerError
	)
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, "ValidationError", ve.Msg)
	case errors.As(err, &upe):
		fail(c, http.StatusBadRequest, "ProductNotFound", upe.Error())
	case errors.As(err, &se):
		fail(c, http.StatusBadRequest, "InsufficientStock", se.Error())
	case errors.As(err, &uce):
		fail(c, http.StatusBadRequest, "CustomerNotFound", uce.Error())
	case errors.Is(err, domain.ErrDuplicateCustomer):
		fail(c, http.StatusBadRequest, "DuplicateCustomer", "Customer with this name or email already exists")
	case errors.Is(err, usecase.ErrDuplicate):
		fail(c, http.StatusConflict, "Duplicate", "a request with this idempotency key is already in progress")
	case errors.Is(err, domain.ErrUserExists):
		fail(c, http.StatusBadRequest, "UserExists", "User already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		fail(c, http.StatusBadRequest, "InvalidCredentials", "Invalid credentials")
	case errors.Is(err, domain.ErrSessionExpired):
		fail(c, http.StatusUnauthorized, "SessionExpired", "Session expired, please log in again")
	case errors.Is(err, domain.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, "Unauthorized", "Token is not valid")
	case errors.Is(err, domain.ErrForbidden):
		fail(c, http.StatusForbidden, "Forbidden", "missing required permissions")
	case errors.Is(err, domain.ErrOrderNotFound):
		fail(c, http.StatusNotFound, "NotFound", "Order not found")
	case errors.Is(err, domain.ErrProductNotFound):
		fail(c, http.StatusNotFound, "NotFound", "Product not found")
	case errors.Is(err, domain.ErrCustomerNotFound):
		fail(c, http.StatusNotFound, "NotFound", "Customer not found")
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, "NotFound", "Not found")
	default:
		l := logging.From(c)
		if errors.Is(err, context.DeadlineExceeded) {
			l.Warn("request timed out", "err", err)
		} else {
			l.Error("request failed", "err", err)
		}
		fail(c, http.StatusInternalServerError, "InternalError", "Something went wrong!")
	}
}
