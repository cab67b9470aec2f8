// Package response writes the JSON envelope every API endpoint answers with.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ksred/coinkong/internal/types"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeDuplicateResource = "DUPLICATE_RESOURCE"
	ErrCodeUnprocessable     = "UNPROCESSABLE"
	ErrCodeMaintenance       = "MAINTENANCE"
)

const maintenanceMessage = "The bot is currently in maintenance mode. Please try again later."

// Handle answers with data on success, otherwise maps err onto a status
// and error code. Unknown errors never leak their text.
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeValidationFailed, ve.Message)
	case errors.Is(err, types.ErrSwapNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Resource not found")
	case errors.Is(err, types.ErrDuplicateSwap), errors.Is(err, gorm.ErrDuplicatedKey):
		fail(c, http.StatusConflict, ErrCodeDuplicateResource, "Resource already exists")
	case errors.Is(err, types.ErrPairNotSupported), errors.Is(err, types.ErrConversionFailed):
		fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
	case errors.Is(err, types.ErrMaintenance):
		fail(c, http.StatusForbidden, ErrCodeMaintenance, maintenanceMessage)
	case errors.Is(err, types.ErrAccessDenied),
		errors.Is(err, types.ErrNotOwner),
		errors.Is(err, types.ErrNotSwapOwner):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternalError, "An unexpected error occurred")
	}
}

// Success sends data with 200, or 201 for POST
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}
