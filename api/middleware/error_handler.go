// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Annany2002/nebula-workspace/internal/auth"
	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/logger"
	"github.com/Annany2002/nebula-workspace/internal/storage"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// BindingDetail names one request field that failed binding validation.
type BindingDetail struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ErrorHandler creates a Gin middleware for centralized error handling.
// Handlers attach errors with c.Error and return; the last one decides the response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		last := c.Errors.Last()
		err := last.Err
		log := logger.FromContext(c.Request.Context(), customLog)

		status, body := mapError(last)
		body.RequestID = logger.RequestID(c.Request.Context())
		if status >= http.StatusInternalServerError {
			log.Errorf("[ErrorHandler] Unhandled error type: %T, Error: %v", err, err)
		} else {
			log.Warnf("[ErrorHandler] %d: %v", status, err)
		}

		if c.Writer.Written() {
			log.Warnf("[ErrorHandler] Response already written before handling error")
			return
		}
		c.AbortWithStatusJSON(status, body)
	}
}

func mapError(ginErr *gin.Error) (int, ErrorResponse) {
	err := ginErr.Err

	var validationErr *core.ValidationError
	var bindingErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorResponse{Error: core.ErrValidation.Error(), Details: validationErr.Errors}

	case errors.As(err, &bindingErrs):
		details := make([]BindingDetail, 0, len(bindingErrs))
		for _, fe := range bindingErrs {
			details = append(details, BindingDetail{Field: fe.Field(), Rule: fe.Tag()})
		}
		return http.StatusBadRequest, ErrorResponse{Error: "Validation failed. Please check your input.", Details: details}

	case ginErr.IsType(gin.ErrorTypeBind):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()}

	case errors.Is(err, core.ErrUnsupportedOp),
		errors.Is(err, core.ErrInvalidFilterValue),
		errors.Is(err, core.ErrInvalidQuery):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}

	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, ErrorResponse{Error: "Authentication token has expired."}

	case errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenClaimsInvalid),
		errors.Is(err, auth.ErrUnexpectedSigningMethod):
		return http.StatusUnauthorized, ErrorResponse{Error: "Invalid or malformed authentication token."}

	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: err.Error()}

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "You do not have access to this database."}

	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, storage.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error()}

	case errors.Is(err, storage.ErrEmailExists),
		errors.Is(err, storage.ErrDatabaseExists),
		errors.Is(err, storage.ErrPropertyExists),
		errors.Is(err, core.ErrLastView):
		return http.StatusConflict, ErrorResponse{Error: err.Error()}

	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
}
