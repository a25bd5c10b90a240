package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"propertychat/internal/model"
	"propertychat/internal/service"
)

// statusFor maps the service error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrPropertyNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTurnInProgress), errors.Is(err, service.ErrCompareFull):
		return http.StatusConflict
	case errors.Is(err, service.ErrInterpretation), errors.Is(err, service.ErrFilterService), errors.Is(err, service.ErrCatalog):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), model.ErrorResponse{
		Error:     err.Error(),
		Retryable: service.IsRetryable(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{Error: msg})
}
