package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, apiResponse{
		StatusCode: status,
		Success:    status < http.StatusBadRequest,
		Message:    message,
		Data:       data,
	})
}

// fail maps the error taxonomy to a status. Internal details never reach
// the client.
func fail(c *gin.Context, err error) {
	status, message := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Int("status", status).Msg("request rejected")
	}
	c.AbortWithStatusJSON(status, apiResponse{StatusCode: status, Message: message})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInternal):
		return http.StatusInternalServerError, "internal server error"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
