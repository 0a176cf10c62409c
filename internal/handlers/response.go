package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/api/internal/middleware"
	"volunteerhub/api/internal/service"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// fail maps service errors to the error envelope. Unrecognised errors become
// a 500 with fallback as the message.
func (h HandlerSet) fail(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, envelope{Message: verr.Message})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, envelope{Message: "Email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, envelope{Message: "Invalid credentials"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", middleware.GetRequestID(c)).Msg(fallback)
		resp := envelope{Message: fallback}
		if h.cfg.IsDevelopment() {
			resp.Error = err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}
