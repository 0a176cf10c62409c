package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/api/internal/middleware"
)

// Me returns the caller resolved by the auth middleware.
func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, errors.New("current user missing from context"), "Failed to get profile")
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: userData{User: user.Public()}})
}
