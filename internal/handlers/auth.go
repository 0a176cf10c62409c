package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/api/internal/models"
	"volunteerhub/api/internal/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userData struct {
	User models.PublicUser `json:"user"`
}

type loginData struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &service.ValidationError{Message: "Please provide name, email and password"}, "Registration failed")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err, "Registration failed")
		return
	}

	respond(c, http.StatusCreated, "User registered successfully", userData{User: user.Public()})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &service.ValidationError{Message: "Please provide email and password"}, "Login failed")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err, "Login failed")
		return
	}

	respond(c, http.StatusOK, "Login successful", loginData{
		User:  result.User.Public(),
		Token: result.Token,
	})
}
