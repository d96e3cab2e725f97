package handler

import (
	"errors"
	"net/http"

	"docbrain-go/internal/service"
	"docbrain-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues admin tokens.
type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: invalid request payload: %v", err)
		fail(c, http.StatusBadRequest, "Username and password are required")
		return
	}
	res, err := h.authService.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrAuthDisabled):
		fail(c, http.StatusServiceUnavailable, "Authentication is not configured")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Invalid username or password")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": res.Token, "expiresAt": res.ExpiresAt})
}
