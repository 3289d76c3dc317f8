package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/companyim/talenta-api/internal/models"
	"github.com/companyim/talenta-api/internal/service"
	appErrors "github.com/companyim/talenta-api/pkg/errors"
	"github.com/companyim/talenta-api/pkg/response"
)

// AuthHandler exposes the admin authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate as admin
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Admin password"
// @Success 200 {object} response.Envelope
// @Router /auth/admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Logout godoc
// @Summary End the admin session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// Tokens are stateless; the client discards its copy.
	response.JSON(c, http.StatusOK, gin.H{"message": "logged out"}, nil)
}

// Check godoc
// @Summary Verify the presented admin token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/admin/check [get]
func (h *AuthHandler) Check(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"authenticated": true}, nil)
}
