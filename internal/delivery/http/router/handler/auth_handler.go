// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"passguard/internal/delivery/http/response"
	"passguard/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for account and credential handlers.
type AuthHandler struct {
	uc     usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		logger: logger,
	}
}

// Register handles the account registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	var input *usecase.RegisterInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", "Invalid registration input")
	}

	output, err := h.uc.Register(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, output.User, "User registered successfully")
}

// Login handles the authentication request.
func (h *AuthHandler) Login(c echo.Context) error {
	var input *usecase.AuthenticateInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", "Invalid login input")
	}

	output, err := h.uc.Authenticate(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output.User, "Login successful")
}

// ChangePassword handles the password rotation request.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid user id")
	}

	var input *usecase.ChangePasswordInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password change input")
	}
	if err := c.Validate(input); err != nil {
		return response.BadRequest(c, "VALIDATION_FAILED", "Invalid password change input")
	}

	changed, err := h.uc.ChangePassword(c.Request().Context(), userID, input)
	if err != nil {
		return errors.WithStack(err)
	}
	if !changed {
		// Unknown account and wrong old password answer identically.
		return response.Unauthorized(c, "PASSWORD_CHANGE_REJECTED", "Password change rejected")
	}

	return response.Success(c, http.StatusOK, nil, "Password changed successfully")
}

// Deactivate handles the account deactivation request.
func (h *AuthHandler) Deactivate(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid user id")
	}

	deactivated, err := h.uc.Deactivate(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}
	if !deactivated {
		return response.NotFound(c, "USER_NOT_FOUND", "User not found")
	}

	return response.Success(c, http.StatusOK, nil, "User deactivated successfully")
}

// GetProfile handles the request for an account's public profile.
func (h *AuthHandler) GetProfile(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid user id")
	}

	profile, err := h.uc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, profile, "Profile retrieved successfully")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
