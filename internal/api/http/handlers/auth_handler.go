package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/calculation-service/internal/api/dto"
	"github.com/spec-kit/calculation-service/internal/auth"
	"github.com/spec-kit/calculation-service/internal/service"
	apperrors "github.com/spec-kit/calculation-service/pkg/util"
)

// AuthHandler exposes registration, login and token lifecycle endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("first_name, last_name, email, username, password required", nil)
	}
	if len(req.Password) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return apperrors.NewValidationError("passwords do not match", nil)
	}

	user, err := h.auth.Register(c.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /auth/login (JSON body).
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.login(c, req)
}

// Token handles POST /auth/token (form encoded), the flow used by the
// server-rendered login page.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	req := dto.LoginRequest{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}
	return h.login(c, req)
}

func (h *AuthHandler) login(c *fiber.Ctx, req dto.LoginRequest) error {
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	user, pair, err := h.auth.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserInactive) {
			return apperrors.NewUnauthorized("invalid username or password")
		}
		return err
	}

	// cookie lets the server-rendered dashboard pages authenticate
	c.Cookie(&fiber.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    pair.AccessToken,
		Expires:  pair.AccessExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": tokenResponse(pair),
		},
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RefreshToken == "" {
		return apperrors.NewValidationError("refresh_token required", nil)
	}

	pair, err := h.auth.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return mapAuthError(err)
	}
	return c.JSON(fiber.Map{"data": tokenResponse(pair)})
}

// Logout handles POST /auth/logout. The access token comes from the
// Authorization header, the refresh token optionally from the body.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	accessToken, ok := bearerToken(c)
	if !ok {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	var req dto.LogoutRequest
	_ = c.BodyParser(&req)

	if err := h.auth.Logout(c.Context(), accessToken, req.RefreshToken); err != nil {
		return mapAuthError(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Path:     "/",
	})
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func tokenResponse(pair *service.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "bearer",
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func mapAuthError(err error) error {
	if auth.IsUnauthorized(err) {
		return apperrors.NewUnauthorized(err.Error())
	}
	if errors.Is(err, auth.ErrTokenCreation) {
		return apperrors.NewInternalError(err)
	}
	return err
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
