package handlers

import (
	"propverse/internal/apperr"
	"propverse/internal/middleware"
	"propverse/internal/services"
	"propverse/internal/validation"
	"propverse/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	guard       fiber.Handler
	validate    *validation.Validator
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. guard protects /auth/me.
func NewAuthHandler(authService *services.AuthService, guard fiber.Handler, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		guard:       guard,
		validate:    validation.New(),
		logger:      log,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", h.guard, h.HandleMe)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, err)
	}

	user, token, err := h.authService.Register(input)
	if err != nil {
		logger.FromCtx(c, h.logger).Info("registration rejected", zap.Error(err))
		return apperr.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// LoginRequest represents the request body for login. Username is an email
// address or a phone number.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return apperr.Respond(c, err)
	}

	user, token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		logger.FromCtx(c, h.logger).Info("login failed", zap.Error(err))
		return apperr.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// HandleMe returns the authenticated principal.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"error": false,
		"user":  middleware.CurrentUser(c),
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return apperr.Respond(c, apperr.Validation("Invalid request body", map[string]string{"body": err.Error()}))
}
