package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/models"
	"github.com/hopeforeverybody/chat-service/internal/store"
)

// AuthHandler issues and validates account credentials.
type AuthHandler struct {
	users     *store.UserStore
	jwtSecret string
	jwtExpiry time.Duration
	log       *slog.Logger
}

func NewAuthHandler(users *store.UserStore, jwtSecret string, expiryHours int, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		jwtExpiry: time.Duration(expiryHours) * time.Hour,
		log:       log,
	}
}

type registerRequest struct {
	Useremail string         `json:"useremail"`
	Password  string         `json:"password"`
	RoleType  string         `json:"role_type"`
	Details   datatypes.JSON `json:"details"`
}

type loginRequest struct {
	Useremail string `json:"useremail"`
	Password  string `json:"password"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidArg("invalid request body"))
	}
	if req.Useremail == "" || req.Password == "" || req.RoleType == "" {
		return respondError(c, apperr.InvalidArg("useremail, password and role_type are required"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}
	user := &models.User{
		Useremail:    req.Useremail,
		PasswordHash: string(hash),
		RoleType:     req.RoleType,
		Details:      req.Details,
	}
	if err := h.users.CreateUser(c.Context(), user); err != nil {
		return respondError(c, err)
	}

	h.log.Info("user registered", "user", user.UUID, "role", user.RoleType)
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.InvalidArg("invalid request body"))
	}

	user, err := h.users.UserByEmail(c.Context(), req.Useremail)
	if err != nil {
		return respondError(c, apperr.ErrBadCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return respondError(c, apperr.ErrBadCredentials)
	}

	now := time.Now()
	claims := AuthClaims{
		UserID: user.UUID,
		Role:   user.RoleType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.jwtExpiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}
