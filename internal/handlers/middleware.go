package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	localUserID   = "user_id"
	localUserRole = "role_type"
)

// AuthClaims is the token payload issued on login.
type AuthClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role_type"`
	jwt.RegisteredClaims
}

// JWTAuth guards the REST surface. The duplex endpoints identify users from
// the connect URL instead and stay outside this middleware.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		claims := &AuthClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid || claims.UserID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localUserRole, claims.Role)
		return c.Next()
	}
}

// callerID reads the authenticated user id set by JWTAuth.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
