package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/unipath-io/unipath-api/internal/utils"
)

// JWTProtected validates bearer tokens signed with the shared HMAC secret
// and stores the subject and role in request locals for downstream
// handlers and the RBAC check.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get("Authorization"))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "missing or malformed authorization header")
		}

		claims, err := parseClaims(secret, raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if userID, ok := subjectID(claims); ok {
			c.Locals("user_id", userID)
		}
		if role := subjectRole(claims); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func parseClaims(secret, raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return claims, nil
}

// subjectID resolves the user identifier from the usual claim spots.
// Numeric and string-encoded subjects are both accepted.
func subjectID(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			if v >= 0 {
				return uint(v), true
			}
		case int:
			if v >= 0 {
				return uint(v), true
			}
		case string:
			if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
				return uint(parsed), true
			}
		}
	}
	return 0, false
}

func subjectRole(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if role := normalizeRoleValue(v); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				if role := normalizeRoleValue(item); role != "" {
					return role
				}
			}
		}
	}
	return ""
}
