package middleware

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// CasbinMiddleware validates the JWT and checks role permissions for
// the request path. The username claim is what downstream handlers use
// as the trading identity.
func CasbinMiddleware(enforcer *casbin.Enforcer, jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing Authorization header"})
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})

		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}

		// Casbin subject is the role; policies are per-role, not
		// per-user.
		role, _ := claims["role"].(string)
		username, _ := claims["username"].(string)
		email, _ := claims["email"].(string)

		c.Locals("id", claims["id"])
		c.Locals("email", email)
		c.Locals("username", username)
		c.Locals("role", role)

		obj := c.Path()
		act := c.Method()

		permit, err := enforcer.Enforce(role, obj, act)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Permission check failed"})
		}

		if permit {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":  "Permission denied",
			"detail": fmt.Sprintf("Role %s is not allowed to %s %s", role, act, obj),
		})
	}
}
