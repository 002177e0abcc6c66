package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"incorpapi/internal/model"
)

// RequesterLocalKey holds the authenticated model.Requester in Fiber locals.
const RequesterLocalKey = "requester"

// Claims are the bearer token claims this API relies on. Tokens are issued by
// the identity provider, never here.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig configures token verification.
type AuthConfig struct {
	Secret    []byte
	Issuer    string
	AdminRole string
}

// Auth verifies an HS256 bearer token and stores the requester in locals.
// Requests without a valid token are rejected with 401.
func Auth(cfg AuthConfig) fiber.Handler {
	if cfg.AdminRole == "" {
		cfg.AdminRole = "admin"
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims := &Claims{}
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return cfg.Secret, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return fiber.NewError(fiber.StatusUnauthorized, "token expired")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		if claims.Subject == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token has no subject")
		}

		c.Locals(RequesterLocalKey, model.Requester{
			UserID: claims.Subject,
			Email:  model.NormalizeEmail(claims.Email),
			Admin:  claims.Role == cfg.AdminRole,
		})
		return c.Next()
	}
}

// RequesterFrom returns the requester stored by Auth.
func RequesterFrom(c *fiber.Ctx) (model.Requester, bool) {
	r, ok := c.Locals(RequesterLocalKey).(model.Requester)
	return r, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
