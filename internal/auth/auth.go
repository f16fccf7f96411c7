// Package auth verifies the bearer tokens minted by the hosted identity provider
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carematch/carematch/internal/db/models"
	"github.com/carematch/carematch/internal/types"
)

// Authentication errors
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

const userLocalsKey = "carematch.user"

// Claims are the JWT claims carried by a session token
type Claims struct {
	jwt.RegisteredClaims
	Role models.ProfileRole `json:"role"`
}

// User is the authenticated caller of a request
type User struct {
	ID   string
	Role models.ProfileRole
}

// Verifier validates HS256 session tokens
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for tokens signed with secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses a token and returns the user it identifies
func (v *Verifier) Verify(tokenString string) (*User, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", ErrInvalidToken, claims.Role)
	}
	return &User{ID: claims.Subject, Role: claims.Role}, nil
}

// Sign mints a token for a user. The identity provider does this in production;
// tests and the CLI use it to talk to a local server.
func Sign(secret, userID string, role models.ProfileRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Role: role,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Middleware rejects requests without a valid bearer token and stores the user for handlers
func Middleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			tokenString = ""
		}

		user, err := v.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ErrorResponse{Error: err.Error()})
		}
		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// UserFrom returns the user stored by Middleware
func UserFrom(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(userLocalsKey).(*User)
	return user, ok
}

// RequireRole rejects authenticated users of any other role
func RequireRole(role models.ProfileRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ErrorResponse{Error: ErrMissingToken.Error()})
		}
		if user.Role != role {
			return c.Status(fiber.StatusForbidden).
				JSON(types.ErrorResponse{Error: fmt.Sprintf("this action requires the %s role", role)})
		}
		return c.Next()
	}
}
