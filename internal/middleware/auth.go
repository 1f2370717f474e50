package middleware

import (
	"context"
	"strings"

	"letter-log-system/internal/apperr"
	"letter-log-system/internal/model"
	"letter-log-system/internal/util"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "userID"
	localUser   = "user"
	localClaims = "claims"
)

// Authenticator resolves a bearer token to its claims and current user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*util.Claims, *model.User, error)
}

func Auth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Authentication("missing authorization token")
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return apperr.Authentication("invalid authorization header")
		}

		claims, user, err := a.Authenticate(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			return err
		}

		SetUser(c, claims, user)
		return c.Next()
	}
}

// AdminOnly must run after Auth; the role comes from the freshly loaded user,
// so a demotion takes effect on the next request.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.Authentication("missing authorization token")
		}
		if !user.IsAdmin() {
			return apperr.Forbidden("admin access required")
		}
		return c.Next()
	}
}

func SetUser(c *fiber.Ctx, claims *util.Claims, user *model.User) {
	c.Locals(localClaims, claims)
	c.Locals(localUser, user)
	c.Locals(localUserID, user.ID)
}

func CurrentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(localUser).(*model.User)
	return user
}

func CurrentClaims(c *fiber.Ctx) *util.Claims {
	claims, _ := c.Locals(localClaims).(*util.Claims)
	return claims
}

// UserID is 0 for unauthenticated requests.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}
