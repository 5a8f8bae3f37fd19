package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/calculation-service/internal/domain"
	apperrors "github.com/spec-kit/calculation-service/pkg/util"
)

const principalKey = "auth_principal"

// AccessTokenCookie is the cookie consulted by browser page routes.
const AccessTokenCookie = "access_token"

// Middleware validates bearer tokens and loads the authenticated user.
type Middleware struct {
	resolver *Resolver
}

// NewMiddleware constructs middleware around a resolver.
func NewMiddleware(resolver *Resolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle enforces authentication for protected API routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	user, err := m.resolver.Resolve(c.Context(), parts[1])
	if err != nil {
		if IsUnauthorized(err) {
			return apperrors.NewUnauthorized(err.Error())
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, user)
	return c.Next()
}

// HandlePage authenticates browser page routes from the access token
// cookie, redirecting anonymous visitors to the login page instead of
// returning a JSON error.
func (m *Middleware) HandlePage(c *fiber.Ctx) error {
	token := c.Cookies(AccessTokenCookie)
	if token == "" {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	user, err := m.resolver.Resolve(c.Context(), token)
	if err != nil {
		if IsUnauthorized(err) {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, user)
	return c.Next()
}

// UserFromContext retrieves the authenticated user set by the middleware.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
