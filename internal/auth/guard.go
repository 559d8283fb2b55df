package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apperrors "menuservice/internal/errors"
	"menuservice/internal/logger"
	"menuservice/internal/metrics"
	"menuservice/internal/model"
)

const (
	// DefaultCookieName carries the session token for browser clients.
	DefaultCookieName = "jwt"

	bearerPrefix = "Bearer"

	claimsKey = "auth.claims"
	userKey   = "auth.user"
)

// UserFinder resolves a token subject. It returns an error wrapping
// ErrNotFound when the user does not exist.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// GuardConfig is everything the authorization pipeline needs.
type GuardConfig struct {
	Tokens      *JWTService
	Users       UserFinder
	Revocations RevocationStore
	CookieName  string
	Metrics     *metrics.Metrics
}

// Guard builds the request guards of the authorization pipeline:
// token extraction and verification, subject resolution, freshness,
// then role or ownership policies.
type Guard struct {
	tokens      *JWTService
	users       UserFinder
	revocations RevocationStore
	cookie      string
	metrics     *metrics.Metrics
}

// NewGuard creates a guard from cfg.
func NewGuard(cfg GuardConfig) *Guard {
	cookie := cfg.CookieName
	if cookie == "" {
		cookie = DefaultCookieName
	}
	return &Guard{
		tokens:      cfg.Tokens,
		users:       cfg.Users,
		revocations: cfg.Revocations,
		cookie:      cookie,
		metrics:     cfg.Metrics,
	}
}

// CookieName is the cookie the guard reads the token from.
func (g *Guard) CookieName() string {
	return g.cookie
}

// Authenticate rejects requests without a valid, current token and attaches
// the token's user otherwise.
func (g *Guard) Authenticate() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:       claimsKey,
		TokenLookupFuncs: []middleware.ValuesExtractor{g.extractToken},
		ParseTokenFunc:   g.parseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, apperrors.ErrInvalidToken) {
				g.reject(c, "invalid_token", err)
				return apperrors.InvalidToken()
			}
			g.reject(c, "unauthenticated", err)
			return apperrors.Unauthenticated()
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			user, err := g.resolve(c)
			if err != nil {
				switch {
				case errors.Is(err, apperrors.ErrStaleSubject):
					g.reject(c, "stale_subject", err)
				case errors.Is(err, apperrors.ErrStaleToken):
					g.reject(c, "stale_token", err)
				}
				return err
			}
			c.Set(userKey, user)
			return next(c)
		})
	}
}

// OptionalAuth attaches the user when the request carries a valid, current
// token and lets every request through.
func (g *Guard) OptionalAuth() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:             claimsKey,
		TokenLookupFuncs:       []middleware.ValuesExtractor{g.extractToken},
		ParseTokenFunc:         g.parseToken,
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			if _, ok := c.Get(claimsKey).(*Claims); ok {
				if user, err := g.resolve(c); err == nil {
					c.Set(userKey, user)
				}
			}
			return next(c)
		})
	}
}

// Require enforces policy against the user attached by Authenticate.
func (g *Guard) Require(policy Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c)
			if user == nil {
				g.reject(c, "unauthenticated", nil)
				return apperrors.Unauthenticated()
			}
			var id string
			if policy.kind == policyOwnerOrAdmin {
				id = c.Param(policy.param)
			}
			if err := g.Evaluate(c.Request().Context(), user, policy, id); err != nil {
				if errors.Is(err, apperrors.ErrForbidden) {
					g.reject(c, "forbidden", err)
				}
				return err
			}
			return next(c)
		}
	}
}

// Evaluate checks policy for user. id is the resource id for ownership
// policies and ignored otherwise.
func (g *Guard) Evaluate(ctx context.Context, user *model.User, policy Policy, id string) error {
	switch policy.kind {
	case policyAnyOf:
		if policy.admits(user.Role) {
			return nil
		}
		return apperrors.Forbidden(fmt.Sprintf("You need one of these roles: %s to access this route", policy.roleList()))

	case policyOwnerOrAdmin:
		if user.Role == model.RoleAdmin {
			return nil
		}
		owner, err := policy.owners.OwnerOf(ctx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("Resource not found")
		}
		if err != nil {
			return fmt.Errorf("resolve %s owner: %w", policy.resource, err)
		}
		if owner != user.ID {
			return apperrors.Forbidden("Not authorized to access this resource")
		}
		return nil
	}
	return fmt.Errorf("unknown policy kind %d", policy.kind)
}

// UserFromContext returns the user attached by the guard, or nil.
func UserFromContext(c echo.Context) *model.User {
	user, _ := c.Get(userKey).(*model.User)
	return user
}

// ClaimsFromContext returns the verified token claims, or nil.
func ClaimsFromContext(c echo.Context) *Claims {
	claims, _ := c.Get(claimsKey).(*Claims)
	return claims
}

var errNoToken = errors.New("no token in bearer header or cookie")

// extractToken reads the bearer header and falls back to the cookie only when
// no bearer header is sent, so a bad header token is never rescued by a cookie.
func (g *Guard) extractToken(c echo.Context) ([]string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		if fields := strings.Fields(header); len(fields) == 2 && strings.EqualFold(fields[0], bearerPrefix) {
			return []string{fields[1]}, nil
		}
		return nil, errNoToken
	}
	if cookie, err := c.Cookie(g.cookie); err == nil && cookie.Value != "" {
		return []string{cookie.Value}, nil
	}
	return nil, errNoToken
}

func (g *Guard) parseToken(c echo.Context, raw string) (interface{}, error) {
	claims, err := g.tokens.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	if g.revocations != nil {
		revoked, err := g.revocations.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
		if err == nil && revoked {
			return nil, fmt.Errorf("%w: revoked", apperrors.ErrInvalidToken)
		}
	}
	return claims, nil
}

// resolve loads the token subject and checks the token is not older than
// the user's last password change.
func (g *Guard) resolve(c echo.Context) (*model.User, error) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return nil, apperrors.Unauthenticated()
	}

	user, err := g.users.FindByID(c.Request().Context(), claims.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.StaleSubject()
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}

	if user.ChangedPasswordAfter(claims.Issued(), claims.PasswordStamp) {
		return nil, apperrors.StaleToken()
	}
	return user, nil
}

func (g *Guard) reject(c echo.Context, stage string, cause error) {
	g.metrics.RejectGuard(stage)
	log := logger.FromEcho(c).With("stage", stage, "path", c.Path())
	if cause != nil {
		log = log.With("error", cause.Error())
	}
	log.Debug("request rejected by guard")
}
