package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/stitchweb/stitch/internal/domain"
)

var tracer = otel.Tracer("auth")

// SessionResolver maps a session cookie back to its principal.
type SessionResolver interface {
	Resolve(ctx context.Context, session string) (domain.Principal, error)
}

// TokenValidator checks the csrf_token mutating forms echo back.
type TokenValidator interface {
	Validate(session, token string) bool
}

type AuthMiddleware struct {
	sessions SessionResolver
	csrf     TokenValidator
}

func NewAuthMiddleware(sessions SessionResolver, csrf TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		csrf:     csrf,
	}
}

// IdentifySession resolves the session cookie into a principal and
// stores it on the request context. An absent or stale cookie leaves
// the anonymous principal in place; it never fails the request.
func (m *AuthMiddleware) IdentifySession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifySession")
		defer span.End()

		principal := domain.Principal{}
		if cookie, err := c.Cookie(domain.SessionCookieName); err == nil && cookie.Value != "" {
			resolved, err := m.sessions.Resolve(ctx, cookie.Value)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifySession: session lookup failed"))
			} else {
				principal = resolved
			}
		}

		if !principal.Anonymous() {
			span.SetAttributes(attribute.String("Nickname", principal.Nickname))
		}

		ctx = context.WithValue(ctx, domain.PrincipalCtxKey, principal)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// VerifyCSRF rejects authenticated mutating requests whose csrf_token
// does not match the session's. Anonymous mutations (login, register)
// have no session to forge yet and pass through.
func (m *AuthMiddleware) VerifyCSRF(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			return next(c)
		}

		principal := PrincipalFor(c.Request().Context())
		if principal.Anonymous() {
			return next(c)
		}

		if !m.csrf.Validate(principal.Session, c.FormValue("csrf_token")) {
			return c.HTML(http.StatusForbidden, "<p>invalid csrf token</p>")
		}
		return next(c)
	}
}

// PrincipalFor returns the principal the identify middleware resolved,
// or the anonymous principal.
func PrincipalFor(ctx context.Context) domain.Principal {
	if p, ok := ctx.Value(domain.PrincipalCtxKey).(domain.Principal); ok {
		return p
	}
	return domain.Principal{}
}
