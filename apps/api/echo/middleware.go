package echoapi

import (
	"github.com/labstack/echo/v4"
)

// requireClaims lets the request through when the JWT claims satisfy allowed.
func requireClaims(allowed func(claims Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if !allowed(claims) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// adminMiddleware admits admins holding any of roles (any admin when roles is empty).
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return requireClaims(func(claims Claims) bool { return claims.IsAdmin && claims.hasAnyRole(roles) })
}

func facultyMiddleware() echo.MiddlewareFunc {
	return requireClaims(func(claims Claims) bool { return claims.IsFaculty })
}
