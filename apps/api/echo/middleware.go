package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/cadenza-app/cadenza/core/user"
)

// requireRoles lets the request through when the caller holds a role under any
// of the given prefixes.
func requireRoles(rolePrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextHasAnyRole(ctx, rolePrefixes...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return requireRoles(user.RoleAdmin)
}

// staff endpoints are open to admins too
func staffMiddleware() echo.MiddlewareFunc {
	return requireRoles(user.RoleAdmin, user.RoleStaff)
}

func teacherMiddleware() echo.MiddlewareFunc {
	return requireRoles(user.RoleAdmin, user.RoleStaff, user.RoleTeacher)
}

func parentMiddleware() echo.MiddlewareFunc {
	return requireRoles(user.RoleAdmin, user.RoleStaff, user.RoleParent)
}
