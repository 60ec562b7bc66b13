package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/user"
)

// role groups used by the routes
var (
	adminOnly   = []string{user.RoleAdmin}
	staff       = []string{user.RoleAdmin, user.RoleTeacher}
	bursary     = []string{user.RoleAdmin, user.RoleAccountant}
	officeStaff = []string{user.RoleAdmin, user.RoleTeacher, user.RoleAccountant}
)

// roleMiddleware lets through users having one of roles.
// The role is read from the token then confirmed against the stored user.
func roleMiddleware(svc user.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !hasAnyRole(claims.Role, roles) {
				return errHttpForbidden
			}
			usr, err := getContextUser(ctx, svc, claims)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			if !usr.HasRole(roles...) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func hasAnyRole(role string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
