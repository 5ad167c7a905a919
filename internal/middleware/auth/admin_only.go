package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dsolodov/ecom-store/internal/models"
)

// AdminOnly must run after Protect.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - No user in context")
		}
		if user.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Access Denied - Admin Only")
		}
		return next(c)
	}
}
