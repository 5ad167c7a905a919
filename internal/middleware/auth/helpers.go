package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/dsolodov/ecom-store/internal/models"
)

func CurrentUser(c echo.Context) (*models.User, bool) {
	user, ok := c.Get("user").(*models.User)
	return user, ok
}
