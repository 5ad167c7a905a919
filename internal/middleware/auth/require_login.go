package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dsolodov/ecom-store/internal/models"
	"github.com/dsolodov/ecom-store/internal/token"
)

// Protect verifies the access-token cookie and attaches the resolved user to
// the request context. Handlers behind it can assume CurrentUser succeeds.
func Protect(db *gorm.DB, tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("accessToken")
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - No access token provided")
			}

			userID, err := tokens.VerifyAccess(cookie.Value)
			if err != nil {
				if errors.Is(err, token.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - Access token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - Invalid access token")
			}

			var user models.User
			if err := db.First(&user, userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - User not found")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}

			c.Set("user", &user)
			return next(c)
		}
	}
}
