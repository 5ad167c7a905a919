package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dsolodov/ecom-store/internal/hash"
	"github.com/dsolodov/ecom-store/internal/models"
	"github.com/dsolodov/ecom-store/internal/mykafka"
	"github.com/dsolodov/ecom-store/internal/session"
	"github.com/dsolodov/ecom-store/internal/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Sessions *session.Cache
	Producer *mykafka.Producer

	// Secure marks the auth cookies Secure; enabled in production.
	Secure bool
}

func CreateCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func clearCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) setTokenCookies(c echo.Context, access, refresh string) {
	c.SetCookie(CreateCookie("accessToken", access, h.Tokens.AccessExpiry, h.Secure))
	c.SetCookie(CreateCookie("refreshToken", refresh, h.Tokens.RefreshExpiry, h.Secure))
}

func userResponse(user *models.User) echo.Map {
	return echo.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	}
}

func (h *AuthHandler) publish(c echo.Context, userID uint, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(userID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "All fields are required"})
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "User Already Exists"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	passwordHash, err := hash.Password(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleCustomer,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	access, refresh, err := h.Tokens.Issue(user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if err := h.Sessions.Put(c.Request().Context(), user.ID, refresh); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	h.setTokenCookies(c, access, refresh)

	h.publish(c, user.ID, map[string]interface{}{
		"type":   "user_signed_up",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"user":    userResponse(&user),
		"message": "Successfully signed up",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "All fields are required"})
	}

	// Unknown user and wrong password answer the same, so the endpoint
	// cannot be used to enumerate accounts.
	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid Credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid Credentials"})
	}

	access, refresh, err := h.Tokens.Issue(user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if err := h.Sessions.Put(c.Request().Context(), user.ID, refresh); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	h.setTokenCookies(c, access, refresh)

	h.publish(c, user.ID, map[string]interface{}{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"user":    userResponse(&user),
		"message": "Successfully Logged In",
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	refreshCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Tokens Not Found"})
	}

	userID, err := h.Tokens.VerifyRefresh(refreshCookie.Value)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid Token"})
	}

	if err := h.Sessions.Delete(c.Request().Context(), userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	c.SetCookie(clearCookie("accessToken", h.Secure))
	c.SetCookie(clearCookie("refreshToken", h.Secure))

	h.publish(c, userID, map[string]interface{}{
		"type":   "user_logged_out",
		"userID": userID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Logout Successfully"})
}

// Refresh re-issues the access token only. The presented refresh token must
// match the one currently cached for the user: a token superseded by a later
// login parses fine but no longer matches and is rejected.
func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No refresh token found"})
	}

	userID, err := h.Tokens.VerifyRefresh(refreshCookie.Value)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid Token"})
	}

	stored, err := h.Sessions.Get(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid Token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if stored != refreshCookie.Value {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid Token"})
	}

	access, err := h.Tokens.IssueAccess(userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	c.SetCookie(CreateCookie("accessToken", access, h.Tokens.AccessExpiry, h.Secure))

	return c.JSON(http.StatusOK, echo.Map{"message": "Token refreshed successfully"})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "no user in context"})
	}
	return c.JSON(http.StatusOK, userResponse(user))
}
