package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dsolodov/ecom-store/internal/models"
	"github.com/dsolodov/ecom-store/internal/token"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestServer(t *testing.T) (*echo.Echo, *gorm.DB, *token.Service) {
	t.Helper()

	db := initTestDB(t)
	tokens := token.NewService([]byte("access_secret"), []byte("refresh_secret"))

	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, user)
	}, Protect(db, tokens))
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, Protect(db, tokens), AdminOnly)

	return e, db, tokens
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()

	user := models.User{Name: "A", Email: role + "@x.com", PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func get(e *echo.Echo, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProtectNoCookie(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := get(e, "/protected")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectInvalidToken(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := get(e, "/protected", &http.Cookie{Name: "accessToken", Value: "garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectExpiredToken(t *testing.T) {
	e, db, _ := newTestServer(t)
	user := createUser(t, db, models.RoleCustomer)

	expired := token.NewService([]byte("access_secret"), []byte("refresh_secret"))
	expired.AccessExpiry = -time.Minute
	stale, err := expired.IssueAccess(user.ID)
	require.NoError(t, err)

	rec := get(e, "/protected", &http.Cookie{Name: "accessToken", Value: stale})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "expired")
}

func TestProtectResolvesUser(t *testing.T) {
	e, db, tokens := newTestServer(t)
	user := createUser(t, db, models.RoleCustomer)

	access, err := tokens.IssueAccess(user.ID)
	require.NoError(t, err)

	rec := get(e, "/protected", &http.Cookie{Name: "accessToken", Value: access})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), user.Email)
}

func TestProtectDeletedUser(t *testing.T) {
	e, db, tokens := newTestServer(t)
	user := createUser(t, db, models.RoleCustomer)

	access, err := tokens.IssueAccess(user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)

	rec := get(e, "/protected", &http.Cookie{Name: "accessToken", Value: access})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnly(t *testing.T) {
	e, db, tokens := newTestServer(t)

	customer := createUser(t, db, models.RoleCustomer)
	admin := createUser(t, db, models.RoleAdmin)

	customerToken, err := tokens.IssueAccess(customer.ID)
	require.NoError(t, err)
	adminToken, err := tokens.IssueAccess(admin.ID)
	require.NoError(t, err)

	rec := get(e, "/admin", &http.Cookie{Name: "accessToken", Value: customerToken})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(e, "/admin", &http.Cookie{Name: "accessToken", Value: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
}
