package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dsolodov/ecom-store/internal/models"
	"github.com/dsolodov/ecom-store/internal/mykafka"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.CartItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestHandler(t *testing.T) (*Handler, *models.User, *models.Product) {
	t.Helper()

	db := initTestDB(t)
	user := models.User{Name: "A", Email: "a@x.com", PasswordHash: "x", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&user).Error)

	product := models.Product{Name: "mug", Description: "plain mug", Price: 7, Category: "kitchen"}
	require.NoError(t, db.Create(&product).Error)

	return &Handler{DB: db, Producer: &mykafka.Producer{}}, &user, &product
}

func doJSONRequest(t *testing.T, user *models.User, method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("user", user)
	return rec, c
}

func TestAddToCart(t *testing.T) {
	h, user, product := newTestHandler(t)

	rec, c := doJSONRequest(t, user, http.MethodPost, "/api/cart", map[string]uint{"product_id": product.ID})
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.EqualValues(t, 1, item.Quantity)

	// adding the same product again increments, no second line
	rec, c = doJSONRequest(t, user, http.MethodPost, "/api/cart", map[string]uint{"product_id": product.ID})
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.EqualValues(t, 2, item.Quantity)

	var count int64
	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h, user, _ := newTestHandler(t)

	rec, c := doJSONRequest(t, user, http.MethodPost, "/api/cart", map[string]uint{"product_id": 999})
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCart(t *testing.T) {
	h, user, product := newTestHandler(t)

	require.NoError(t, h.DB.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 3}).Error)

	rec, c := doJSONRequest(t, user, http.MethodGet, "/api/cart", nil)
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []struct {
		models.Product
		Quantity uint `json:"quantity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, product.Name, items[0].Name)
	require.EqualValues(t, 3, items[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	h, user, product := newTestHandler(t)
	require.NoError(t, h.DB.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}).Error)

	rec, c := doJSONRequest(t, user, http.MethodPut, "/api/cart/:id", map[string]uint{"quantity": 5})
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(product.ID), 10))
	require.NoError(t, h.UpdateQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, h.DB.Where("user_id = ? AND product_id = ?", user.ID, product.ID).First(&item).Error)
	require.EqualValues(t, 5, item.Quantity)
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	h, user, product := newTestHandler(t)
	require.NoError(t, h.DB.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}).Error)

	rec, c := doJSONRequest(t, user, http.MethodPut, "/api/cart/:id", map[string]uint{"quantity": 0})
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(product.ID), 10))
	require.NoError(t, h.UpdateQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	h, user, product := newTestHandler(t)

	rec, c := doJSONRequest(t, user, http.MethodPut, "/api/cart/:id", map[string]uint{"quantity": 5})
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(product.ID), 10))
	require.NoError(t, h.UpdateQuantity(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFromCart(t *testing.T) {
	h, user, product := newTestHandler(t)

	other := models.Product{Name: "plate", Description: "flat plate", Price: 4, Category: "kitchen"}
	require.NoError(t, h.DB.Create(&other).Error)
	require.NoError(t, h.DB.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}).Error)
	require.NoError(t, h.DB.Create(&models.CartItem{UserID: user.ID, ProductID: other.ID, Quantity: 1}).Error)

	// one product
	rec, c := doJSONRequest(t, user, http.MethodDelete, "/api/cart", map[string]uint{"product_id": product.ID})
	require.NoError(t, h.RemoveFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// no body clears the rest
	rec, c = doJSONRequest(t, user, http.MethodDelete, "/api/cart", nil)
	require.NoError(t, h.RemoveFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}
