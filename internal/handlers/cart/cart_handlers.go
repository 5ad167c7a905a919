package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/dsolodov/ecom-store/internal/middleware/auth"
	"github.com/dsolodov/ecom-store/internal/models"
	"github.com/dsolodov/ecom-store/internal/mykafka"
)

type Handler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

type cartProduct struct {
	models.Product
	Quantity uint `json:"quantity"`
}

func (h *Handler) publish(c echo.Context, userID uint, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(userID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// GetCart returns the caller's cart lines joined with their products.
func (h *Handler) GetCart(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - No user in context")
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", user.ID).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	quantities := make(map[uint]uint, len(items))
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		quantities[it.ProductID] = it.Quantity
		ids = append(ids, it.ProductID)
	}

	products := []models.Product{}
	if len(ids) > 0 {
		if err := h.DB.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
	}

	out := make([]cartProduct, 0, len(products))
	for _, p := range products {
		out = append(out, cartProduct{Product: p, Quantity: quantities[p.ID]})
	}

	return c.JSON(http.StatusOK, out)
}

func (h *Handler) AddToCart(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - No user in context")
	}

	var req struct {
		ProductID uint `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "product_id is required"})
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", user.ID, req.ProductID).First(&item)
	switch {
	case tx.Error == nil:
		item.Quantity += 1
		if err := h.DB.Save(&item).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		item = models.CartItem{UserID: user.ID, ProductID: req.ProductID, Quantity: 1}
		if err := h.DB.Create(&item).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": tx.Error.Error()})
	}

	h.publish(c, user.ID, map[string]interface{}{
		"type":      "cart_item_added",
		"userID":    user.ID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})

	return c.JSON(http.StatusOK, item)
}

// UpdateQuantity sets the quantity for one cart line; zero removes the line.
func (h *Handler) UpdateQuantity(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - No user in context")
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	var item models.CartItem
	if err := h.DB.Where("user_id = ? AND product_id = ?", user.ID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	if req.Quantity == 0 {
		if err := h.DB.Delete(&item).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
	} else {
		item.Quantity = req.Quantity
		if err := h.DB.Save(&item).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
	}

	h.publish(c, user.ID, map[string]interface{}{
		"type":      "cart_quantity_updated",
		"userID":    user.ID,
		"productID": productID,
		"quantity":  req.Quantity,
	})

	return h.respondWithCart(c, user.ID)
}

// RemoveFromCart deletes one product's line when product_id is present, or
// clears the whole cart when it is not.
func (h *Handler) RemoveFromCart(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized - No user in context")
	}

	var req struct {
		ProductID uint `json:"product_id"`
	}
	_ = c.Bind(&req)

	q := h.DB.Where("user_id = ?", user.ID)
	if req.ProductID != 0 {
		q = q.Where("product_id = ?", req.ProductID)
	}
	if err := q.Delete(&models.CartItem{}).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	h.publish(c, user.ID, map[string]interface{}{
		"type":      "cart_item_removed",
		"userID":    user.ID,
		"productID": req.ProductID,
	})

	return h.respondWithCart(c, user.ID)
}

func (h *Handler) respondWithCart(c echo.Context, userID uint) error {
	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, items)
}
