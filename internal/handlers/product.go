package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dsolodov/ecom-store/internal/cloudinary"
	"github.com/dsolodov/ecom-store/internal/models"
	"github.com/dsolodov/ecom-store/internal/mykafka"
	"github.com/dsolodov/ecom-store/internal/service/search"
	"github.com/dsolodov/ecom-store/internal/util"
)

const featuredCacheKey = "featured_products"

type ProductHandler struct {
	DB       *gorm.DB
	RDB      *redis.Client
	ES       *elasticsearch.Client
	Index    string
	Images   *cloudinary.Client
	Producer *mykafka.Producer
}

func (h *ProductHandler) publish(c echo.Context, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	if err := search.IndexProduct(c.Request().Context(), h.ES, h.Index, p); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	var items []models.Product
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"products": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetFeaturedProducts reads through the redis cache: a hit is returned as the
// cached JSON, a miss goes to the DB and primes the cache.
func (h *ProductHandler) GetFeaturedProducts(c echo.Context) error {
	ctx := c.Request().Context()

	cached, err := h.RDB.Get(ctx, featuredCacheKey).Result()
	if err == nil {
		return c.JSONBlob(http.StatusOK, []byte(cached))
	}
	if !errors.Is(err, redis.Nil) {
		c.Logger().Errorf("featured cache read error: %v", err)
	}

	var featured []models.Product
	if err := h.DB.Where("is_featured = ?", true).Find(&featured).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if len(featured) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "no featured products found"})
	}

	data, err := json.Marshal(featured)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if err := h.RDB.Set(ctx, featuredCacheKey, data, 0).Err(); err != nil {
		c.Logger().Errorf("featured cache write error: %v", err)
	}

	return c.JSONBlob(http.StatusOK, data)
}

func (h *ProductHandler) refreshFeaturedCache(ctx context.Context) error {
	var featured []models.Product
	if err := h.DB.Where("is_featured = ?", true).Find(&featured).Error; err != nil {
		return err
	}
	data, err := json.Marshal(featured)
	if err != nil {
		return err
	}
	return h.RDB.Set(ctx, featuredCacheKey, data, 0).Err()
}

func (h *ProductHandler) GetRecommendedProducts(c echo.Context) error {
	var items []models.Product
	if err := h.DB.Order("RANDOM()").Limit(3).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": items})
}

func (h *ProductHandler) GetProductsByCategory(c echo.Context) error {
	category := c.Param("category")

	var items []models.Product
	if err := h.DB.Where("category = ?", category).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": items})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Category    string  `json:"category"`
		Image       string  `json:"image"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if req.Name == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name and price are required"})
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
	}

	if req.Image != "" && h.Images != nil {
		uploaded, err := h.Images.Upload(c.Request().Context(), req.Image, "products")
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
		prod.Image = uploaded.SecureURL
		prod.ImagePublicID = uploaded.PublicID
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	h.index(c, &prod)
	h.publish(c, map[string]interface{}{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Category    string  `json:"category"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.Price = req.Price
	prod.Category = req.Category

	if err := h.DB.Save(&prod).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	if prod.IsFeatured {
		if err := h.refreshFeaturedCache(c.Request().Context()); err != nil {
			c.Logger().Errorf("featured cache refresh error: %v", err)
		}
	}

	h.index(c, &prod)
	h.publish(c, map[string]interface{}{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

// ToggleFeatured flips the flag and rewrites the featured cache so the public
// listing never serves a stale set.
func (h *ProductHandler) ToggleFeatured(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	prod.IsFeatured = !prod.IsFeatured
	if err := h.DB.Save(&prod).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	if err := h.refreshFeaturedCache(c.Request().Context()); err != nil {
		c.Logger().Errorf("featured cache refresh error: %v", err)
	}

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	// Hosted image removal is best effort: an orphaned asset is not worth
	// failing the delete over.
	if prod.ImagePublicID != "" && h.Images != nil {
		if err := h.Images.Destroy(c.Request().Context(), prod.ImagePublicID); err != nil {
			c.Logger().Errorf("image destroy error: %v", err)
		}
	}

	if err := h.DB.Delete(&prod).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	if h.ES != nil {
		if err := search.DeleteProduct(c.Request().Context(), h.ES, h.Index, prod.ID); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}
	if prod.IsFeatured {
		if err := h.refreshFeaturedCache(c.Request().Context()); err != nil {
			c.Logger().Errorf("featured cache refresh error: %v", err)
		}
	}

	h.publish(c, map[string]interface{}{
		"type":      "product_deleted",
		"productID": prod.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}
