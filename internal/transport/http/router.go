package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dsolodov/ecom-store/internal/handlers"
	"github.com/dsolodov/ecom-store/internal/handlers/cart"
	authmw "github.com/dsolodov/ecom-store/internal/middleware/auth"
	"github.com/dsolodov/ecom-store/internal/token"
)

type Deps struct {
	DB             *gorm.DB
	Tokens         *token.Service
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
	CartHandler    *cart.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	protect := authmw.Protect(d.DB, d.Tokens)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.POST("/token", d.AuthHandler.Refresh)
	auth.GET("/profile", d.AuthHandler.Profile, protect)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts, protect, authmw.AdminOnly)
	products.GET("/featured-products", d.ProductHandler.GetFeaturedProducts)
	products.GET("/recommended-products", d.ProductHandler.GetRecommendedProducts)
	products.GET("/category/:category", d.ProductHandler.GetProductsByCategory)
	products.GET("/search", d.SearchHandler.Search)
	products.POST("/create-product", d.ProductHandler.CreateProduct, protect, authmw.AdminOnly)
	products.PUT("/:id", d.ProductHandler.UpdateProduct, protect, authmw.AdminOnly)
	products.PATCH("/:id", d.ProductHandler.ToggleFeatured, protect, authmw.AdminOnly)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, protect, authmw.AdminOnly)

	cartGroup := api.Group("/cart", protect)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.PUT("/:id", d.CartHandler.UpdateQuantity)
	cartGroup.DELETE("", d.CartHandler.RemoveFromCart)
}
