package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dsolodov/ecom-store/internal/cloudinary"
	"github.com/dsolodov/ecom-store/internal/config"
	"github.com/dsolodov/ecom-store/internal/es"
	"github.com/dsolodov/ecom-store/internal/handlers"
	"github.com/dsolodov/ecom-store/internal/handlers/cart"
	"github.com/dsolodov/ecom-store/internal/logging"
	"github.com/dsolodov/ecom-store/internal/mykafka"
	"github.com/dsolodov/ecom-store/internal/session"
	"github.com/dsolodov/ecom-store/internal/token"
	httpserver "github.com/dsolodov/ecom-store/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	ctx := logging.IntoContext(context.Background(), logger)
	rdb, err := config.InitRedis(ctx, configuration)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatalf("kafka init error: %v", err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}

	tokens := token.NewService(
		[]byte(configuration.ACCESS_TOKEN_SECRET),
		[]byte(configuration.REFRESH_TOKEN_SECRET),
	)
	sessions := session.NewCache(rdb)
	images := cloudinary.NewClient(
		configuration.CLOUDINARY_CLOUD_NAME,
		configuration.CLOUDINARY_API_KEY,
		configuration.CLOUDINARY_API_SECRET,
	)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:     db,
		Tokens: tokens,
		AuthHandler: &handlers.AuthHandler{
			DB:       db,
			Tokens:   tokens,
			Sessions: sessions,
			Producer: prod,
			Secure:   configuration.IsProduction(),
		},
		ProductHandler: &handlers.ProductHandler{
			DB:       db,
			RDB:      rdb,
			ES:       esClient,
			Index:    "product",
			Images:   images,
			Producer: prod,
		},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: "product"},
		CartHandler:   &cart.Handler{DB: db, Producer: prod},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := rdb.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
