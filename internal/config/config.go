package config

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dsolodov/ecom-store/internal/models"
)

type Config struct {
	PORT    string
	APP_ENV string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	REDIS_ADDR     string
	REDIS_PASSWORD string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	KAFKA_ADDRESS string

	ACCESS_TOKEN_SECRET  string
	REFRESH_TOKEN_SECRET string

	CLOUDINARY_CLOUD_NAME string
	CLOUDINARY_API_KEY    string
	CLOUDINARY_API_SECRET string

	LOG_LEVEL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:                  getenvDefault("PORT", "8080"),
		APP_ENV:               getenvDefault("APP_ENV", "development"),
		DB_HOST:               os.Getenv("DB_HOST"),
		DB_PORT:               os.Getenv("DB_PORT"),
		DB_USER:               os.Getenv("DB_USER"),
		DB_PASSWORD:           os.Getenv("DB_PASSWORD"),
		DB_NAME:               os.Getenv("DB_NAME"),
		REDIS_ADDR:            os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD:        os.Getenv("REDIS_PASSWORD"),
		ES_URL:                os.Getenv("ES_URL"),
		ES_USER:               os.Getenv("ES_USER"),
		ES_PASSWORD:           os.Getenv("ES_PASSWORD"),
		KAFKA_ADDRESS:         os.Getenv("KAFKA_ADDRESS"),
		ACCESS_TOKEN_SECRET:   os.Getenv("ACCESS_TOKEN_SECRET"),
		REFRESH_TOKEN_SECRET:  os.Getenv("REFRESH_TOKEN_SECRET"),
		CLOUDINARY_CLOUD_NAME: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CLOUDINARY_API_KEY:    os.Getenv("CLOUDINARY_API_KEY"),
		CLOUDINARY_API_SECRET: os.Getenv("CLOUDINARY_API_SECRET"),
		LOG_LEVEL:             getenvDefault("LOG_LEVEL", "info"),
	}

	if config.ACCESS_TOKEN_SECRET == "" || config.REFRESH_TOKEN_SECRET == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}

	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.APP_ENV == "production"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB(configuration *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.CartItem{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func InitRedis(ctx context.Context, configuration *Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     configuration.REDIS_ADDR,
		Password: configuration.REDIS_PASSWORD,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
