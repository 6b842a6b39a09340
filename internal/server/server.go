package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mattress-store/internal/catalog"
	"mattress-store/internal/config"
	"mattress-store/internal/database"
	custommiddleware "mattress-store/internal/middleware"
	"mattress-store/internal/repository"
	"mattress-store/internal/service"
	"mattress-store/internal/storage"
	"mattress-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires repositories, services and handlers onto a chi router.
// Redis is only connected when admin rate limiting is enabled.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, bucket *storage.Bucket) *Server {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	// Product images, at the URLs the bucket hands out
	storagePrefix := "/storage/" + cfg.Storage.Bucket
	router.Handle(storagePrefix+"/*", http.StripPrefix(storagePrefix, bucket.Handler()))

	// Initialize repositories
	productRepo := repository.NewProductRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())
	settingsRepo := repository.NewSettingsRepository(db.DB())

	// Initialize services
	loader := catalog.NewLoader(productRepo, categoryRepo, logger)
	productService := service.NewProductService(productRepo, bucket, logger)
	categoryService := service.NewCategoryService(categoryRepo)
	settingsService := service.NewSettingsService(settingsRepo)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(loader, categoryService, settingsService, logger)
	adminHandler := transport.NewAdminHandler(productService, categoryService, settingsService, logger)

	adminGuards := []func(http.Handler) http.Handler{
		custommiddleware.AuthMiddleware(cfg.Auth.JWTSecret, logger),
		custommiddleware.RequireRole(cfg.Auth.AdminRoles, logger),
	}

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		adminGuards = append(adminGuards, custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate_limit:admin",
		}, logger))
	}

	// Register routes
	catalogHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router, adminGuards...)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

// CheckRedis pings the rate limit store. A failure is not fatal because
// the limiter lets requests through while redis is down.
func (s *Server) CheckRedis(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Ping(ctx).Err()
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
