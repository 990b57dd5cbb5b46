package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mediavault/internal/config"
	"mediavault/internal/database"
	"mediavault/internal/middleware"
	"mediavault/internal/modules/assets"
	"mediavault/internal/modules/tags"
	"mediavault/internal/repository"
	"mediavault/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := buildLogger(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.MediaDir, logger)
	if err != nil {
		log.Fatal(err)
	}

	assetService := assets.NewService(db, store, logger)
	assetHandler := assets.NewHandler(assetService, logger, cfg.RequestTimeout)
	tagHandler := tags.NewHandler(tags.NewService(repository.NewTagRepository(db)), logger)

	if cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.ErrorLogger(logger))
	r.Use(middleware.CORS())
	r.Use(limitBodySize(cfg.MaxUploadSize))

	api := r.Group("/api")
	{
		assetHandler.RegisterRoutes(api)
		tagHandler.RegisterRoutes(api)
	}

	r.Static("/media", store.Root())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	logger.Info("starting server",
		zap.String("addr", cfg.Addr),
		zap.String("media_dir", store.Root()))
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}

func buildLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func limitBodySize(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
