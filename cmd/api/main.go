package main

import (
	"fmt"
	"log"

	"postal-prediction-api/config"
	"postal-prediction-api/handlers"
	"postal-prediction-api/middleware"
	"postal-prediction-api/models"
	"postal-prediction-api/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The user store is only needed when auth is on; the prediction API
	// itself has no database.
	var db *gorm.DB
	if cfg.Auth.Enabled {
		db, err = gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Fatalf("Failed to migrate user table: %v", err)
		}
	}

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, running without cache or live feed: %v", err)
	}

	// Reference data is loaded once at startup; a table that cannot be
	// read is fatal.
	data := services.NewDatasetService(cfg.Data)
	if _, err := data.ItemEvents(); err != nil {
		log.Fatalf("Failed to load item reference table: %v", err)
	}
	if _, err := data.ReceptacleEvents(); err != nil {
		log.Fatalf("Failed to load receptacle reference table: %v", err)
	}

	holidays := services.NewHolidayIndex()
	featureSvc := services.NewFeatureService(holidays, cfg.Features)
	modelSvc := services.NewModelService(cfg.Data)
	itemLog := services.NewPredictionLog(cfg.Data.ItemLogPath, models.ItemFeatureSchema)
	rcpLog := services.NewPredictionLog(cfg.Data.ReceptacleLogPath, models.ReceptacleFeatureSchema)
	predictionSvc := services.NewPredictionService(data, featureSvc, modelSvc, itemLog, rcpLog, cache, cfg.Features)
	statsSvc := services.NewStatsService(cfg.Features)
	chatSvc := services.NewChatService(cfg.Chat)
	exportSvc := services.NewExportService()
	authSvc := services.NewAuthService(cfg.JWT)

	predictionHandler := handlers.NewPredictionHandler(predictionSvc, cache)
	statsHandler := handlers.NewStatsHandler(data, statsSvc, predictionSvc, cache)
	chatHandler := handlers.NewChatHandler(chatSvc, predictionSvc)
	exportHandler := handlers.NewExportHandler(predictionSvc, exportSvc)

	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "UP",
			"message": "Postal Prediction API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Auth.Enabled {
		authHandler := handlers.NewAuthHandler(db, authSvc, cfg.JWT)
		router.POST("/api/auth/register", authHandler.Register)
		router.POST("/api/auth/login", authHandler.Login)
		router.POST("/api/auth/logout", authHandler.Logout)
	}

	api := router.Group("/api")
	if cfg.Auth.Enabled {
		api.Use(middleware.RequireAuth(authSvc))
	}

	api.POST("/predict/item/:id", predictionHandler.PredictItem)
	api.POST("/predict/receptacle/:id", predictionHandler.PredictReceptacle)
	api.GET("/predictions/log", predictionHandler.GetItemLog)
	api.GET("/predictions/receptacle/log", predictionHandler.GetReceptacleLog)
	api.GET("/stats/overview", statsHandler.GetOverview)
	api.POST("/chat", chatHandler.Ask)
	api.GET("/export/item/:id/pdf", exportHandler.ItemPDF)
	api.GET("/export/receptacle/:id/pdf", exportHandler.ReceptaclePDF)

	// Websocket auth goes through the token query parameter, not the
	// Authorization header, so the route sits outside the guarded group.
	router.GET("/api/live", handlers.LiveWebSocket(cache, authSvc, cfg.Auth.Enabled))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
