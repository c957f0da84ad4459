package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gateway-reconciliation-backend/internal/config"
	"gateway-reconciliation-backend/internal/gateway"
	"gateway-reconciliation-backend/internal/infra/postgresql"
	infraredis "gateway-reconciliation-backend/internal/infra/redis"
	"gateway-reconciliation-backend/internal/models"
	"gateway-reconciliation-backend/internal/observability"
	"gateway-reconciliation-backend/internal/routes"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.UploadBatch{},
		&models.PaymentRecord{},
		&models.BlacklistEntry{},
		&models.Chargeback{},
	); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	redisClient, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}

	gw, err := gateway.NewEMPClient(cfg.EMPGatewayURL, cfg.EMPAPIKey, cfg.EMPAPISecret, cfg.GatewayTimeout())
	if err != nil {
		logger.Fatal("failed to build gateway client", zap.Error(err))
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := routes.RegisterRoutes(r, db, redisClient, gw, cfg, logger); err != nil {
		logger.Fatal("failed to register routes", zap.Error(err))
	}

	logger.Info("server starting", zap.Int("port", cfg.APIPort))
	if err := r.Run(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
