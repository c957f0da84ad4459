package routes

import (
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gateway-reconciliation-backend/internal/config"
	"gateway-reconciliation-backend/internal/gateway"
	handler "gateway-reconciliation-backend/internal/handlers"
	infraredis "gateway-reconciliation-backend/internal/infra/redis"
	"gateway-reconciliation-backend/internal/repository"
	"gateway-reconciliation-backend/internal/services/blacklist"
	"gateway-reconciliation-backend/internal/services/chargeback"
	"gateway-reconciliation-backend/internal/services/reconciliation"
	"gateway-reconciliation-backend/internal/services/submission"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, redisClient *goredis.Client, gw gateway.Client, cfg *config.Config, logger *zap.Logger) error {
	batchRepo := repository.NewBatchRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(db)
	chargebackRepo := repository.NewChargebackRepository(db)

	lock, err := infraredis.NewBatchLock(redisClient)
	if err != nil {
		return err
	}

	blacklistSvc := blacklist.NewService(blacklistRepo, batchRepo, lock, logger)
	reconSvc := reconciliation.NewService(batchRepo, gw, lock, logger)
	submissionSvc := submission.NewService(batchRepo, gw, blacklistSvc, lock, logger)
	pipeline := chargeback.NewPipeline(chargebackRepo, batchRepo, blacklistSvc, cfg.TriggerCodes(), logger)

	batchHandler := handler.NewBatchHandler(batchRepo, submissionSvc, reconSvc, blacklistSvc, logger)
	blacklistHandler := handler.NewBlacklistHandler(blacklistSvc, pipeline, logger)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Batch routes
	batches := api.Group("/batches")
	batches.POST("/upload", batchHandler.Upload)
	batches.GET("/:batchId", batchHandler.GetBatch)
	batches.POST("/:batchId/submit", batchHandler.SubmitBatch)
	batches.POST("/:batchId/reconcile", batchHandler.ReconcileBatch)
	batches.POST("/:batchId/filter-blacklist", batchHandler.FilterBlacklisted)

	// Transaction-level routes
	tx := api.Group("/transactions")
	tx.POST("/:uniqueId/void", batchHandler.VoidTransaction)

	// Blacklist routes
	bl := api.Group("/blacklist")
	{
		bl.POST("", blacklistHandler.Add)
		bl.POST("/check", blacklistHandler.Check)
		bl.POST("/process-chargebacks", blacklistHandler.ProcessChargebacks)
	}

	return nil
}
