package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sazonbot/internal/api/handlers/chat"
	"sazonbot/internal/api/handlers/health"
	"sazonbot/internal/api/handlers/menu"
	orderHandler "sazonbot/internal/api/handlers/order"
	"sazonbot/internal/api/middleware"
	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/conversation"
	"sazonbot/internal/core/order"
	"sazonbot/internal/core/orderlog"
	"sazonbot/internal/infrastructure/config"
	"sazonbot/internal/pkg/common"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Catalog      *catalog.Snapshot
	Interpreter  *order.Interpreter
	Conversation *conversation.Service
	OrderLog     *orderlog.Queue          // 可為 nil（停用訂單紀錄）
	Pingers      map[string]health.Pinger // 就緒檢查的外部依賴
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制與超時
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	var queueStatus health.QueueStatusSource
	if deps.OrderLog != nil {
		queueStatus = deps.OrderLog
	}
	healthHandler := health.NewHandler(cfg.App.Version, deps.Catalog, queueStatus, deps.Pingers)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	{
		chatHandler := chat.NewHandler(deps.Conversation)
		dedup := middleware.NewDeduplicator(cfg.DedupWindow)

		chatGroup := api.Group("/chat")
		{
			chatGroup.POST("", dedup.Middleware(), chatHandler.HandleMessage)
			chatGroup.GET("/:session_id/history", chatHandler.HandleHistory)
			chatGroup.DELETE("/:session_id", chatHandler.HandleReset)
		}

		parseHandler := orderHandler.NewHandler(deps.Catalog, deps.Interpreter)
		api.POST("/order/extract", parseHandler.HandleExtract)
		api.POST("/district/resolve", parseHandler.HandleResolveDistrict)

		menuHandler := menu.NewHandler(deps.Catalog, deps.Interpreter)
		api.GET("/menu", menuHandler.HandleMenu)
		api.GET("/districts", menuHandler.HandleDistricts)
		api.POST("/catalog/reload", menuHandler.HandleReload)
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("flow", string(deps.Conversation.Flow())),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("order_log", deps.OrderLog != nil),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
