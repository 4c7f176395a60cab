package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sazonbot/internal/api"
	"sazonbot/internal/api/handlers/health"
	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/conversation"
	"sazonbot/internal/core/matching"
	"sazonbot/internal/core/order"
	"sazonbot/internal/core/orderlog"
	"sazonbot/internal/infrastructure/config"
	"sazonbot/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(common.LogOptions{
		Level:      cfg.LogLevel,
		Mode:       cfg.Log.Mode,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Service:    cfg.App.Name,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("menu_source", cfg.Catalog.MenuSource),
		zap.String("districts_source", cfg.Catalog.DistrictsSource),
		zap.String("scorer", cfg.Matching.Scorer),
		zap.Int("threshold", cfg.Matching.Threshold),
		zap.String("flow", cfg.Conversation.Flow),
		zap.String("session_store", cfg.Session.Store),
		zap.String("order_log_sink", cfg.OrderLog.Sink),
	)

	ctx := context.Background()

	interp, err := newInterpreter(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize interpreter", zap.Error(err))
	}

	snapshot := catalog.NewSnapshot(catalog.NewLoader(cfg.Catalog.HTTPTimeout), catalog.Source{
		Menu:      cfg.Catalog.MenuSource,
		Districts: cfg.Catalog.DistrictsSource,
		MaxAge:    cfg.Catalog.MaxAge,
	})
	// 預先載入；失敗時由後續請求重試
	if cat, err := snapshot.Get(ctx); err != nil {
		common.LogWarn("Initial catalog load failed", zap.Error(err))
	} else {
		common.LogInfo("菜單已載入", zap.Int("dishes", len(cat.Dishes)), zap.Int("districts", len(cat.Districts)))
	}

	pingers := map[string]health.Pinger{}
	store, err := newSessionStore(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize session store", zap.Error(err))
	}
	defer store.Close()
	if p, ok := store.(health.Pinger); ok {
		pingers["redis"] = p
	}

	queue, err := newOrderLogQueue(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize order log", zap.Error(err))
	}

	var recorder conversation.OrderRecorder
	if queue != nil {
		recorder = queue
	}
	flow, err := conversation.ParseFlow(cfg.Conversation.Flow)
	if err != nil {
		common.LogFatal("Invalid conversation flow", zap.Error(err))
	}
	service := conversation.NewService(snapshot, interp, store, recorder, conversation.Options{
		Flow:       flow,
		MaxHistory: cfg.Conversation.MaxHistory,
	})

	// 設置路由
	router := api.SetupRouter(cfg, api.Dependencies{
		Catalog:      snapshot,
		Interpreter:  interp,
		Conversation: service,
		OrderLog:     queue,
		Pingers:      pingers,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 等待隊列中的訂單寫入完成
	if queue != nil {
		if err := queue.Close(); err != nil {
			common.LogError("Failed to close order log", zap.Error(err))
		}
	}

	common.LogInfo("Server exited")
}

func newInterpreter(cfg *config.Config) (*order.Interpreter, error) {
	scorer := matching.ScorerByName(cfg.Matching.Scorer)
	if scorer == nil {
		return nil, fmt.Errorf("unknown scorer %q", cfg.Matching.Scorer)
	}
	opts := []order.Option{
		order.WithScorer(scorer),
		order.WithThreshold(cfg.Matching.Threshold),
	}
	if cfg.Catalog.VariantsFile != "" {
		table, err := order.LoadVariantTable(cfg.Catalog.VariantsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, order.WithVariants(table))
		common.LogInfo("載入菜名變體", zap.String("file", cfg.Catalog.VariantsFile), zap.Int("entries", table.Len()))
	}
	return order.New(opts...), nil
}

func newSessionStore(ctx context.Context, cfg *config.Config) (conversation.Store, error) {
	if cfg.Session.Store == "redis" {
		return conversation.NewRedisStore(ctx, conversation.RedisOptions{
			Addr:      cfg.Session.Redis.Addr,
			Password:  cfg.Session.Redis.Password,
			DB:        cfg.Session.Redis.DB,
			KeyPrefix: cfg.Session.Redis.KeyPrefix,
			TTL:       cfg.Session.TTL,
		})
	}
	return conversation.NewMemoryStore(cfg.Session.MaxSessions, cfg.Session.TTL), nil
}

func newOrderLogQueue(ctx context.Context, cfg *config.Config) (*orderlog.Queue, error) {
	var (
		sink orderlog.Sink
		err  error
	)
	switch cfg.OrderLog.Sink {
	case "csv":
		sink, err = orderlog.NewCSVSink(cfg.OrderLog.CSVPath)
	case "postgres":
		sink, err = orderlog.NewPostgresSink(ctx, cfg.OrderLog.PostgresDSN)
	default:
		common.LogWarn("Order log disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return orderlog.NewQueue(sink, cfg.OrderLog.Workers, cfg.OrderLog.QueueSize), nil
}
