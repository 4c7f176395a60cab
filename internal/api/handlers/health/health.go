package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/orderlog"
	"sazonbot/internal/pkg/common"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Catalog   *CatalogStatus         `json:"catalog,omitempty"`
	Queue     *orderlog.Status       `json:"queue,omitempty"`
}

// CatalogStatus 菜單快照狀態
type CatalogStatus struct {
	Dishes    int       `json:"dishes"`
	Districts int       `json:"districts"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// CatalogSource 取得菜單快照
type CatalogSource interface {
	Get(ctx context.Context) (*catalog.Catalog, error)
}

// QueueStatusSource 訂單紀錄隊列狀態
type QueueStatusSource interface {
	GetQueueStatus() *orderlog.Status
}

// Pinger 外部依賴（例如 Redis）
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler 健康檢查處理程序
type Handler struct {
	version string
	catalog CatalogSource
	queue   QueueStatusSource
	deps    map[string]Pinger
}

// NewHandler 創建健康檢查處理程序；queue 與 deps 可為 nil
func NewHandler(version string, src CatalogSource, queue QueueStatusSource, deps map[string]Pinger) *Handler {
	return &Handler{version: version, catalog: src, queue: queue, deps: deps}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if cat, err := h.catalog.Get(c.Request.Context()); err == nil {
		response.Catalog = &CatalogStatus{
			Dishes:    len(cat.Dishes),
			Districts: len(cat.Districts),
			LoadedAt:  cat.LoadedAt,
		}
	} else {
		response.Status = "degraded"
	}
	if h.queue != nil {
		response.Queue = h.queue.GetQueueStatus()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("status", response.Status),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：菜單可載入且外部依賴可連線
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]string{}
	if _, err := h.catalog.Get(ctx); err != nil {
		failures["catalog"] = err.Error()
	}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		common.LogWarn("Readiness check failed", zap.Any("failures", failures))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"failures": failures,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
