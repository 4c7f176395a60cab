package menu

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sazonbot/internal/api/handlers"
	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/order"
	"sazonbot/internal/pkg/common"
)

// Snapshot 菜單快照
type Snapshot interface {
	Get(ctx context.Context) (*catalog.Catalog, error)
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// MenuResponse 菜單
type MenuResponse struct {
	District string         `json:"district,omitempty"`
	Dishes   []catalog.Dish `json:"dishes"`
}

// ReloadResponse 重新載入結果
type ReloadResponse struct {
	Dishes    int       `json:"dishes"`
	Districts int       `json:"districts"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Handler 菜單處理程序
type Handler struct {
	snapshot Snapshot
	interp   *order.Interpreter
}

// NewHandler 創建菜單處理程序
func NewHandler(snapshot Snapshot, interp *order.Interpreter) *Handler {
	return &Handler{snapshot: snapshot, interp: interp}
}

// HandleMenu GET /api/v1/menu[?district=]
func (h *Handler) HandleMenu(c *gin.Context) {
	cat, err := h.snapshot.Get(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	query := strings.TrimSpace(c.Query("district"))
	if query == "" {
		c.JSON(http.StatusOK, MenuResponse{Dishes: cat.Dishes})
		return
	}

	district, ok := h.interp.ResolveDistrict(query, cat.Districts)
	if !ok {
		handlers.WriteError(c, common.ErrNotFound.Wrap(common.NewValidationError("unknown district "+query)))
		return
	}
	c.JSON(http.StatusOK, MenuResponse{District: district, Dishes: cat.DishesForDistrict(district)})
}

// HandleDistricts GET /api/v1/districts
func (h *Handler) HandleDistricts(c *gin.Context) {
	cat, err := h.snapshot.Get(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"districts": cat.Districts})
}

// HandleReload POST /api/v1/catalog/reload
func (h *Handler) HandleReload(c *gin.Context) {
	cat, err := h.snapshot.Reload(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	common.LogInfo("菜單已手動重新載入",
		zap.Int("dishes", len(cat.Dishes)),
		zap.Int("districts", len(cat.Districts)),
		zap.String("client_ip", c.ClientIP()),
	)
	c.JSON(http.StatusOK, ReloadResponse{
		Dishes:    len(cat.Dishes),
		Districts: len(cat.Districts),
		LoadedAt:  cat.LoadedAt,
	})
}
