package order

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sazonbot/internal/api/handlers"
	"sazonbot/internal/core/catalog"
	coreOrder "sazonbot/internal/core/order"
	"sazonbot/internal/pkg/common"
)

// CatalogSource 取得目前的菜單快照
type CatalogSource interface {
	Get(ctx context.Context) (*catalog.Catalog, error)
}

// ExtractRequest 解析點餐文字
type ExtractRequest struct {
	Text     string `json:"text"`
	District string `json:"district,omitempty"`
}

// ExtractResponse 解析結果；指定配送區域時以該區菜單驗證
type ExtractResponse struct {
	Order       map[string]int `json:"order"`
	Available   map[string]int `json:"available"`
	Unavailable []string       `json:"unavailable"`
	District    string         `json:"district,omitempty"`
}

// ResolveRequest 配送區域比對
type ResolveRequest struct {
	Text string `json:"text"`
}

// ResolveResponse 配送區域比對結果
type ResolveResponse struct {
	District string `json:"district,omitempty"`
	Matched  bool   `json:"matched"`
}

// Handler 無狀態的解析處理程序
type Handler struct {
	catalog CatalogSource
	interp  *coreOrder.Interpreter
}

// NewHandler 創建解析處理程序
func NewHandler(src CatalogSource, interp *coreOrder.Interpreter) *Handler {
	return &Handler{catalog: src, interp: interp}
}

// HandleExtract POST /api/v1/order/extract
func (h *Handler) HandleExtract(c *gin.Context) {
	var req ExtractRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.WriteError(c, err)
		return
	}

	cat, err := h.catalog.Get(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	menu := cat.Dishes
	resp := ExtractResponse{}
	if strings.TrimSpace(req.District) != "" {
		district, ok := h.interp.ResolveDistrict(req.District, cat.Districts)
		if !ok {
			handlers.WriteError(c, common.ErrInvalidRequest.Wrap(common.NewValidationError("unknown district "+req.District)))
			return
		}
		resp.District = district
		menu = cat.DishesForDistrict(district)
	}

	extracted := h.interp.Extract(req.Text, cat.Dishes)
	outcome := coreOrder.Validate(extracted, menu)

	resp.Order = extracted.Map()
	resp.Available = outcome.Available.Map()
	resp.Unavailable = outcome.Unavailable
	c.JSON(http.StatusOK, resp)
}

// HandleResolveDistrict POST /api/v1/district/resolve
func (h *Handler) HandleResolveDistrict(c *gin.Context) {
	var req ResolveRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.WriteError(c, err)
		return
	}

	cat, err := h.catalog.Get(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	district, ok := h.interp.ResolveDistrict(req.Text, cat.Districts)
	c.JSON(http.StatusOK, ResolveResponse{District: district, Matched: ok})
}
