package chat

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sazonbot/internal/api/handlers"
	"sazonbot/internal/core/conversation"
	"sazonbot/internal/pkg/common"
)

// MessageRequest 對話訊息
type MessageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// HistoryResponse 對話紀錄
type HistoryResponse struct {
	SessionID string                 `json:"session_id"`
	Flow      conversation.Flow      `json:"flow"`
	Phase     conversation.Phase     `json:"phase"`
	District  string                 `json:"district,omitempty"`
	Order     map[string]int         `json:"order"`
	Messages  []conversation.Message `json:"messages"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Handler 對話處理程序
type Handler struct {
	service *conversation.Service
}

// NewHandler 創建對話處理程序
func NewHandler(service *conversation.Service) *Handler {
	return &Handler{service: service}
}

// HandleMessage POST /api/v1/chat
func (h *Handler) HandleMessage(c *gin.Context) {
	var req MessageRequest
	if err := handlers.BindJSON(c, &req); err != nil {
		handlers.WriteError(c, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		handlers.WriteError(c, common.ErrEmptyMessage)
		return
	}

	reply, err := h.service.HandleMessage(c.Request.Context(), strings.TrimSpace(req.SessionID), req.Message)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	common.LogDebug("對話回覆",
		zap.String("session_id", reply.SessionID),
		zap.String("phase", string(reply.Phase)),
		zap.String("message", common.Truncate(req.Message, 80)),
		zap.Int("dishes", len(reply.Order)),
	)
	c.JSON(http.StatusOK, reply)
}

// HandleHistory GET /api/v1/chat/:session_id/history
func (h *Handler) HandleHistory(c *gin.Context) {
	sess, err := h.service.History(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{
		SessionID: sess.ID,
		Flow:      sess.Flow,
		Phase:     sess.Phase,
		District:  sess.District,
		Order:     sess.ResolvedOrder().Map(),
		Messages:  sess.Messages,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	})
}

// HandleReset DELETE /api/v1/chat/:session_id
func (h *Handler) HandleReset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context(), c.Param("session_id")); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
