// Package conversation 管理點餐對話的狀態：每個 session 有明確的階段，
// 由 Service 依階段呼叫解析器並保存在 Store。
package conversation

import (
	"fmt"
	"strings"
	"time"

	"sazonbot/internal/core/order"
)

// Phase 對話階段
type Phase string

const (
	PhaseAwaitingOrder    Phase = "awaiting_order"
	PhaseAwaitingDistrict Phase = "awaiting_district"
	PhaseCompleted        Phase = "completed"
)

// Flow 先問訂單或先問配送區域
type Flow string

const (
	FlowOrderFirst    Flow = "order_first"
	FlowDistrictFirst Flow = "district_first"
)

// ParseFlow 解析流程名稱，空字串視為 order_first
func ParseFlow(name string) (Flow, error) {
	switch Flow(strings.ToLower(strings.TrimSpace(name))) {
	case "", FlowOrderFirst:
		return FlowOrderFirst, nil
	case FlowDistrictFirst:
		return FlowDistrictFirst, nil
	default:
		return "", fmt.Errorf("unknown conversation flow %q", name)
	}
}

// InitialPhase 流程的起始階段
func (f Flow) InitialPhase() Phase {
	if f == FlowDistrictFirst {
		return PhaseAwaitingDistrict
	}
	return PhaseAwaitingOrder
}

// Role 訊息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 對話紀錄中的一則訊息
type Message struct {
	Role    Role      `json:"role" msgpack:"role"`
	Content string    `json:"content" msgpack:"content"`
	At      time.Time `json:"at" msgpack:"at"`
}

// Session 一段對話的狀態
type Session struct {
	ID        string       `json:"id" msgpack:"id"`
	Flow      Flow         `json:"flow" msgpack:"flow"`
	Phase     Phase        `json:"phase" msgpack:"phase"`
	District  string       `json:"district,omitempty" msgpack:"district"`
	Order     []order.Line `json:"order,omitempty" msgpack:"order"`
	Messages  []Message    `json:"messages" msgpack:"messages"`
	CreatedAt time.Time    `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" msgpack:"updated_at"`
}

// NewSession 建立新對話
func NewSession(id string, flow Flow, now time.Time) *Session {
	return &Session{
		ID:        id,
		Flow:      flow,
		Phase:     flow.InitialPhase(),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ResolvedOrder 目前的訂單
func (s *Session) ResolvedOrder() order.ResolvedOrder {
	return order.FromLines(s.Order)
}

// restart 開始新的一輪點餐，保留對話紀錄
func (s *Session) restart() {
	s.Phase = s.Flow.InitialPhase()
	s.District = ""
	s.Order = nil
}

func (s *Session) addMessage(role Role, content string, at time.Time, maxHistory int) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, At: at})
	if maxHistory > 0 && len(s.Messages) > maxHistory {
		s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-maxHistory:]...)
	}
}

// Clone 深複製，避免呼叫端修改已保存的狀態
func (s *Session) Clone() *Session {
	c := *s
	c.Order = append([]order.Line(nil), s.Order...)
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}
