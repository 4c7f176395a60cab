package conversation

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/order"
	"sazonbot/internal/core/orderlog"
	"sazonbot/internal/pkg/common"
)

// CatalogSource 取得目前的菜單快照
type CatalogSource interface {
	Get(ctx context.Context) (*catalog.Catalog, error)
}

// OrderRecorder 接收確認後的訂單紀錄
type OrderRecorder interface {
	Enqueue(ctx context.Context, records []orderlog.Record) error
}

// Reply 一次對話回合的結果
type Reply struct {
	SessionID   string         `json:"session_id"`
	Phase       Phase          `json:"phase"`
	District    string         `json:"district,omitempty"`
	Order       map[string]int `json:"order"`
	Unavailable []string       `json:"unavailable,omitempty"`
	Messages    []string       `json:"messages"`
	Completed   bool           `json:"completed"`

	records []orderlog.Record // 存檔後才送出的訂單紀錄
}

// Options 服務設定
type Options struct {
	Flow       Flow
	MaxHistory int
}

const lockStripes = 64

// Service 對話服務
type Service struct {
	catalog  CatalogSource
	interp   *order.Interpreter
	store    Store
	recorder OrderRecorder
	opts     Options
	now      func() time.Time

	locks [lockStripes]sync.Mutex
}

// NewService 建立對話服務
func NewService(src CatalogSource, interp *order.Interpreter, store Store, recorder OrderRecorder, opts Options) *Service {
	if interp == nil {
		interp = order.New()
	}
	if opts.Flow == "" {
		opts.Flow = FlowOrderFirst
	}
	return &Service{
		catalog:  src,
		interp:   interp,
		store:    store,
		recorder: recorder,
		opts:     opts,
		now:      time.Now,
	}
}

// Flow 目前使用的流程
func (s *Service) Flow() Flow {
	return s.opts.Flow
}

// Welcome 新對話的第一則訊息
func (s *Service) Welcome() string {
	if s.opts.Flow == FlowDistrictFirst {
		return msgAskDistrictFirst
	}
	return msgWelcomeOrderFirst
}

// HandleMessage 處理使用者訊息。sessionID 為空時建立新對話；
// 已完成的對話收到新訊息時開始新的一輪點餐。
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = common.GenerateUUID()
	} else if !common.IsValidUUID(sessionID) {
		return nil, common.ErrInvalidRequest.Wrap(common.NewValidationError("session_id must be a UUID"))
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, existed, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	before := sess.Clone()
	cat, err := s.catalog.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sess.Phase == PhaseCompleted {
		sess.restart()
	}
	sess.addMessage(RoleUser, text, now, s.opts.MaxHistory)

	reply := &Reply{SessionID: sess.ID}
	switch sess.Phase {
	case PhaseAwaitingOrder:
		s.handleOrder(sess, cat, text, reply)
	case PhaseAwaitingDistrict:
		s.handleDistrict(sess, cat, text, reply)
	default:
		return nil, common.ErrInternalError.Wrap(errors.New("unknown phase " + string(sess.Phase)))
	}

	for _, m := range reply.Messages {
		sess.addMessage(RoleAssistant, m, now, s.opts.MaxHistory)
	}
	sess.UpdatedAt = now
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, common.ErrServiceUnavailable.Wrap(err)
	}

	// 對話已存檔才送出訂單紀錄；送出失敗時還原對話，重送不會重複記錄
	if len(reply.records) > 0 {
		if err := s.record(ctx, reply.records); err != nil {
			s.rollback(ctx, before, existed)
			return nil, err
		}
	}

	reply.Phase = sess.Phase
	reply.District = sess.District
	reply.Order = sess.ResolvedOrder().Map()
	reply.Completed = sess.Phase == PhaseCompleted
	return reply, nil
}

// Reset 刪除對話
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.store.Get(ctx, sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return common.ErrServiceUnavailable.Wrap(err)
	}
	common.LogInfo("對話已重置", zap.String("session_id", sessionID))
	return nil
}

// History 取得對話紀錄
func (s *Service) History(ctx context.Context, sessionID string) (*Session, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *Service) loadOrCreate(ctx context.Context, id string) (*Session, bool, error) {
	sess, err := s.store.Get(ctx, id)
	if err == nil {
		return sess, true, nil
	}
	if !errors.Is(err, common.ErrSessionNotFound) {
		return nil, false, common.ErrServiceUnavailable.Wrap(err)
	}

	sess = NewSession(id, s.opts.Flow, s.now())
	sess.addMessage(RoleAssistant, s.Welcome(), sess.CreatedAt, s.opts.MaxHistory)
	common.LogInfo("新對話", zap.String("session_id", id), zap.String("flow", string(s.opts.Flow)))
	return sess, false, nil
}

func (s *Service) handleOrder(sess *Session, cat *catalog.Catalog, text string, reply *Reply) {
	if sess.Flow == FlowDistrictFirst {
		s.handleDistrictMenuOrder(sess, cat, text, reply)
		return
	}

	extracted := s.interp.Extract(text, cat.Dishes)
	if extracted.IsEmpty() {
		reply.Messages = append(reply.Messages, msgNoDishSelected+"\n\n"+FormatMenu(cat.Dishes))
		return
	}

	outcome := order.Validate(extracted, cat.Dishes)
	if !outcome.AllAvailable() {
		reply.Unavailable = outcome.Unavailable
		reply.Messages = append(reply.Messages, unavailableSentence(outcome.Unavailable))
		return
	}

	sess.Order = outcome.Available.Lines()
	sess.Phase = PhaseAwaitingDistrict
	reply.Messages = append(reply.Messages, orderRegistered(outcome.Available))
}

// handleDistrictMenuOrder 先問配送區域的流程：以該區菜單驗證
func (s *Service) handleDistrictMenuOrder(sess *Session, cat *catalog.Catalog, text string, reply *Reply) {
	menu := cat.DishesForDistrict(sess.District)
	extracted := s.interp.Extract(text, cat.Dishes)
	outcome := order.Validate(extracted, menu)

	if outcome.Available.IsEmpty() && outcome.AllAvailable() {
		reply.Messages = append(reply.Messages, msgNothingFound)
		return
	}
	if !outcome.AllAvailable() {
		reply.Unavailable = outcome.Unavailable
	}
	if !outcome.Available.IsEmpty() {
		reply.Messages = append(reply.Messages, availableList(outcome.Available))
	}
	if !outcome.AllAvailable() {
		reply.Messages = append(reply.Messages, unavailableList(outcome.Unavailable))
	}
	if outcome.Available.IsEmpty() {
		return
	}

	reply.records = orderlog.RecordsFor(outcome.Available, sess.District, s.now())
	sess.Order = outcome.Available.Lines()
	sess.Phase = PhaseCompleted
	reply.Messages = append(reply.Messages, thanks(sess.District))
}

func (s *Service) handleDistrict(sess *Session, cat *catalog.Catalog, text string, reply *Reply) {
	district, ok := s.interp.ResolveDistrict(text, cat.Districts)

	if sess.Flow == FlowDistrictFirst {
		if !ok {
			reply.Messages = append(reply.Messages, msgUnknownDistrict)
			return
		}
		sess.District = district
		sess.Phase = PhaseAwaitingOrder
		reply.Messages = append(reply.Messages,
			districtVerified(district),
			FormatMenu(cat.DishesForDistrict(district)),
		)
		return
	}

	if !ok {
		reply.Messages = append(reply.Messages, notDelivered(cat.Districts))
		return
	}
	reply.records = orderlog.RecordsFor(sess.ResolvedOrder(), district, s.now())
	sess.District = district
	sess.Phase = PhaseCompleted
	reply.Messages = append(reply.Messages, thanks(district))
}

func (s *Service) record(ctx context.Context, records []orderlog.Record) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.Enqueue(ctx, records); err != nil {
		common.LogError("訂單紀錄加入隊列失敗", zap.String("district", records[0].District), zap.Error(err))
		return err
	}
	return nil
}

// rollback 把對話還原為本回合之前的狀態
func (s *Service) rollback(ctx context.Context, before *Session, existed bool) {
	var err error
	if existed {
		err = s.store.Save(ctx, before)
	} else {
		err = s.store.Delete(ctx, before.ID)
	}
	if err != nil {
		common.LogError("對話還原失敗", zap.String("session_id", before.ID), zap.Error(err))
	}
}

func (s *Service) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}
