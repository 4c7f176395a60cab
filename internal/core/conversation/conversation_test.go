package conversation

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/order"
	"sazonbot/internal/core/orderlog"
	"sazonbot/internal/pkg/common"
)

type staticCatalog struct {
	c   *catalog.Catalog
	err error
}

func (s staticCatalog) Get(context.Context) (*catalog.Catalog, error) {
	return s.c, s.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	batches [][]orderlog.Record
	err     error
}

func (f *fakeRecorder) Enqueue(_ context.Context, records []orderlog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, records)
	return nil
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Dishes: []catalog.Dish{
			{Name: "Ceviche", Description: "Pescado fresco", Price: 25, Districts: []string{"Miraflores"}},
			{Name: "Causa", Description: "Papa amarilla", Price: 18, Districts: []string{"San Isidro"}},
			{Name: "Lomo Saltado", Description: "Clásico", Price: 32},
			{Name: "Anticuchos", Description: "A la parrilla", Price: 22},
		},
		Districts: []string{"Miraflores", "San Isidro", "Barranco"},
	}
}

func newTestService(flow Flow, rec OrderRecorder, maxHistory int) (*Service, *MemoryStore) {
	store := NewMemoryStore(100, time.Hour)
	svc := NewService(staticCatalog{c: testCatalog()}, order.New(), store, rec, Options{Flow: flow, MaxHistory: maxHistory})
	return svc, store
}

func TestOrderFirstFlow(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	svc, _ := newTestService(FlowOrderFirst, rec, 0)
	ctx := context.Background()

	r, err := svc.HandleMessage(ctx, "", "hola")
	if err != nil {
		t.Fatal(err)
	}
	if !common.IsValidUUID(r.SessionID) {
		t.Fatalf("session id %q is not a UUID", r.SessionID)
	}
	if r.Phase != PhaseAwaitingOrder || !strings.HasPrefix(r.Messages[0], msgNoDishSelected) {
		t.Fatalf("unexpected reply %+v", r)
	}
	if !strings.Contains(r.Messages[0], "**Lomo Saltado**") {
		t.Fatal("menu should be listed when nothing was ordered")
	}
	id := r.SessionID

	r, err = svc.HandleMessage(ctx, id, "Quiero pedir 2 ceviches y 3 causas.")
	if err != nil {
		t.Fatal(err)
	}
	if r.Phase != PhaseAwaitingDistrict || !reflect.DeepEqual(r.Order, map[string]int{"Ceviche": 2, "Causa": 3}) {
		t.Fatalf("unexpected reply %+v", r)
	}
	if !strings.Contains(r.Messages[0], "2 x Ceviche, 3 x Causa") {
		t.Fatalf("confirmation = %q", r.Messages[0])
	}

	r, err = svc.HandleMessage(ctx, id, "xyzxyz")
	if err != nil {
		t.Fatal(err)
	}
	if r.Phase != PhaseAwaitingDistrict || !strings.Contains(r.Messages[0], "Miraflores, San Isidro, Barranco") {
		t.Fatalf("unexpected reply %+v", r)
	}

	r, err = svc.HandleMessage(ctx, id, "miraflores")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Completed || r.District != "Miraflores" {
		t.Fatalf("unexpected reply %+v", r)
	}
	if len(rec.batches) != 1 || len(rec.batches[0]) != 2 || rec.batches[0][0].District != "Miraflores" {
		t.Fatalf("recorded %+v", rec.batches)
	}

	sess, err := svc.History(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	// 歡迎訊息 + 4 回合 * 2
	if len(sess.Messages) != 9 || sess.Messages[0].Content != msgWelcomeOrderFirst {
		t.Fatalf("history has %d messages", len(sess.Messages))
	}

	// 完成後的新訊息開始新的一輪
	r, err = svc.HandleMessage(ctx, id, "1 lomo saltado")
	if err != nil {
		t.Fatal(err)
	}
	if r.Phase != PhaseAwaitingDistrict || r.District != "" || !reflect.DeepEqual(r.Order, map[string]int{"Lomo Saltado": 1}) {
		t.Fatalf("new round reply %+v", r)
	}
}

func TestDistrictFirstFlow(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	svc, _ := newTestService(FlowDistrictFirst, rec, 0)
	ctx := context.Background()

	r, err := svc.HandleMessage(ctx, "", "Lima centro")
	if err != nil {
		t.Fatal(err)
	}
	if r.Phase != PhaseAwaitingDistrict || r.Messages[0] != msgUnknownDistrict {
		t.Fatalf("unexpected reply %+v", r)
	}

	r, err = svc.HandleMessage(ctx, r.SessionID, "Miraflores")
	if err != nil {
		t.Fatal(err)
	}
	if r.Phase != PhaseAwaitingOrder || r.District != "Miraflores" || len(r.Messages) != 2 {
		t.Fatalf("unexpected reply %+v", r)
	}
	menu := r.Messages[1]
	if !strings.Contains(menu, "**Ceviche**") || strings.Contains(menu, "**Causa**") || !strings.Contains(menu, "S/32.00") {
		t.Fatalf("district menu = %q", menu)
	}

	r, err = svc.HandleMessage(ctx, r.SessionID, "2 ceviches y 1 causa")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Completed || !reflect.DeepEqual(r.Order, map[string]int{"Ceviche": 2}) || !reflect.DeepEqual(r.Unavailable, []string{"Causa"}) {
		t.Fatalf("unexpected reply %+v", r)
	}
	if r.Messages[0] != "Tus pedidos disponibles son:\n- 2x Ceviche" ||
		r.Messages[1] != "Los siguientes platos no están disponibles:\n- Causa" {
		t.Fatalf("messages = %q", r.Messages)
	}
	if len(rec.batches) != 1 || rec.batches[0][0].Dish != "Ceviche" || rec.batches[0][0].Quantity != 2 {
		t.Fatalf("recorded %+v", rec.batches)
	}
}

func TestDistrictFirstNothingFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(FlowDistrictFirst, nil, 0)
	ctx := context.Background()
	r, err := svc.HandleMessage(ctx, "", "Barranco")
	if err != nil {
		t.Fatal(err)
	}
	r, err = svc.HandleMessage(ctx, r.SessionID, "xyzxyz")
	if err != nil {
		t.Fatal(err)
	}
	if r.Phase != PhaseAwaitingOrder || r.Messages[0] != msgNothingFound {
		t.Fatalf("unexpected reply %+v", r)
	}
}

func TestHandleMessageErrors(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(FlowOrderFirst, nil, 0)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, "", "   "); !errors.Is(err, common.ErrEmptyMessage) {
		t.Errorf("blank message error = %v", err)
	}
	if _, err := svc.HandleMessage(ctx, "not-a-uuid", "hola"); !errors.Is(err, common.ErrInvalidRequest) {
		t.Errorf("invalid session id error = %v", err)
	}
	if err := svc.Reset(ctx, common.GenerateUUID()); !errors.Is(err, common.ErrSessionNotFound) {
		t.Errorf("reset unknown session error = %v", err)
	}
	if _, err := svc.History(ctx, common.GenerateUUID()); !errors.Is(err, common.ErrSessionNotFound) {
		t.Errorf("history unknown session error = %v", err)
	}

	broken := NewService(staticCatalog{err: common.ErrCatalogUnavailable}, nil, NewMemoryStore(10, time.Hour), nil, Options{})
	if _, err := broken.HandleMessage(ctx, "", "hola"); !errors.Is(err, common.ErrCatalogUnavailable) {
		t.Errorf("catalog failure error = %v", err)
	}
}

func TestRecorderFailureKeepsPhase(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	svc, _ := newTestService(FlowOrderFirst, rec, 0)
	ctx := context.Background()

	r, err := svc.HandleMessage(ctx, "", "2 anticuchos")
	if err != nil {
		t.Fatal(err)
	}
	rec.err = common.ErrOrderLogFull
	if _, err := svc.HandleMessage(ctx, r.SessionID, "Miraflores"); !errors.Is(err, common.ErrOrderLogFull) {
		t.Fatalf("expected ErrOrderLogFull, got %v", err)
	}
	sess, err := svc.History(ctx, r.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Phase != PhaseAwaitingDistrict || sess.District != "" {
		t.Fatalf("session changed after failed record: %+v", sess)
	}
}

// failingSaveStore 在 failNext 為 true 時讓下一次 Save 失敗
type failingSaveStore struct {
	*MemoryStore
	mu       sync.Mutex
	failNext bool
}

func (f *failingSaveStore) Save(ctx context.Context, sess *Session) error {
	f.mu.Lock()
	fail := f.failNext
	f.failNext = false
	f.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return f.MemoryStore.Save(ctx, sess)
}

func TestFailedSaveDoesNotRecordOrder(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	store := &failingSaveStore{MemoryStore: NewMemoryStore(100, time.Hour)}
	svc := NewService(staticCatalog{c: testCatalog()}, order.New(), store, rec, Options{Flow: FlowOrderFirst})
	ctx := context.Background()

	r, err := svc.HandleMessage(ctx, "", "2 anticuchos")
	if err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	store.failNext = true
	store.mu.Unlock()
	if _, err := svc.HandleMessage(ctx, r.SessionID, "Miraflores"); !errors.Is(err, common.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if len(rec.batches) != 0 {
		t.Fatalf("order recorded before session was saved: %+v", rec.batches)
	}

	// 重送後只記錄一次
	r, err = svc.HandleMessage(ctx, r.SessionID, "Miraflores")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Completed || len(rec.batches) != 1 {
		t.Fatalf("completed=%v batches=%d", r.Completed, len(rec.batches))
	}
}

func TestRecorderFailureRestoresDistrictFirstSession(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{err: common.ErrOrderLogFull}
	svc, store := newTestService(FlowDistrictFirst, rec, 0)
	ctx := context.Background()

	r, err := svc.HandleMessage(ctx, "", "miraflores")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleMessage(ctx, r.SessionID, "1 ceviche"); !errors.Is(err, common.ErrOrderLogFull) {
		t.Fatalf("expected ErrOrderLogFull, got %v", err)
	}
	sess, err := store.Get(ctx, r.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Phase != PhaseAwaitingOrder || len(sess.Order) != 0 {
		t.Fatalf("session changed after failed record: %+v", sess)
	}
}

func TestResetAndHistoryLimit(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(FlowOrderFirst, nil, 4)
	ctx := context.Background()

	r, err := svc.HandleMessage(ctx, "", "hola")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.HandleMessage(ctx, r.SessionID, "hola otra vez"); err != nil {
			t.Fatal(err)
		}
	}
	sess, err := svc.History(ctx, r.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Messages) != 4 || sess.Messages[3].Role != RoleAssistant {
		t.Fatalf("history = %+v", sess.Messages)
	}

	if err := svc.Reset(ctx, r.SessionID); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Fatal("session not deleted")
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(2, time.Hour)
	now := time.Now()

	a := NewSession("a", FlowOrderFirst, now)
	_ = store.Save(ctx, a)
	a.Phase = PhaseCompleted
	got, err := store.Get(ctx, "a")
	if err != nil || got.Phase != PhaseAwaitingOrder {
		t.Fatalf("stored session must not alias caller copy: %+v %v", got, err)
	}

	_ = store.Save(ctx, NewSession("b", FlowOrderFirst, now))
	_ = store.Save(ctx, NewSession("c", FlowOrderFirst, now))
	if _, err := store.Get(ctx, "a"); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatal("least recently used session should be evicted")
	}

	short := NewMemoryStore(10, 20*time.Millisecond)
	_ = short.Save(ctx, NewSession("x", FlowOrderFirst, now))
	time.Sleep(100 * time.Millisecond)
	if _, err := short.Get(ctx, "x"); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatal("session should expire after ttl")
	}
}

func TestSessionCodec(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 10, 3, 12, 0, 0, 0, time.UTC)
	s := NewSession("id-1", FlowDistrictFirst, now)
	s.District = "Barranco"
	s.Order = []order.Line{{Dish: "Ceviche", Quantity: 2}}
	s.addMessage(RoleUser, "2 ceviches", now, 0)

	data, err := encodeSession(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeSession(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phase != PhaseAwaitingDistrict || got.District != "Barranco" || got.Flow != FlowDistrictFirst {
		t.Fatalf("decoded %+v", got)
	}
	if q, _ := got.ResolvedOrder().Quantity("Ceviche"); q != 2 {
		t.Fatalf("decoded order %+v", got.Order)
	}
	if !got.CreatedAt.Equal(now) || len(got.Messages) != 1 {
		t.Fatalf("decoded %+v", got)
	}

	if _, err := decodeSession([]byte{0xc1}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("APP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APP_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: addr, KeyPrefix: "sazonbot:test:", TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	id := common.GenerateUUID()
	if err := store.Save(ctx, NewSession(id, FlowOrderFirst, time.Now())); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseFlow(t *testing.T) {
	t.Parallel()

	if f, err := ParseFlow(""); err != nil || f != FlowOrderFirst {
		t.Error("empty flow should default to order_first")
	}
	if f, err := ParseFlow("District_First"); err != nil || f != FlowDistrictFirst {
		t.Error("flow names are case-insensitive")
	}
	if _, err := ParseFlow("chaos"); err == nil {
		t.Error("unknown flow must fail")
	}
}
