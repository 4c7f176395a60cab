package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"sazonbot/internal/pkg/common"
)

// loadTimeout 單次載入的時間上限；載入與呼叫者的請求生命週期無關
const loadTimeout = 30 * time.Second

// Source 菜單與配送區域來源設定
type Source struct {
	Menu      string
	Districts string
	// MaxAge 快照存活時間；0 代表只在 Invalidate 或 Reload 後重新載入
	MaxAge time.Duration
}

// Snapshot 快取的菜單快照。讀取共用同一份不可變資料，重新載入以 singleflight 合併。
type Snapshot struct {
	loader *Loader
	source Source
	now    func() time.Time

	mu      sync.RWMutex
	current *Catalog
	stale   bool

	group singleflight.Group
}

// NewSnapshot 建立快照，第一次 Get 時才載入
func NewSnapshot(loader *Loader, source Source) *Snapshot {
	if loader == nil {
		loader = NewLoader(0)
	}
	return &Snapshot{
		loader: loader,
		source: source,
		now:    time.Now,
	}
}

// Get 取得目前的快照；尚未載入、已失效或超過存活時間時重新載入
func (s *Snapshot) Get(ctx context.Context) (*Catalog, error) {
	s.mu.RLock()
	current, stale := s.current, s.stale
	s.mu.RUnlock()

	if current != nil && !stale && !s.expired(current) {
		return current, nil
	}

	v, err, _ := s.group.Do("get", func() (interface{}, error) {
		// 等待期間可能已由其他呼叫載入完成
		s.mu.RLock()
		c, stale := s.current, s.stale
		s.mu.RUnlock()
		if c != nil && !stale && !s.expired(c) {
			return c, nil
		}
		return s.Reload(ctx)
	})
	if err != nil {
		if current != nil {
			common.LogWarn("菜單重新載入失敗，沿用舊快照", zap.Error(err))
			return current, nil
		}
		return nil, err
	}
	return v.(*Catalog), nil
}

// Invalidate 標記快照失效，下一次 Get 會重新載入
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	common.LogInfo("菜單快照已失效")
}

// Reload 立即重新載入；同時多個呼叫只會讀取一次來源
func (s *Snapshot) Reload(ctx context.Context) (*Catalog, error) {
	v, err, shared := s.group.Do("reload", func() (interface{}, error) {
		// 合併的呼叫共用結果，第一個呼叫者斷線不能中斷其他等待者
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.load(loadCtx)
	})
	if err != nil {
		return nil, err
	}
	c := v.(*Catalog)
	if !shared {
		common.LogInfo("菜單已載入",
			zap.Int("dishes", len(c.Dishes)),
			zap.Int("districts", len(c.Districts)),
		)
	}
	return c, nil
}

func (s *Snapshot) load(ctx context.Context) (*Catalog, error) {
	dishes, err := s.loader.LoadDishes(ctx, s.source.Menu)
	if err != nil {
		if !errors.Is(err, ErrSourceNotFound) {
			return nil, common.ErrCatalogUnavailable.Wrap(err)
		}
		common.LogWarn("找不到菜單來源，使用空菜單", zap.String("source", s.source.Menu))
		dishes = []Dish{}
	}

	districts, err := s.loader.LoadDistricts(ctx, s.source.Districts)
	if err != nil {
		if !errors.Is(err, ErrSourceNotFound) {
			return nil, common.ErrCatalogUnavailable.Wrap(err)
		}
		common.LogWarn("找不到配送區域來源，使用空清單", zap.String("source", s.source.Districts))
		districts = []string{}
	}

	c := &Catalog{Dishes: dishes, Districts: districts, LoadedAt: s.now()}

	s.mu.Lock()
	s.current = c
	s.stale = false
	s.mu.Unlock()
	return c, nil
}

func (s *Snapshot) expired(c *Catalog) bool {
	return s.source.MaxAge > 0 && s.now().Sub(c.LoadedAt) > s.source.MaxAge
}
