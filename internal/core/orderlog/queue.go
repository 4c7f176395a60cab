package orderlog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sazonbot/internal/pkg/common"
)

// writeTimeout 單批紀錄寫入的時間上限
const writeTimeout = 10 * time.Second

var errQueueClosed = errors.New("order log queue is closed")

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
}

// Queue 訂單紀錄隊列：有上限的 channel + 固定數量的 worker，寫入 Sink
type Queue struct {
	sink    Sink
	queue   chan []Record
	workers int
	size    int

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool

	processed int64
	failed    int64
}

// NewQueue 建立並啟動隊列
func NewQueue(sink Sink, workers, size int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	q := &Queue{
		sink:    sink,
		queue:   make(chan []Record, size),
		workers: workers,
		size:    size,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	common.LogInfo("訂單紀錄隊列已啟動",
		zap.Int("workers", workers),
		zap.Int("max_queue_size", size),
	)
	return q
}

// Enqueue 將一筆訂單的紀錄加入隊列；隊列已滿時立即回傳 ErrOrderLogFull
func (q *Queue) Enqueue(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return common.ErrOrderLogFailed.Wrap(errQueueClosed)
	}

	select {
	case q.queue <- records:
		common.LogDebug("訂單紀錄已加入隊列",
			zap.Int("records", len(records)),
			zap.Int("queue_length", len(q.queue)),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		common.LogWarn("訂單紀錄隊列已滿", zap.Int("max_queue_size", q.size))
		return common.ErrOrderLogFull
	}
}

// GetQueueStatus 取得隊列狀態
func (q *Queue) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(q.queue),
		MaxQueueSize:   q.size,
		Workers:        q.workers,
		ProcessedCount: atomic.LoadInt64(&q.processed),
		FailedCount:    atomic.LoadInt64(&q.failed),
	}
}

// Close 停止接收新紀錄，等待隊列寫完後關閉 Sink
func (q *Queue) Close() error {
	var err error
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.queue)
		q.mu.Unlock()

		q.wg.Wait()
		err = q.sink.Close()
	})
	return err
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for records := range q.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := q.sink.Write(ctx, records)
		cancel()

		if err != nil {
			atomic.AddInt64(&q.failed, 1)
			common.LogError("訂單紀錄寫入失敗",
				zap.Int("worker", id),
				zap.Int("records", len(records)),
				zap.Error(err),
			)
			continue
		}
		atomic.AddInt64(&q.processed, 1)
		common.LogInfo("訂單已記錄",
			zap.String("district", records[0].District),
			zap.Int("dishes", len(records)),
		)
	}
}
