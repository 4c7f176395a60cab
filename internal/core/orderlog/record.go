// Package orderlog 將確認後的訂單寫入紀錄（CSV 檔或 PostgreSQL），
// 每道菜一筆 {時間, 配送區域, 菜名, 數量}。
package orderlog

import (
	"context"
	"time"

	"sazonbot/internal/core/order"
)

// TimeLayout CSV 紀錄使用的時間格式
const TimeLayout = "2006-01-02 15:04:05"

// Record 一筆訂單紀錄
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	District  string    `json:"district"`
	Dish      string    `json:"dish"`
	Quantity  int       `json:"quantity"`
}

// RecordsFor 將訂單展開為紀錄，順序與訂單一致
func RecordsFor(o order.ResolvedOrder, district string, now time.Time) []Record {
	lines := o.Lines()
	records := make([]Record, 0, len(lines))
	for _, l := range lines {
		records = append(records, Record{
			Timestamp: now,
			District:  district,
			Dish:      l.Dish,
			Quantity:  l.Quantity,
		})
	}
	return records
}

// Sink 訂單紀錄的寫入端
type Sink interface {
	Write(ctx context.Context, records []Record) error
	Close() error
}
