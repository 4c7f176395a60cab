package orderlog

import (
	"context"
	"sync"
)

// MemorySink 保存在記憶體中的紀錄，用於停用紀錄或測試
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	err     error
}

// NewMemorySink 建立記憶體寫入端
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write 保存紀錄
func (s *MemorySink) Write(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, records...)
	return nil
}

// FailWith 之後的寫入一律回傳 err（nil 取消）
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Records 回傳已保存紀錄的副本
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Close 無需釋放資源
func (s *MemorySink) Close() error {
	return nil
}
