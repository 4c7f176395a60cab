package orderlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// CSVSink 以附加模式寫入 CSV，不寫標題列
// 欄位順序：Fecha y Hora, Distrito, Plato, Cantidad
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink 建立 CSV 寫入端，必要時建立上層目錄
func NewCSVSink(path string) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create order log directory: %w", err)
		}
	}
	return &CSVSink{path: path}, nil
}

// Write 附加紀錄
func (s *CSVSink) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open order log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, r := range records {
		row := []string{
			r.Timestamp.Format(TimeLayout),
			r.District,
			r.Dish,
			strconv.Itoa(r.Quantity),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write order log: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush order log: %w", err)
	}
	return nil
}

// Close 無需釋放資源
func (s *CSVSink) Close() error {
	return nil
}
