package orderlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"sazonbot/internal/core/order"
	"sazonbot/internal/pkg/common"
)

var fixedTime = time.Date(2024, 10, 3, 13, 45, 9, 0, time.UTC)

func sampleOrder() order.ResolvedOrder {
	var o order.ResolvedOrder
	o.Add("Ceviche", 2)
	o.Add("Causa", 3)
	return o
}

func TestRecordsFor(t *testing.T) {
	t.Parallel()

	got := RecordsFor(sampleOrder(), "Miraflores", fixedTime)
	want := []Record{
		{Timestamp: fixedTime, District: "Miraflores", Dish: "Ceviche", Quantity: 2},
		{Timestamp: fixedTime, District: "Miraflores", Dish: "Causa", Quantity: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RecordsFor = %#v", got)
	}
	if got := RecordsFor(order.ResolvedOrder{}, "Miraflores", fixedTime); len(got) != 0 {
		t.Fatalf("empty order produced %d records", len(got))
	}
}

func TestCSVSinkAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "orders.csv")
	sink, err := NewCSVSink(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := sink.Write(ctx, RecordsFor(sampleOrder(), "Miraflores", fixedTime)); err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(ctx, []Record{{Timestamp: fixedTime, District: "San Isidro", Dish: "Lomo Saltado, grande", Quantity: 1}}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "2024-10-03 13:45:09,Miraflores,Ceviche,2\n" +
		"2024-10-03 13:45:09,Miraflores,Causa,3\n" +
		"2024-10-03 13:45:09,San Isidro,\"Lomo Saltado, grande\",1\n"
	if string(data) != want {
		t.Fatalf("csv content:\n%s\nwant:\n%s", data, want)
	}
}

func TestCSVSinkRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := NewCSVSink(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestQueueDrainsOnClose(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	q := NewQueue(sink, 2, 10)
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(context.Background(), RecordsFor(sampleOrder(), "Barranco", fixedTime)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	if got := len(sink.Records()); got != 10 {
		t.Fatalf("sink has %d records, want 10", got)
	}
	if st := q.GetQueueStatus(); st.ProcessedCount != 5 || st.FailedCount != 0 {
		t.Fatalf("status = %+v", st)
	}

	err := q.Enqueue(context.Background(), RecordsFor(sampleOrder(), "Barranco", fixedTime))
	if !errors.Is(err, common.ErrOrderLogFailed) {
		t.Fatalf("enqueue after close = %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatal("second Close should be a no-op")
	}
}

type blockingSink struct {
	release chan struct{}
	*MemorySink
}

func (b *blockingSink) Write(ctx context.Context, records []Record) error {
	<-b.release
	return b.MemorySink.Write(ctx, records)
}

func TestQueueFull(t *testing.T) {
	t.Parallel()

	sink := &blockingSink{release: make(chan struct{}), MemorySink: NewMemorySink()}
	q := NewQueue(sink, 1, 1)
	records := RecordsFor(sampleOrder(), "Miraflores", fixedTime)

	// 第一筆被 worker 取走並卡住，第二筆佔滿隊列
	var full error
	for i := 0; i < 3 && full == nil; i++ {
		full = q.Enqueue(context.Background(), records)
	}
	if !errors.Is(full, common.ErrOrderLogFull) {
		t.Fatalf("expected ErrOrderLogFull, got %v", full)
	}

	close(sink.release)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestQueueCountsFailures(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	sink.FailWith(errors.New("disk full"))
	q := NewQueue(sink, 1, 4)
	if err := q.Enqueue(context.Background(), RecordsFor(sampleOrder(), "Miraflores", fixedTime)); err != nil {
		t.Fatal(err)
	}
	_ = q.Close()

	if st := q.GetQueueStatus(); st.FailedCount != 1 || st.ProcessedCount != 0 {
		t.Fatalf("status = %+v", st)
	}
}

func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("APP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("APP_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	sink, err := NewPostgresSink(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresSink: %v", err)
	}
	defer sink.Close()

	district := "test-" + strings.ReplaceAll(time.Now().Format(time.RFC3339Nano), ":", "")
	if err := sink.Write(ctx, RecordsFor(sampleOrder(), district, fixedTime)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var n int
	if err := sink.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM orders_log WHERE district = $1`, district).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("stored quantity = %d, want 5", n)
	}
}
