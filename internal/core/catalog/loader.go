package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/xuri/excelize/v2"
)

// 欄位名稱
const (
	columnDish        = "plato"
	columnDescription = "descripción"
	columnDescAlt     = "descripcion"
	columnPrice       = "precio"
	columnDistricts   = "distrito disponible"
	columnDistrict    = "distrito"
)

const (
	dishDelimiter     = ';'
	districtDelimiter = ','
)

// ErrSourceNotFound 來源不存在（檔案不存在或遠端回傳 404）
var ErrSourceNotFound = errors.New("catalog source not found")

// Loader 從檔案路徑或 URL 讀取菜單與配送區域
type Loader struct {
	client *resty.Client
}

// NewLoader 建立載入器；timeout 用於遠端來源
func NewLoader(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")
	return &Loader{client: client}
}

// LoadDishes 載入菜單。來源可為 .csv（分號分隔）、.xlsx 或 http(s) URL。
func (l *Loader) LoadDishes(ctx context.Context, source string) ([]Dish, error) {
	rows, err := l.readRows(ctx, source, dishDelimiter)
	if err != nil {
		return nil, err
	}
	dishes, err := parseDishes(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return dishes, nil
}

// LoadDistricts 載入配送區域。來源可為 .csv（逗號分隔）、.xlsx 或 http(s) URL。
func (l *Loader) LoadDistricts(ctx context.Context, source string) ([]string, error) {
	rows, err := l.readRows(ctx, source, districtDelimiter)
	if err != nil {
		return nil, err
	}
	districts, err := parseDistricts(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return districts, nil
}

func (l *Loader) readRows(ctx context.Context, source string, delimiter rune) ([][]string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrSourceNotFound
	}

	if isURL(source) {
		data, err := l.fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		if isSpreadsheet(urlPath(source)) {
			return readSpreadsheet(bytes.NewReader(data))
		}
		return readCSV(bytes.NewReader(data), delimiter)
	}

	if isSpreadsheet(source) {
		f, err := excelize.OpenFile(source)
		if err != nil {
			return nil, wrapOpenError(source, err)
		}
		defer f.Close()
		return firstSheetRows(f)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, wrapOpenError(source, err)
	}
	defer f.Close()
	return readCSV(f, delimiter)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, ErrSourceNotFound)
	case resp.IsError():
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode())
	}
	return resp.Body(), nil
}

func wrapOpenError(source string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", source, ErrSourceNotFound)
	}
	return fmt.Errorf("failed to open %s: %w", source, err)
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func readSpreadsheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spreadsheet: %w", err)
	}
	defer f.Close()
	return firstSheetRows(f)
}

func firstSheetRows(f *excelize.File) ([][]string, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func parseDishes(rows [][]string) ([]Dish, error) {
	if len(rows) == 0 {
		return []Dish{}, nil
	}
	header := headerIndex(rows[0])
	nameCol, ok := header[columnDish]
	if !ok {
		return nil, fmt.Errorf("missing %q column", "Plato")
	}
	descCol, ok := header[columnDescription]
	if !ok {
		descCol, ok = header[columnDescAlt]
	}
	if !ok {
		descCol = -1
	}
	priceCol, ok := header[columnPrice]
	if !ok {
		priceCol = -1
	}
	districtsCol, ok := header[columnDistricts]
	if !ok {
		districtsCol = -1
	}

	dishes := make([]Dish, 0, len(rows)-1)
	seen := make(map[string]struct{}, len(rows)-1)
	for i, row := range rows[1:] {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		price, err := parsePrice(cell(row, priceCol))
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i+2, name, err)
		}
		seen[name] = struct{}{}
		dishes = append(dishes, Dish{
			Name:        name,
			Description: cell(row, descCol),
			Price:       price,
			Districts:   splitDistricts(cell(row, districtsCol)),
		})
	}
	return dishes, nil
}

func parseDistricts(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return []string{}, nil
	}
	col, ok := headerIndex(rows[0])[columnDistrict]
	if !ok {
		return nil, fmt.Errorf("missing %q column", "Distrito")
	}
	districts := make([]string, 0, len(rows)-1)
	seen := make(map[string]struct{}, len(rows)-1)
	for _, row := range rows[1:] {
		name := cell(row, col)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		districts = append(districts, name)
	}
	return districts, nil
}

// parsePrice 接受 "25", "25.50", "S/ 25,50"；空白視為 0
func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "S/")
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %q", raw)
	}
	return price, nil
}

func splitDistricts(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '|' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func urlPath(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return path.Base(source)
}

func isSpreadsheet(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}
