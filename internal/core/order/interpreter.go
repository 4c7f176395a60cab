// Package order 將自由文字的點餐內容解析為「標準菜名 -> 數量」，
// 並提供配送區域比對與菜單驗證。所有函式皆為純函式，可並行呼叫。
package order

import (
	"sazonbot/internal/core/matching"
)

// DefaultThreshold token set ratio 對應的預設門檻
const DefaultThreshold = 65

// Interpreter 點餐文字解析器。建立後不可修改，可被多個請求共用。
type Interpreter struct {
	variants  *VariantTable
	scorer    matching.Scorer
	threshold int
}

// Option 解析器選項
type Option func(*Interpreter)

// WithVariants 指定拼寫變體表
func WithVariants(t *VariantTable) Option {
	return func(i *Interpreter) {
		if t != nil {
			i.variants = t
		}
	}
}

// WithScorer 指定相似度評分函式；scorer 與門檻需成對設定
func WithScorer(s matching.Scorer) Option {
	return func(i *Interpreter) {
		if s != nil {
			i.scorer = s
		}
	}
}

// WithThreshold 指定接受門檻（分數需嚴格大於門檻）
func WithThreshold(threshold int) Option {
	return func(i *Interpreter) {
		i.threshold = threshold
	}
}

// New 建立解析器，預設為內建變體表 + token set ratio + 65
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		variants:  DefaultVariantTable(),
		scorer:    matching.TokenSetRatio,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Threshold 目前使用的門檻
func (i *Interpreter) Threshold() int {
	return i.threshold
}

// Variants 目前使用的變體表
func (i *Interpreter) Variants() *VariantTable {
	return i.variants
}

// Normalize 將片語對應到標準菜名
func (i *Interpreter) Normalize(phrase string) string {
	return i.variants.Normalize(phrase)
}

var defaultInterpreter = New()

// Normalize 使用預設變體表
func Normalize(phrase string) string {
	return defaultInterpreter.Normalize(phrase)
}
