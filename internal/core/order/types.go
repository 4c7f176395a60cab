package order

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Fragment 一段「數量 + 片語」的解析結果，Quantity 可能為空
type Fragment struct {
	Quantity string
	Phrase   string
}

// Line 訂單中的一道菜
type Line struct {
	Dish     string `json:"dish" msgpack:"dish"`
	Quantity int    `json:"quantity" msgpack:"quantity"`
}

// ResolvedOrder 標準菜名 -> 累計數量，保留首次出現的順序
type ResolvedOrder struct {
	lines []Line
	index map[string]int
}

// FromLines 由既有明細重建訂單，相同菜名會累加
func FromLines(lines []Line) ResolvedOrder {
	var o ResolvedOrder
	for _, l := range lines {
		o.Add(l.Dish, l.Quantity)
	}
	return o
}

// Add 加入數量；菜名已存在時累加。非正數量會被忽略。
func (o *ResolvedOrder) Add(dish string, quantity int) {
	if dish == "" || quantity <= 0 {
		return
	}
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[dish]; ok {
		// 累加到 math.MaxInt 為止，避免溢位成負數
		if quantity > math.MaxInt-o.lines[i].Quantity {
			o.lines[i].Quantity = math.MaxInt
		} else {
			o.lines[i].Quantity += quantity
		}
		return
	}
	o.index[dish] = len(o.lines)
	o.lines = append(o.lines, Line{Dish: dish, Quantity: quantity})
}

// Quantity 查詢菜名數量
func (o ResolvedOrder) Quantity(dish string) (int, bool) {
	i, ok := o.index[dish]
	if !ok {
		return 0, false
	}
	return o.lines[i].Quantity, true
}

// Lines 依出現順序回傳明細副本
func (o ResolvedOrder) Lines() []Line {
	return append([]Line(nil), o.lines...)
}

// Names 依出現順序回傳菜名
func (o ResolvedOrder) Names() []string {
	names := make([]string, len(o.lines))
	for i, l := range o.lines {
		names[i] = l.Dish
	}
	return names
}

// Len 菜名數量
func (o ResolvedOrder) Len() int {
	return len(o.lines)
}

// IsEmpty 是否沒有任何菜
func (o ResolvedOrder) IsEmpty() bool {
	return len(o.lines) == 0
}

// Map 轉為一般 map
func (o ResolvedOrder) Map() map[string]int {
	m := make(map[string]int, len(o.lines))
	for _, l := range o.lines {
		m[l.Dish] = l.Quantity
	}
	return m
}

// String 例如 "2 x Ceviche, 3 x Causa"
func (o ResolvedOrder) String() string {
	parts := make([]string, len(o.lines))
	for i, l := range o.lines {
		parts[i] = fmt.Sprintf("%d x %s", l.Quantity, l.Dish)
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON 輸出為 {"菜名": 數量}
func (o ResolvedOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Map())
}

// Outcome 驗證結果：菜單內的品項與菜單外的菜名，兩者不重疊
type Outcome struct {
	Available   ResolvedOrder `json:"available"`
	Unavailable []string      `json:"unavailable"`
}

// AllAvailable 沒有任何菜單外的菜名
func (o Outcome) AllAvailable() bool {
	return len(o.Unavailable) == 0
}
