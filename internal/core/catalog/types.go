package catalog

import (
	"strings"
	"time"
)

// Dish 菜單品項
type Dish struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Districts   []string `json:"districts,omitempty"` // 空白代表所有配送區域皆供應
}

// AvailableIn 檢查品項是否在指定配送區域供應（不分大小寫的子字串比對）
func (d Dish) AvailableIn(district string) bool {
	if len(d.Districts) == 0 {
		return true
	}
	district = strings.ToLower(strings.TrimSpace(district))
	if district == "" {
		return false
	}
	for _, name := range d.Districts {
		if strings.Contains(strings.ToLower(name), district) {
			return true
		}
	}
	return false
}

// Names 取出品項名稱，保留原順序
func Names(dishes []Dish) []string {
	names := make([]string, len(dishes))
	for i, d := range dishes {
		names[i] = d.Name
	}
	return names
}

// Catalog 一次載入的菜單與配送區域快照，載入後不可修改
type Catalog struct {
	Dishes    []Dish    `json:"dishes"`
	Districts []string  `json:"districts"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// DishNames 菜單品項名稱
func (c *Catalog) DishNames() []string {
	if c == nil {
		return nil
	}
	return Names(c.Dishes)
}

// Dish 依標準名稱查詢品項
func (c *Catalog) Dish(name string) (Dish, bool) {
	if c == nil {
		return Dish{}, false
	}
	for _, d := range c.Dishes {
		if d.Name == name {
			return d, true
		}
	}
	return Dish{}, false
}

// DishesForDistrict 指定配送區域供應的品項
func (c *Catalog) DishesForDistrict(district string) []Dish {
	if c == nil {
		return nil
	}
	out := make([]Dish, 0, len(c.Dishes))
	for _, d := range c.Dishes {
		if d.AvailableIn(district) {
			out = append(out, d)
		}
	}
	return out
}

// Empty 菜單與配送區域皆為空
func (c *Catalog) Empty() bool {
	return c == nil || (len(c.Dishes) == 0 && len(c.Districts) == 0)
}
