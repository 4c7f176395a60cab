package order

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Variant 一道菜的標準名稱與其常見錯字、縮寫、同義詞
type Variant struct {
	Canonical string   `json:"canonical"`
	Variants  []string `json:"variants"`
}

// VariantTable 有序的拼寫變體表。順序即優先順序：第一個命中的標準名稱勝出。
type VariantTable struct {
	entries []Variant
}

// NewVariantTable 建立變體表，變體一律轉為小寫並略過空字串
func NewVariantTable(entries []Variant) *VariantTable {
	t := &VariantTable{entries: make([]Variant, 0, len(entries))}
	for _, e := range entries {
		canonical := strings.TrimSpace(e.Canonical)
		if canonical == "" {
			continue
		}
		lowered := make([]string, 0, len(e.Variants))
		for _, v := range e.Variants {
			v = strings.ToLower(v)
			if strings.TrimSpace(v) == "" {
				continue
			}
			lowered = append(lowered, v)
		}
		t.entries = append(t.entries, Variant{Canonical: canonical, Variants: lowered})
	}
	return t
}

// Entries 回傳變體表副本
func (t *VariantTable) Entries() []Variant {
	out := make([]Variant, len(t.entries))
	for i, e := range t.entries {
		out[i] = Variant{Canonical: e.Canonical, Variants: append([]string(nil), e.Variants...)}
	}
	return out
}

// Len 標準名稱數量
func (t *VariantTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Normalize 將片語對應到第一個變體命中的標準名稱；沒有命中時回傳小寫後的原片語
func (t *VariantTable) Normalize(phrase string) string {
	lower := strings.ToLower(phrase)
	if lower == "" || t == nil {
		return lower
	}
	for _, e := range t.entries {
		for _, v := range e.Variants {
			if strings.Contains(lower, v) {
				return e.Canonical
			}
		}
	}
	return lower
}

// ParseVariantTable 解析 JSON 物件 {"標準名稱": ["變體", ...]}，保留鍵的順序
func ParseVariantTable(data []byte) (*VariantTable, error) {
	om := orderedmap.New()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, fmt.Errorf("failed to parse variant table: %w", err)
	}

	entries := make([]Variant, 0, len(om.Keys()))
	for _, key := range om.Keys() {
		raw, _ := om.Get(key)
		list, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("variants for %q must be a list of strings", key)
		}
		variants := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("variants for %q must be a list of strings", key)
			}
			variants = append(variants, s)
		}
		entries = append(entries, Variant{Canonical: key, Variants: variants})
	}
	return NewVariantTable(entries), nil
}

// LoadVariantTable 從 JSON 檔載入變體表
func LoadVariantTable(path string) (*VariantTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variant table: %w", err)
	}
	return ParseVariantTable(data)
}

// DefaultVariantTable 內建的秘魯料理變體表
func DefaultVariantTable() *VariantTable {
	return NewVariantTable(defaultVariants)
}

var defaultVariants = []Variant{
	{Canonical: "Arroz con Pollo", Variants: []string{
		"arroz con pollo", "arroz cn pollo", "arroz conpllo", "arr0z con pollo",
		"arroz c/ pollo", "arroz pollo", "arrozconpollo", "arroz, pollo",
	}},
	{Canonical: "Tallarines Verdes", Variants: []string{
		"tallarines verdes", "talarines verdes", "tallarinesv verdes", "tallarines vrdes",
		"tallarines vrd", "tallarine$ verdes", "tallarines",
	}},
	{Canonical: "Lomo Saltado", Variants: []string{
		"lomo saltado", "lomo$altado", "lomo sltado", "lomo s/tado", "lomosaltado", "lomo",
	}},
	{Canonical: "Causa Limeña", Variants: []string{
		"causa limena", "causalimeña", "causa limeña", "cau$a limeña", "causa",
	}},
	{Canonical: "Ají de Gallina", Variants: []string{
		"aji de gallina", "aji gallina", "ají de gallina", "ajies de gallina", "ajis de gallina",
		"aji de gallin", "ajies", "ajíes", "ajis", "aji's", "ajíé de gallina",
	}},
	{Canonical: "Pollo a la Brasa", Variants: []string{
		"pollo a la brasa", "polloala brasa", "pollo brasa", "p0llo a la brasa", "brasa",
	}},
	{Canonical: "Seco de Cordero", Variants: []string{
		"seco de cordero", "sec0 de cordero", "seco cordero", "sec0 cordero", "seco",
	}},
	{Canonical: "Pachamanca", Variants: []string{
		"pachamanca", "pachamanc", "pachamanka", "pacha manka", "pacha mnka", "pacha manca",
	}},
	{Canonical: "Tacu Tacu", Variants: []string{
		"tacu tacu", "tacutacu", "tacu-tacu", "tacutac", "tacutac$",
	}},
	{Canonical: "Sopa a la Minuta", Variants: []string{
		"sopa a la minuta", "sopaala minuta", "sopa a la mnuta", "sopa min", "sopa mn",
	}},
	{Canonical: "Rocoto Relleno", Variants: []string{
		"rocoto relleno", "rocoto rellen", "rocotorellen", "rocoto rllen",
	}},
	{Canonical: "Chicharrón de Cerdo", Variants: []string{
		"chicharron de cerdo", "chicharrones cerdo", "chicharrones", "chicharrón de cerdo",
		"chicharron", "chicharron cerdo", "chicharron d cerdo",
	}},
	{Canonical: "Sanguchito de Chicharrón", Variants: []string{
		"sanguchito de chicharron", "sanguchito chicharrón", "sanguchitos chicharrón",
		"sanguchito de chicharrón", "sanguchito", "sanguchitodechicharrón",
	}},
	{Canonical: "Pescado a la Plancha", Variants: []string{
		"pescado a la plancha", "pesacado a la plancha", "pescado plancha", "pesca d a la plancha",
	}},
	{Canonical: "Bistec a la parrilla", Variants: []string{
		"bistec a la parrilla", "bistec la parrilla", "bistec parrilla", "bistec a la prrilla", "bistec parrila",
	}},
	{Canonical: "Tortilla de Huauzontle", Variants: []string{
		"tortilla de huauzontle", "tortilla huauzontle", "tortilla de huauzonlte", "tortila de huauzontle",
	}},
	{Canonical: "Ceviche Clásico", Variants: []string{
		"ceviche clasico", "cevichelásico", "ceviche clásico", "cevi chclásico", "ceviche clsc",
	}},
	{Canonical: "Sopa Criolla", Variants: []string{
		"sopa criolla", "sopacriolla", "sopa crll", "sopa c.",
	}},
	{Canonical: "Pollo en Salsa de Cacahuate", Variants: []string{
		"pollo en salsa de cacahuate", "pollo en salsa cacahuate", "pollo s/cacahuate",
		"polloen salsacahuate", "salsa de cacahuate",
	}},
	{Canonical: "Ensalada de Quinoa", Variants: []string{
		"ensalada de quinoa", "ensalada quinoa", "ensalqdadequinoa", "ensalada d quinoa",
		"ensaladas quinoa", "ensalada", "quinoa",
	}},
	{Canonical: "Anticuchos", Variants: []string{
		"anticuchos", "anticucho", "antichucos", "antochucos", "anticuhos", "anticuchos$",
	}},
	{Canonical: "Bebidas Naturales", Variants: []string{
		"bebidas naturales", "bebida$ naturales", "bebida natural", "bebidn naturales",
		"beidas natrales", "bebidas",
	}},
}
