package order

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// quantityWords 西班牙文數量詞與資料中常見的錯字
var quantityWords = map[string]int{
	"un":           1,
	"uno":          1,
	"una":          1,
	"uuno":         1,
	"dos":          2,
	"tres":         3,
	"cuatro":       4,
	"cinco":        5,
	"seis":         6,
	"siex":         6,
	"siete":        7,
	"ocho":         8,
	"nueve":        9,
	"diez":         10,
	"decena":       10,
	"once":         11,
	"doce":         12,
	"docena":       12,
	"media":        6,
	"media docena": 6,
	"doscenas":     24,
	"cien":         100,
	"ciento":       100,
	"mil":          1000,
}

// fragmentPattern：可選的數量（數字或數量詞）+ 直到下一個數字為止的片語
var fragmentPattern = buildFragmentPattern()

func buildFragmentPattern() *regexp.Regexp {
	words := make([]string, 0, len(quantityWords))
	for w := range quantityWords {
		words = append(words, w)
	}
	// 長的優先，"media docena" 要比 "media" 先嘗試
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?:(\d+)|(` + strings.Join(words, "|") + `)\b)?\s*(\D+)`)
}

// SplitFragments 將小寫化後的文字切成 (數量, 片語) 片段，依出現順序
func SplitFragments(utterance string) []Fragment {
	lower := strings.ToLower(utterance)
	matches := fragmentPattern.FindAllStringSubmatch(lower, -1)
	fragments := make([]Fragment, 0, len(matches))
	for _, m := range matches {
		quantity := m[1]
		if quantity == "" {
			quantity = m[2]
		}
		fragments = append(fragments, Fragment{
			Quantity: quantity,
			Phrase:   strings.TrimSpace(m[3]),
		})
	}
	return fragments
}

// ParseQuantity 數量解析：空白為 1，數字直接轉換，數量詞查表，無法辨識為 1。
// 數量為 0 時 ok 為 false。
func ParseQuantity(token string) (int, bool) {
	token = strings.TrimSpace(strings.ToLower(token))
	if token == "" {
		return 1, true
	}
	if isDigits(token) {
		n, err := strconv.Atoi(token)
		if err != nil {
			return 1, true
		}
		return n, n > 0
	}
	if n, ok := quantityWords[token]; ok {
		return n, true
	}
	return 1, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
