package order

import (
	"strings"

	"sazonbot/internal/core/matching"
)

// ResolveDistrict 找出最相近的配送區域；空白輸入不評分直接回傳 false
func (i *Interpreter) ResolveDistrict(text string, districts []string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	match, ok := matching.BestMatch(text, districts, i.scorer)
	if !ok || !match.Accepted(i.threshold) {
		return "", false
	}
	return match.Choice, true
}

// ResolveDistrict 使用預設解析器
func ResolveDistrict(text string, districts []string) (string, bool) {
	return defaultInterpreter.ResolveDistrict(text, districts)
}
