package order

import (
	"strings"

	"go.uber.org/zap"

	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/matching"
	"sazonbot/internal/pkg/common"
)

// Extract 解析點餐文字。無法比對的片段會被略過（僅記錄 debug log），不回傳錯誤。
func (i *Interpreter) Extract(utterance string, dishes []catalog.Dish) ResolvedOrder {
	var result ResolvedOrder
	if strings.TrimSpace(utterance) == "" || len(dishes) == 0 {
		return result
	}

	names := catalog.Names(dishes)
	for _, fragment := range SplitFragments(utterance) {
		if fragment.Phrase == "" {
			continue
		}
		normalized := i.Normalize(fragment.Phrase)

		match, ok := matching.BestMatch(normalized, names, i.scorer)
		if !ok || !match.Accepted(i.threshold) {
			common.LogDebug("片段未比對到菜單",
				zap.String("phrase", fragment.Phrase),
				zap.String("normalized", normalized),
				zap.Int("score", match.Score),
				zap.Int("threshold", i.threshold),
			)
			continue
		}

		quantity, ok := ParseQuantity(fragment.Quantity)
		if !ok {
			common.LogDebug("數量為零，略過片段", zap.String("phrase", fragment.Phrase))
			continue
		}
		result.Add(match.Choice, quantity)
	}
	return result
}

// Extract 使用預設解析器
func Extract(utterance string, dishes []catalog.Dish) ResolvedOrder {
	return defaultInterpreter.Extract(utterance, dishes)
}
