// Package matching 提供 0-100 的字串相似度評分與最佳候選挑選。
//
// 評分規則沿用 token set ratio：先做全處理（去重音、轉小寫、非字母數字改為空白），
// 再以詞集合的交集與差集組合字串，取兩兩比對的最高分。
package matching

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scorer 計算 query 與 choice 的相似度（0-100）
type Scorer func(query, choice string) int

// Match 最佳候選結果
type Match struct {
	Choice string
	Index  int
	Score  int
}

// Accepted 分數必須嚴格大於門檻
func (m Match) Accepted(threshold int) bool {
	return m.Score > threshold
}

// ScorerByName 依設定名稱取得 scorer，未知名稱回傳 nil
func ScorerByName(name string) Scorer {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "token_set":
		return TokenSetRatio
	case "partial_ratio":
		return PartialRatio
	default:
		return nil
	}
}

// BestMatch 回傳分數最高的候選；同分時保留最先出現者。choices 為空時 ok 為 false。
func BestMatch(query string, choices []string, scorer Scorer) (best Match, ok bool) {
	if scorer == nil {
		scorer = TokenSetRatio
	}
	for i, choice := range choices {
		score := scorer(query, choice)
		if !ok || score > best.Score {
			best = Match{Choice: choice, Index: i, Score: score}
			ok = true
		}
	}
	return best, ok
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold 去除重音符號並轉為小寫（"Limeña" -> "limena"）
func Fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Process 全處理：去重音、轉小寫、非字母數字轉為空白並壓縮空白
func Process(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Ratio 以 LCS 計算的相似度：2*LCS / (len(a)+len(b))，任一為空時為 0
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := longestCommonSubsequence(ra, rb)
	return round(200 * float64(lcs) / float64(len(ra)+len(rb)))
}

// TokenSetRatio 與詞序、重複詞無關的相似度
func TokenSetRatio(query, choice string) int {
	a, b := Process(query), Process(choice)
	if a == "" || b == "" {
		return 0
	}

	setA, setB := tokenSet(a), tokenSet(b)
	var inter, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(inter, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	return max(Ratio(sect, combinedA), Ratio(sect, combinedB), Ratio(combinedA, combinedB))
}

// PartialRatio 較短字串與較長字串中最相似片段的分數
func PartialRatio(query, choice string) int {
	a, b := []rune(Process(query)), []rune(Process(choice))
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	shorter := string(a)
	best := 0
	for start := 0; start+len(a) <= len(b); start++ {
		score := Ratio(shorter, string(b[start:start+len(a)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func round(f float64) int {
	return int(math.Round(f))
}
