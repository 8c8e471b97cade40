package dataset

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// wordOverlapWeight は共通単語ボーナスの重み
	wordOverlapWeight = 0.2

	// keywordWeight はキーワード一致率の重み
	keywordWeight = 0.3
)

// FindBestMatch は items の中からクエリに最も近い項目を探す。
// 複合スコアが閾値以上かつ暫定最大値を上回った項目のみが採用され、同点の場合は先に現れた項目が残る。
func FindBestMatch(items []Item, query string, threshold float64) (*Match, bool) {
	var (
		best      *Match
		bestScore float64
	)

	for i, item := range items {
		score := CombinedScore(query, item)
		if score > bestScore && score >= threshold {
			bestScore = score
			best = &Match{
				Item:            item.clone(),
				Index:           i,
				SimilarityScore: score,
			}
		}
	}

	return best, best != nil
}

// CombinedScore は質問類似度とキーワードボーナスの合計を返す。上限 1.0 での切り詰めは行わない。
func CombinedScore(query string, item Item) float64 {
	return TextSimilarity(query, item.Question) + KeywordScore(query, item.Keywords)*keywordWeight
}

// TextSimilarity は Ratcliff/Obershelp 比率に共通単語ボーナスを加えた類似度を返す（最大 1.0）
func TextSimilarity(a, b string) float64 {
	lowerA := strings.ToLower(a)
	lowerB := strings.ToLower(b)

	matcher := difflib.NewMatcher(splitRunes(lowerA), splitRunes(lowerB))
	similarity := matcher.Ratio()

	wordsA := wordSet(lowerA)
	wordsB := wordSet(lowerB)

	common := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			common++
		}
	}

	if common > 0 {
		similarity += float64(common) / float64(max(len(wordsA), len(wordsB))) * wordOverlapWeight
	}

	return min(similarity, 1.0)
}

// KeywordScore はクエリに部分文字列として含まれるキーワードの割合を返す
func KeywordScore(query string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	lowerQuery := strings.ToLower(query)
	matches := 0
	for _, keyword := range keywords {
		if strings.Contains(lowerQuery, strings.ToLower(keyword)) {
			matches++
		}
	}

	return float64(matches) / float64(len(keywords))
}

// splitRunes は文字列を1文字ずつの要素に分割する
func splitRunes(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
