package dataset

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxKeywords は自動生成するキーワードの上限
const maxKeywords = 8

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopWords = toSet(
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your", "yours",
	"yourself", "yourselves", "he", "him", "his", "himself", "she", "her", "hers", "herself",
	"it", "its", "itself", "they", "them", "their", "theirs", "themselves", "what", "which",
	"who", "whom", "this", "that", "these", "those", "am", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of", "at", "by",
	"for", "with", "against", "between", "into", "through", "during", "before", "after",
	"above", "below", "from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some", "such", "no",
	"nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t", "can",
	"will", "just", "don", "should", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain",
	"aren", "couldn", "didn", "doesn", "hadn", "hasn", "haven", "isn", "ma", "mightn",
	"mustn", "needn", "shan", "shouldn", "wasn", "weren", "won", "wouldn",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// GenerateKeywords は質問文からキーワードを抽出する。
// 小文字化した単語からストップワードと2文字以下の語を除き、出現順に先頭8語を返す。
func GenerateKeywords(question string) []string {
	words := wordPattern.FindAllString(strings.ToLower(question), -1)

	keywords := make([]string, 0, maxKeywords)
	for _, word := range words {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
