package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEncoder struct{}

func (stubEncoder) Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int {
	return make([]int, len(text))
}

func TestTokenCounter_FallbackEstimate(t *testing.T) {
	counter := &TokenCounter{}

	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "abc", want: 0},
		{text: "abcd", want: 1},
		{text: "abcdefghi", want: 2},
		{text: "勇気とは何か", want: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, counter.Count(tt.text), tt.text)
	}
}

func TestTokenCounter_UsesEncoder(t *testing.T) {
	counter := &TokenCounter{enc: stubEncoder{}}
	assert.Equal(t, 5, counter.Count("hello"))
}
