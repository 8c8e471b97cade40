package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeywords(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "ストップワードと句読点を除外",
			question: "What is the meaning of courage?",
			want:     []string{"meaning", "courage"},
		},
		{
			name:     "2文字以下の語を除外",
			question: "AI ok go deploy",
			want:     []string{"deploy"},
		},
		{
			name:     "先頭8語に制限",
			question: "alpha bravo charlie delta echo foxtrot golf hotel india juliet",
			want:     []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"},
		},
		{
			name:     "小文字化して出現順を維持",
			question: "Why do Boys hide Emotions?",
			want:     []string{"boys", "hide", "emotions"},
		},
		{
			name:     "全てストップワード",
			question: "what is it",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateKeywords(tt.question))
		})
	}
}
