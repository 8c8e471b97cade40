package chunk

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
)

const (
	// DefaultChunkSize はチャンクの最大文字数のデフォルト値
	DefaultChunkSize = 1000

	// DefaultChunkOverlap は隣接チャンク間で重複させる文字数のデフォルト値
	DefaultChunkOverlap = 200
)

const sentenceSeparator = ". "

// defaultSeparators は段落 → 行 → 文 → 単語 → 文字の順に試す区切り
var defaultSeparators = []string{"\n\n", "\n", sentenceSeparator, " ", ""}

// Splitter は区切りを段階的に細かくしながらテキストを再帰的に分割する
type Splitter struct {
	size       int
	overlap    int
	separators []string
	now        func() time.Time
}

// SplitterOption は Splitter のオプション設定
type SplitterOption func(*Splitter)

// WithClock は CreatedAt に使う時計を差し替える
func WithClock(now func() time.Time) SplitterOption {
	return func(s *Splitter) {
		s.now = now
	}
}

// NewSplitter は新しい Splitter を作成する。size は正、overlap は 0 以上 size 未満である必要がある。
func NewSplitter(size, overlap int, opts ...SplitterOption) (*Splitter, error) {
	if size <= 0 {
		return nil, apperror.Validation("chunk.new", "chunk size must be positive: %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, apperror.Validation("chunk.new", "chunk overlap must be in [0, %d): %d", size, overlap)
	}

	s := &Splitter{
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Size はチャンクの最大文字数を返す
func (s *Splitter) Size() int {
	return s.size
}

// Overlap はオーバーラップ文字数を返す
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Chunk はテキストを分割し、位置と由来情報を付与したチャンク列を返す。
// 同じ入力と設定に対しては常に同じテキスト列を返す。
func (s *Splitter) Chunk(text, sourcePath string, fileType FileType) []Chunk {
	pieces := s.Split(text)
	createdAt := s.now()

	chunks := make([]Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = Chunk{
			Text:        piece,
			SourcePath:  sourcePath,
			FileType:    fileType,
			ChunkIndex:  i,
			TotalChunks: len(pieces),
			CreatedAt:   createdAt,
		}
	}
	return chunks
}

// Split はテキストのみを分割して返す
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// テキスト中に現れる最初の区切りを選ぶ。空文字は常に一致する
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		chunks []string
		good   []string
	)
	for _, piece := range splitKeepingSeparator(text, separator) {
		if length(piece) < s.size {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}

	return chunks
}

// merge は size を超えない範囲で断片を連結する。
// 新しいチャンクを始めるときは、直前のチャンク末尾の断片を overlap 以下になるまで引き継ぐ。
func (s *Splitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := length(piece)
		if total+n > s.size && len(current) > 0 {
			if doc, ok := join(current); ok {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc, ok := join(current); ok {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator は区切りを後続断片の先頭に残して分割し、空の断片を除く。
// 文の区切りは句点を直前の断片の末尾に、空白を後続断片の先頭に残す。
func splitKeepingSeparator(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	head, tail := "", separator
	if separator == sentenceSeparator {
		head, tail = ".", " "
	}

	raw := strings.Split(text, separator)
	parts = make([]string, 0, len(raw))
	for i, p := range raw {
		if i > 0 {
			p = tail + p
		}
		if i < len(raw)-1 {
			p += head
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func join(pieces []string) (string, bool) {
	doc := strings.TrimSpace(strings.Join(pieces, ""))
	return doc, doc != ""
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
