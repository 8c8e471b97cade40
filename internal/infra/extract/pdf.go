package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/hybrid-rag/internal/core/ingestion"
)

// PDFExtractor は PDF からページごとのテキストを取り出す
type PDFExtractor struct{}

// NewPDFExtractor は新しい PDFExtractor を返す
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

var (
	_ ingestion.Extractor   = (*PDFExtractor)(nil)
	_ ingestion.PageCounter = (*PDFExtractor)(nil)
)

// Extract は全ページのテキストを、各ページの末尾に改行を付けて連結する。
// テキストを持たないページは空文字列として扱う。
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err != nil {
				return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
			}
			b.WriteString(text)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// PageCount はページ数を返す
func (e *PDFExtractor) PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	return r.NumPage(), nil
}
