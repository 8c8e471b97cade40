package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jinford/hybrid-rag/internal/core/ingestion"
)

// HTMLExtractor は HTML ファイルから表示テキストを取り出す
type HTMLExtractor struct{}

// NewHTMLExtractor は新しい HTMLExtractor を返す
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

var _ ingestion.Extractor = (*HTMLExtractor)(nil)

// Extract はファイルを読み込んでテキストを返す
func (e *HTMLExtractor) Extract(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open html: %w", err)
	}
	defer f.Close()

	return HTMLText(f)
}

// HTMLText はテキストノードを前後の空白を除いて改行で連結する。
// script / style / template の中身とコメントは含めない。
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, "\n"), nil
}
