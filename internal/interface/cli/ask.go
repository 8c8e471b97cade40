package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/hybrid-rag/internal/core/rag"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")

	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	resp, err := appCtx.Container.Service.Query(ctx, rag.Query{
		Text:      question,
		MaxTokens: int(cmd.Int("max-tokens")),
		K:         int(cmd.Int("k")),
	})
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	printAnswer(os.Stdout, resp, showSources)
	return nil
}

// printAnswer は回答と、指定があれば参照ソースを出力する
func printAnswer(w io.Writer, resp *rag.QueryResponse, showSources bool) {
	fmt.Fprintln(w, resp.Answer)

	if !showSources || len(resp.Sources) == 0 {
		return
	}

	fmt.Fprintln(w, "\n--- 参照ソース ---")
	for i, src := range resp.Sources {
		label := src.Type
		if label == "" {
			label, _ = src.Metadata["source"].(string)
		}
		fmt.Fprintf(w, "[%d] %s スコア: %.4f\n", i+1, label, src.RelevanceScore)
		fmt.Fprintf(w, "    %s\n", src.Content)
	}
}
