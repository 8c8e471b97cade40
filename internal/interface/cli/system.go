package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// プロンプトの入出力先。nil の場合は標準入出力
var (
	promptStdin  io.ReadCloser
	promptStdout io.WriteCloser
)

// StatusAction はシステムの状態を表示する
func StatusAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	status := appCtx.Container.Service.Status(ctx)
	if cmd.Bool("json") {
		return printJSON(status)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("項目", "値")
	table.Append("ステータス", status.Status)
	if status.Error != "" {
		table.Append("エラー", status.Error)
		table.Render()
		return nil
	}
	table.Append("コレクション", status.VectorStore.CollectionID)
	table.Append("チャンク数", strconv.Itoa(status.VectorStore.TotalEntries))
	table.Append("ドキュメント数", strconv.Itoa(status.TotalDocuments))
	table.Append("データセット項目数", strconv.Itoa(status.DatasetItems))
	table.Append("モデル", status.ModelInfo.Model)
	table.Append("埋め込みモデル", status.ModelInfo.EmbeddingModel)
	table.Render()
	return nil
}

// ResetAction はコーパスと保存済みファイルを全て削除する
func ResetAction(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		confirm := promptui.Prompt{
			Label:     "全てのドキュメントとチャンクを削除します。よろしいですか",
			IsConfirm: true,
			Stdin:     promptStdin,
			Stdout:    promptStdout,
		}
		if _, err := confirm.Run(); err != nil {
			return fmt.Errorf("リセットを中止しました (--yes で確認を省略できます): %w", err)
		}
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Service.ResetSystem(ctx); err != nil {
		return err
	}
	fmt.Println("System reset successfully")
	return nil
}

// EstimateAction は入出力テキストの概算コストを表示する
func EstimateAction(ctx context.Context, cmd *cli.Command) error {
	input := cmd.Args().First()
	if input == "" {
		return fmt.Errorf("入力テキストを指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	est := appCtx.Container.Service.EstimateCost(input, cmd.String("output"))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("", "トークン数", "コスト (USD)")
	table.Append("入力", strconv.Itoa(est.InputTokens), fmt.Sprintf("%.6f", est.InputCostUSD))
	table.Append("出力", strconv.Itoa(est.OutputTokens), fmt.Sprintf("%.6f", est.OutputCostUSD))
	table.Append("合計", "", fmt.Sprintf("%.6f", est.TotalCostUSD))
	table.Render()
	fmt.Printf("model: %s\n", est.Model)
	return nil
}
