package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/hybrid-rag/internal/core/dataset"
)

// DatasetListAction はデータセットの項目を表示する
func DatasetListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewDatasetAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	ds := appCtx.Container.Dataset
	all := ds.Items()
	items := all
	if category := cmd.String("category"); category != "" {
		items = ds.ItemsByCategory(category)
	}

	if cmd.Bool("json") {
		return printJSON(items)
	}

	if len(items) == 0 {
		fmt.Println("データセットは空です")
		return nil
	}

	// 絞り込み時も update / delete に渡せる位置を表示する
	positions := make(map[uuid.UUID]int, len(all))
	for i, item := range all {
		positions[item.ID] = i
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Question", "Answer", "Keywords", "Category", "ID")
	for _, item := range items {
		table.Append(
			strconv.Itoa(positions[item.ID]),
			item.Question,
			truncate(item.Answer, 40),
			strings.Join(item.Keywords, ", "),
			item.Category,
			item.ID.String(),
		)
	}
	table.Render()
	return nil
}

// DatasetAddAction は項目を1件追加する
func DatasetAddAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewDatasetAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	var in dataset.NewItem
	if cmd.Bool("interactive") {
		in, err = promptDatasetItem()
		if err != nil {
			return err
		}
	} else {
		in = dataset.NewItem{
			Question: cmd.String("question"),
			Answer:   cmd.String("answer"),
			Category: cmd.String("category"),
			Source:   cmd.String("source"),
		}
		if cmd.IsSet("keywords") {
			in.Keywords = splitKeywords(cmd.String("keywords"))
		}
	}

	item, err := appCtx.Container.Dataset.Add(ctx, in)
	if err != nil {
		return err
	}

	fmt.Printf("追加しました: %s\n", item.ID)
	return nil
}

// DatasetUpdateAction は位置または ID で指定した項目を更新する
func DatasetUpdateAction(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("更新する項目の位置またはIDを指定してください")
	}

	var fields dataset.UpdateFields
	for name, opt := range map[string]*mo.Option[string]{
		"question": &fields.Question,
		"answer":   &fields.Answer,
		"category": &fields.Category,
		"source":   &fields.Source,
	} {
		if cmd.IsSet(name) {
			*opt = mo.Some(cmd.String(name))
		}
	}
	if cmd.IsSet("keywords") {
		fields.Keywords = mo.Some(splitKeywords(cmd.String("keywords")))
	}

	appCtx, err := NewDatasetAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	ds := appCtx.Container.Dataset
	var item dataset.Item
	if index, convErr := strconv.Atoi(ref); convErr == nil {
		item, err = ds.Update(ctx, index, fields)
	} else if id, parseErr := uuid.Parse(ref); parseErr == nil {
		item, err = ds.UpdateByID(ctx, id, fields)
	} else {
		return fmt.Errorf("不正な項目指定です: %q", ref)
	}
	if err != nil {
		return err
	}

	fmt.Printf("更新しました: %s\n", item.ID)
	return nil
}

// DatasetDeleteAction は位置または ID で指定した項目を削除する
func DatasetDeleteAction(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("削除する項目の位置またはIDを指定してください")
	}

	appCtx, err := NewDatasetAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	ds := appCtx.Container.Dataset
	var item dataset.Item
	if index, convErr := strconv.Atoi(ref); convErr == nil {
		item, err = ds.Delete(ctx, index)
	} else if id, parseErr := uuid.Parse(ref); parseErr == nil {
		item, err = ds.DeleteByID(ctx, id)
	} else {
		return fmt.Errorf("不正な項目指定です: %q", ref)
	}
	if err != nil {
		return err
	}

	fmt.Printf("削除しました: %s\n", item.Question)
	return nil
}

// DatasetClearAction は全項目を削除する
func DatasetClearAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewDatasetAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Dataset.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Dataset cleared successfully")
	return nil
}

// DatasetIngestAction は JSON ファイルでデータセットを置き換える
func DatasetIngestAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("データセットファイルを指定してください")
	}

	appCtx, err := NewDatasetAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.Dataset.IngestFile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("取り込み: %d件 スキップ: %d件 (保存先: %s)\n", result.ItemsAdded, result.ItemsSkipped, result.DataFileLocation)
	return nil
}

// DatasetMatchAction はクエリに最も近い項目を表示する
func DatasetMatchAction(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("クエリを指定してください")
	}

	appCtx, err := NewDatasetAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	match, ok := appCtx.Container.Dataset.FindBestMatch(query, cmd.Float("threshold"))
	if !ok {
		fmt.Println("一致する項目はありません")
		return nil
	}

	fmt.Printf("[%d] %s (スコア: %.4f)\n", match.Index, match.Item.Question, match.SimilarityScore)
	fmt.Printf("    A: %s\n", match.Item.Answer)
	return nil
}

// promptDatasetItem はインタラクティブに項目の入力を受け付ける
func promptDatasetItem() (dataset.NewItem, error) {
	var in dataset.NewItem

	required := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("入力してください")
		}
		return nil
	}

	promptQuestion := promptui.Prompt{Label: "質問文", Validate: required, Stdin: promptStdin, Stdout: promptStdout}
	question, err := promptQuestion.Run()
	if err != nil {
		return in, err
	}
	in.Question = question

	promptAnswer := promptui.Prompt{Label: "回答文", Validate: required, Stdin: promptStdin, Stdout: promptStdout}
	answer, err := promptAnswer.Run()
	if err != nil {
		return in, err
	}
	in.Answer = answer

	// キーワード（空の場合は質問文から生成）
	promptKeywords := promptui.Prompt{Label: "キーワード (カンマ区切り、オプション)", Stdin: promptStdin, Stdout: promptStdout}
	keywords, err := promptKeywords.Run()
	if err != nil {
		return in, err
	}
	if keywords != "" {
		in.Keywords = splitKeywords(keywords)
	}

	promptCategory := promptui.Prompt{Label: "カテゴリ", Default: dataset.DefaultCategory, Stdin: promptStdin, Stdout: promptStdout}
	category, err := promptCategory.Run()
	if err != nil {
		return in, err
	}
	in.Category = category

	return in, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// splitKeywords はカンマ区切りのキーワードを分割する。空文字列は空のリストになる
func splitKeywords(s string) []string {
	keywords := []string{}
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
