package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// IngestAction は指定ファイルをまとめて取り込むコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("取り込むファイルを指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.Service.Ingest(ctx, paths)
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	fmt.Printf("チャンク数: %d\n", result.TotalChunks)
	for _, p := range result.Skipped {
		fmt.Printf("スキップ: %s\n", p)
	}
	return nil
}

// DocumentListAction は保存済みドキュメントの一覧を表示する
func DocumentListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docs, err := appCtx.Container.Service.ListDocuments(ctx)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("ドキュメントはありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Filename", "Type", "Size", "Pages", "Uploaded At")
	for _, d := range docs {
		table.Append(
			d.Filename,
			string(d.FileType),
			strconv.FormatInt(d.SizeBytes, 10),
			strconv.Itoa(d.Chunks),
			d.UploadedAt.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
	return nil
}

// DocumentAddAction は単一ファイルを取り込む
func DocumentAddAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("ファイルパスを指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.Service.AddDocument(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("%s (チャンク数: %d)\n", result.Message, result.ChunksCreated)
	return nil
}

// DocumentDeleteAction はファイル名で指定したドキュメントを削除する
func DocumentDeleteAction(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.Args().First()
	if filename == "" {
		return fmt.Errorf("ファイル名を指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Service.DeleteDocument(ctx, filename); err != nil {
		return err
	}

	fmt.Printf("Document %s deleted successfully\n", filename)
	return nil
}
