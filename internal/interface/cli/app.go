package cli

import (
	"github.com/urfave/cli/v3"

	"github.com/jinford/hybrid-rag/internal/core/dataset"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "JSON で出力",
	}
}

// datasetItemFlags は add / update で共通の項目フラグ
func datasetItemFlags() []cli.Flag {
	return []cli.Flag{
		envFlag(),
		&cli.StringFlag{Name: "question", Usage: "質問文"},
		&cli.StringFlag{Name: "answer", Usage: "回答文"},
		&cli.StringFlag{Name: "keywords", Usage: "キーワード (カンマ区切り、省略時は質問文から生成)"},
		&cli.StringFlag{Name: "category", Usage: "カテゴリ"},
		&cli.StringFlag{Name: "source", Usage: "出典"},
	}
}

// NewCommand はコマンドツリーを組み立てる
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "hybrid-rag",
		Usage: "データセット照合とドキュメント検索を組み合わせた質問応答サービス",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "HTTPサーバ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "addr",
								Usage: "listen アドレス (省略時は HOST:PORT)",
							},
							&cli.StringFlag{
								Name:  "reload-schedule",
								Usage: "データセットを再読み込みする cron 式 (省略時は DATASET_RELOAD_SCHEDULE)",
							},
						},
						Action: ServerStartAction,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "質問に回答",
				ArgsUsage: "<質問文>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照ソースを表示",
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "出力トークン上限 (0 は設定値)",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "検索するチャンク数 (0 は既定値)",
					},
				},
				Action: AskAction,
			},
			{
				Name:      "ingest",
				Usage:     "PDF / HTML ファイルをまとめて取り込む",
				ArgsUsage: "<ファイル>...",
				Flags:     []cli.Flag{envFlag()},
				Action:    IngestAction,
			},
			{
				Name:  "documents",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "保存済みドキュメント一覧を表示",
						Flags:  []cli.Flag{envFlag()},
						Action: DocumentListAction,
					},
					{
						Name:      "add",
						Usage:     "ドキュメントを1件取り込む",
						ArgsUsage: "<ファイル>",
						Flags:     []cli.Flag{envFlag()},
						Action:    DocumentAddAction,
					},
					{
						Name:      "delete",
						Usage:     "ドキュメントを削除",
						ArgsUsage: "<ファイル名>",
						Flags:     []cli.Flag{envFlag()},
						Action:    DocumentDeleteAction,
					},
				},
			},
			{
				Name:  "dataset",
				Usage: "データセット管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "データセットを表示",
						Flags: []cli.Flag{
							envFlag(),
							jsonFlag(),
							&cli.StringFlag{
								Name:  "category",
								Usage: "カテゴリで絞り込み",
							},
						},
						Action: DatasetListAction,
					},
					{
						Name:  "add",
						Usage: "項目を追加",
						Flags: append(datasetItemFlags(), &cli.BoolFlag{
							Name:  "interactive",
							Usage: "インタラクティブモードで入力",
						}),
						Action: DatasetAddAction,
					},
					{
						Name:      "update",
						Usage:     "項目を更新",
						ArgsUsage: "<位置|ID>",
						Flags:     datasetItemFlags(),
						Action:    DatasetUpdateAction,
					},
					{
						Name:      "delete",
						Usage:     "項目を削除",
						ArgsUsage: "<位置|ID>",
						Flags:     []cli.Flag{envFlag()},
						Action:    DatasetDeleteAction,
					},
					{
						Name:   "clear",
						Usage:  "全項目を削除",
						Flags:  []cli.Flag{envFlag()},
						Action: DatasetClearAction,
					},
					{
						Name:      "ingest",
						Usage:     "JSON ファイルでデータセットを置き換える",
						ArgsUsage: "<ファイル>",
						Flags:     []cli.Flag{envFlag()},
						Action:    DatasetIngestAction,
					},
					{
						Name:      "match",
						Usage:     "クエリに最も近い項目を表示",
						ArgsUsage: "<クエリ>",
						Flags: []cli.Flag{
							envFlag(),
							&cli.FloatFlag{
								Name:  "threshold",
								Usage: "一致とみなす最小スコア",
								Value: dataset.DefaultThreshold,
							},
						},
						Action: DatasetMatchAction,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "システムの状態を表示",
				Flags:  []cli.Flag{envFlag(), jsonFlag()},
				Action: StatusAction,
			},
			{
				Name:  "reset",
				Usage: "コーパスと保存済みドキュメントを全て削除 (データセットは残る)",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "確認を省略",
					},
				},
				Action: ResetAction,
			},
			{
				Name:      "estimate",
				Usage:     "概算コストを表示",
				ArgsUsage: "<入力テキスト>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:  "output",
						Usage: "想定する出力テキスト",
					},
				},
				Action: EstimateAction,
			},
		},
	}
}
