package cli

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/hybrid-rag/internal/interface/rest"
	"github.com/jinford/hybrid-rag/internal/platform/scheduler"
)

// shutdownTimeout は停止シグナル受信後に処理中リクエストを待つ時間
const shutdownTimeout = 10 * time.Second

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	addr := appCtx.Config.Server.Addr()
	if v := cmd.String("addr"); v != "" {
		addr = v
	}

	logger := appCtx.Logger()

	// データセットの定期再読み込み
	schedule := appCtx.Config.Storage.DatasetReloadSchedule
	if v := cmd.String("reload-schedule"); v != "" {
		schedule = v
	}
	if schedule != "" {
		job := scheduler.NewJob("dataset-reload", schedule, appCtx.Container.Dataset.Reload, logger)
		if err := job.Start(); err != nil {
			return err
		}
		defer job.Stop()
	}

	server := rest.NewServer(appCtx.Container.Service, rest.WithServerLogger(logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTPサーバを起動します", "addr", addr)
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("HTTPサーバを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("HTTPサーバを停止しました")
	return nil
}
