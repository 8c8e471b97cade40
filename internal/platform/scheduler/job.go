package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job は cron 形式のスケジュールで処理を定期実行する
type Job struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewJob は新しい Job を作成する
func NewJob(name, schedule string, run func(ctx context.Context) error, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}

	return &Job{
		name:     name,
		schedule: schedule,
		run:      run,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start はスケジューラーを起動する。実行中の処理が終わる前に次の時刻が来た場合はスキップする
func (j *Job) Start() error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		if err := j.Run(context.Background()); err != nil {
			j.logger.Error("定期ジョブの実行に失敗しました", "job", j.name, "error", err)
		}
	}))

	if _, err := j.cron.AddJob(j.schedule, wrapped); err != nil {
		return fmt.Errorf("cron ジョブの登録に失敗: %w", err)
	}

	j.cron.Start()
	j.logger.Info("定期ジョブを開始しました", "job", j.name, "schedule", j.schedule)
	return nil
}

// Stop はスケジューラーを停止し、実行中の処理の完了を待つ
func (j *Job) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("定期ジョブを停止しました", "job", j.name)
}

// Run は処理を1回実行する（手動実行可能）
func (j *Job) Run(ctx context.Context) error {
	return j.run(ctx)
}
