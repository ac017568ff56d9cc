// Package cleanup はリフレッシュトークンの自動削除ジョブを提供する。
// 有効期限を過ぎたトークンを猶予期間（デフォルト7日）の経過後に
// 定期バッチで削除する。失効済みでも未期限のトークンは
// 再利用検知の判定材料として残すため削除しない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PurgeRecorder は削除件数のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type PurgeRecorder interface {
	RecordTokensPurged(count int)
}

// CleanupJob は期限切れリフレッシュトークンの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db        Executor
	logger    *slog.Logger
	metrics   PurgeRecorder
	GraceDays int // 期限切れ後の保持日数（デフォルト: 7）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの猶予日数は7日。metricsはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, metrics PurgeRecorder) *CleanupJob {
	return &CleanupJob{
		db:        db,
		logger:    logger,
		metrics:   metrics,
		GraceDays: 7,
	}
}

// Run は猶予期間を過ぎた期限切れトークンを削除する。
// expires_atがGraceDays日前より古いトークンをDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.GraceDays)

	query := `DELETE FROM refresh_tokens WHERE expires_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("grace_days", j.GraceDays),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordTokensPurged(int(deletedCount))
	}

	duration := time.Since(start)
	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("grace_days", j.GraceDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
