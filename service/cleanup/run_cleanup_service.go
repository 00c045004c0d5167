/*
 * @module service/cleanup/run_cleanup_service
 * @description 运行目录清理服务，定期删除超过保留期的运行产物
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md#11.7
 * @stateFlow 定时触发 -> 列出运行目录 -> 按修改时间筛选 -> 删除 -> 记录结果
 * @rules 保留天数小于等于0时不清理；单个目录删除失败不影响其它目录
 * @dependencies github.com/robfig/cron/v3, service/artifact
 * @refs service/init.go
 */

package cleanup

import (
	"adaptive-etl-service/service/artifact"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupSpec 默认每天凌晨2点执行，格式：秒 分 时 日 月 周
const DefaultCleanupSpec = "0 0 2 * * *"

// RunCleanupService 运行目录清理服务
type RunCleanupService struct {
	runs          *artifact.RunStore
	retentionDays int
	spec          string
	cron          *cron.Cron
	ctx           context.Context
	cancel        context.CancelFunc
	started       bool
	now           func() time.Time
}

// NewRunCleanupService 创建运行目录清理服务
func NewRunCleanupService(runs *artifact.RunStore, retentionDays int, spec string) *RunCleanupService {
	if spec == "" {
		spec = DefaultCleanupSpec
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &RunCleanupService{
		runs:          runs,
		retentionDays: retentionDays,
		spec:          spec,
		cron:          cron.New(cron.WithSeconds()),
		ctx:           ctx,
		cancel:        cancel,
		now:           time.Now,
	}
}

// CleanupExpiredRuns 删除过期的运行目录，返回删除数量
func (s *RunCleanupService) CleanupExpiredRuns(ctx context.Context) (int, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}

	startTime := s.now()
	cutoff := startTime.AddDate(0, 0, -s.retentionDays)
	slog.Debug("清理过期运行目录", "cutoff", cutoff.Format("2006-01-02 15:04:05"), "retention_days", s.retentionDays)

	runs, err := s.runs.ListRuns()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if !run.ModTime.Before(cutoff) {
			continue
		}
		if err := s.runs.RemoveRun(run.RunID); err != nil {
			slog.Error("删除运行目录失败", "run_id", run.RunID, "error", err)
			continue
		}
		deleted++
	}

	slog.Info("运行目录清理完成",
		"deleted_count", deleted,
		"retention_days", s.retentionDays,
		"duration_ms", time.Since(startTime).Milliseconds())
	return deleted, nil
}

// Start 启动定时清理任务
func (s *RunCleanupService) Start() error {
	if s.started {
		return fmt.Errorf("运行目录清理调度器已经启动")
	}
	if s.retentionDays <= 0 {
		slog.Info("未配置运行目录保留天数，跳过清理调度")
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.CleanupExpiredRuns(s.ctx); err != nil {
			slog.Error("定时运行目录清理失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true
	slog.Info("运行目录清理调度器启动成功", "spec", s.spec, "retention_days", s.retentionDays)
	return nil
}

// Stop 停止定时清理任务
func (s *RunCleanupService) Stop() {
	if !s.started {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.started = false
	slog.Info("运行目录清理调度器已停止")
}
