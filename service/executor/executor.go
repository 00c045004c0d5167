package executor

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/monitoring"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrScriptNotFound 脚本文件不存在
	ErrScriptNotFound = errors.New("脚本文件不存在")
	// ErrExecutionFailed 脚本以非零退出码结束
	ErrExecutionFailed = errors.New("脚本执行失败")
	// ErrScriptNotAllowed 脚本不在脚本目录内或位于运行目录中
	ErrScriptNotAllowed = errors.New("脚本路径不允许")
)

// Request 执行请求
type Request struct {
	FileURL    string `json:"file_url" validate:"required,url"`
	ScriptPath string `json:"script_path" validate:"required"`
}

// Log 执行日志，写入 executor_logs.json
type Log struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	FileURL    string    `json:"file_url"`
	ScriptPath string    `json:"script_path"`
	InputPath  string    `json:"input_path"`
	OutputPath string    `json:"output_path"`
	InputBytes int64     `json:"input_bytes"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	ExitCode   int       `json:"exit_code"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	Error      string    `json:"error,omitempty"`
}

// Config 执行器配置
type Config struct {
	ScriptTimeout   time.Duration
	DownloadTimeout time.Duration
	PythonBin       string
	// ScriptDir 清洗脚本目录，相对路径按该目录解析，非空时脚本必须位于其中
	ScriptDir string
}

// Service 执行服务
type Service struct {
	runs       *artifact.RunStore
	fetcher    *Fetcher
	goRunner   ScriptRunner
	procRunner ScriptRunner
	timeout    time.Duration
	scriptDir  string
}

// NewService 创建执行服务
func NewService(runs *artifact.RunStore, cfg Config) *Service {
	timeout := cfg.ScriptTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Service{
		runs:       runs,
		fetcher:    NewFetcher(cfg.DownloadTimeout),
		goRunner:   NewYaegiRunner(),
		procRunner: NewSubprocessRunner(cfg.PythonBin),
		timeout:    timeout,
		scriptDir:  cleanDir(cfg.ScriptDir),
	}
}

// Execute 下载数据集并运行清洗脚本，结果写入 executor_logs.json
func (s *Service) Execute(ctx context.Context, runID string, req Request) (*Log, error) {
	script, err := s.resolveScript(req.ScriptPath)
	if err != nil {
		return nil, err
	}

	ext, err := FileExtension(req.FileURL)
	if err != nil {
		return nil, err
	}

	if _, err := s.runs.EnsureRunDir(runID); err != nil {
		return nil, err
	}
	inputPath, err := s.runs.Path(runID, "input."+ext)
	if err != nil {
		return nil, err
	}
	outputPath, _ := s.runs.Path(runID, artifact.OutputFile)
	planPath, _ := s.runs.Path(runID, artifact.PlanFile)
	if _, err := os.Stat(planPath); err != nil {
		planPath = ""
	}

	entry := &Log{
		RunID:      runID,
		FileURL:    req.FileURL,
		ScriptPath: req.ScriptPath,
		InputPath:  inputPath,
		OutputPath: outputPath,
		StartedAt:  time.Now().UTC(),
	}

	n, err := s.fetcher.Fetch(ctx, req.FileURL, inputPath)
	if err != nil {
		return entry, s.finish(entry, "download_failed", err)
	}
	entry.InputBytes = n

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	runner := runnerFor(req.ScriptPath, s.goRunner, s.procRunner)
	result, err := runner.Run(runCtx, script, ScriptArgs{
		PlanPath:   planPath,
		InputPath:  inputPath,
		OutputPath: outputPath,
	})
	if result != nil {
		entry.Stdout = result.Stdout
		entry.Stderr = result.Stderr
		entry.ExitCode = result.ExitCode
	}
	switch {
	case errors.Is(err, ErrScriptTimeout):
		return entry, s.finish(entry, "timeout", err)
	case err != nil:
		return entry, s.finish(entry, "failed", err)
	case result.ExitCode != 0:
		return entry, s.finish(entry, "failed",
			fmt.Errorf("%w: 退出码 %d: %s", ErrExecutionFailed, result.ExitCode, result.Stderr))
	}
	return entry, s.finish(entry, "success", nil)
}

// resolveScript 解析脚本的真实路径，下载到运行目录的内容不能作为脚本执行
func (s *Service) resolveScript(scriptPath string) (string, error) {
	path := scriptPath
	if s.scriptDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.scriptDir, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("解析脚本路径失败: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", scriptPath, ErrScriptNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("检查脚本失败: %w", err)
	}

	if s.scriptDir != "" && !within(s.scriptDir, resolved) {
		return "", fmt.Errorf("%s 不在脚本目录 %s 内: %w", scriptPath, s.scriptDir, ErrScriptNotAllowed)
	}
	if within(cleanDir(s.runs.Root()), resolved) {
		return "", fmt.Errorf("%s 位于运行目录内: %w", scriptPath, ErrScriptNotAllowed)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("检查脚本失败: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s 是目录: %w", scriptPath, ErrScriptNotFound)
	}
	return resolved, nil
}

// cleanDir 目录的绝对真实路径，目录不存在时返回绝对路径
func cleanDir(dir string) string {
	if dir == "" {
		return ""
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// GetLog 读取执行日志
func (s *Service) GetLog(runID string) (*Log, error) {
	var entry Log
	if err := s.runs.LoadJSON(runID, artifact.ExecutorLogFile, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) finish(entry *Log, status string, runErr error) error {
	entry.Status = status
	entry.DurationMs = time.Since(entry.StartedAt).Milliseconds()
	if runErr != nil {
		entry.Error = runErr.Error()
	}

	if _, err := s.runs.SaveJSON(entry.RunID, artifact.ExecutorLogFile, entry); err != nil {
		slog.Error("保存执行日志失败", "run_id", entry.RunID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	monitoring.Executions.WithLabelValues(status).Inc()
	if runErr != nil {
		slog.Error("脚本执行失败",
			"run_id", entry.RunID,
			"status", status,
			"exit_code", entry.ExitCode,
			"error", runErr)
		return runErr
	}

	slog.Info("脚本执行完成",
		"run_id", entry.RunID,
		"input_bytes", entry.InputBytes,
		"duration_ms", entry.DurationMs)
	return nil
}
