/*
 * @module service/artifact/run_store
 * @description 运行产物存储，按 run_id 分区保存 plan.json、quality_report.json、evaluation.json 等文件
 * @architecture 仓储模式 - 文件系统仓储
 * @documentReference dev_docs/requirements.md#5
 * @stateFlow 画像写 plan.json -> 执行器写 output.csv -> 评估器写报告 -> 策略引擎读报告
 * @rules 产物写入后不可变；写入使用原子替换；run_id 不允许包含路径分隔符
 * @dependencies service/models, service/utils
 * @refs service/planner, service/policy, service/evaluator, service/executor
 */

package artifact

import (
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/utils"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	PlanFile          = "plan.json"
	QualityReportFile = "quality_report.json"
	EvaluationFile    = "evaluation.json"
	OutputFile        = "output.csv"
	ExecutorLogFile   = "executor_logs.json"
)

// ErrArtifactNotFound 运行产物不存在
var ErrArtifactNotFound = errors.New("运行产物不存在")

// RunInfo 运行目录信息
type RunInfo struct {
	RunID   string
	ModTime time.Time
}

// RunStore 运行产物存储
type RunStore struct {
	root string
}

// NewRunStore 创建运行产物存储
func NewRunStore(root string) (*RunStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &models.StoreUnavailableError{Op: "创建运行目录", Err: err}
	}
	return &RunStore{root: root}, nil
}

// Root 运行目录根路径
func (s *RunStore) Root() string { return s.root }

// RunDir 运行目录
func (s *RunStore) RunDir(runID string) (string, error) {
	if err := validateRunID(runID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, runID), nil
}

// Path 运行目录下指定文件的路径
func (s *RunStore) Path(runID, name string) (string, error) {
	dir, err := s.RunDir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureRunDir 创建运行目录
func (s *RunStore) EnsureRunDir(runID string) (string, error) {
	dir, err := s.RunDir(runID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &models.StoreUnavailableError{Op: "创建运行目录 " + runID, Err: err}
	}
	return dir, nil
}

// SavePlan 持久化计划，返回 plan.json 路径
func (s *RunStore) SavePlan(runID string, plan *models.Plan) (string, error) {
	return s.saveJSON(runID, PlanFile, plan)
}

// LoadPlan 读取计划
func (s *RunStore) LoadPlan(runID string) (*models.Plan, error) {
	var plan models.Plan
	if err := s.loadJSON(runID, PlanFile, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// SaveQualityReport 持久化质量报告
func (s *RunStore) SaveQualityReport(runID string, report *models.QualityReport) (string, error) {
	return s.saveJSON(runID, QualityReportFile, report)
}

// LoadQualityReport 读取质量报告，不存在时返回 *models.MissingReportError
func (s *RunStore) LoadQualityReport(runID string) (*models.QualityReport, error) {
	var report models.QualityReport
	err := s.loadJSON(runID, QualityReportFile, &report)
	if errors.Is(err, ErrArtifactNotFound) {
		path, _ := s.Path(runID, QualityReportFile)
		return nil, &models.MissingReportError{RunID: runID, Path: path}
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveEvaluation 持久化评估报告
func (s *RunStore) SaveEvaluation(runID string, report *models.EvaluationReport) (string, error) {
	return s.saveJSON(runID, EvaluationFile, report)
}

// LoadEvaluation 读取评估报告
func (s *RunStore) LoadEvaluation(runID string) (*models.EvaluationReport, error) {
	var report models.EvaluationReport
	if err := s.loadJSON(runID, EvaluationFile, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveJSON 以 JSON 形式持久化任意产物
func (s *RunStore) SaveJSON(runID, name string, v interface{}) (string, error) {
	return s.saveJSON(runID, name, v)
}

// LoadJSON 读取任意 JSON 产物
func (s *RunStore) LoadJSON(runID, name string, out interface{}) error {
	return s.loadJSON(runID, name, out)
}

// Exists 运行目录下指定产物是否已存在
func (s *RunStore) Exists(runID, name string) (bool, error) {
	path, err := s.Path(runID, name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("检查 %s 失败: %w", path, err)
	}
	return true, nil
}

// ListRuns 列出所有运行目录
func (s *RunStore) ListRuns() ([]RunInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("读取运行目录失败: %w", err)
	}

	runs := make([]RunInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		runs = append(runs, RunInfo{RunID: entry.Name(), ModTime: info.ModTime()})
	}
	return runs, nil
}

// RemoveRun 删除运行目录
func (s *RunStore) RemoveRun(runID string) error {
	dir, err := s.RunDir(runID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *RunStore) saveJSON(runID, name string, v interface{}) (string, error) {
	dir, err := s.EnsureRunDir(runID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化 %s 失败: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", &models.StoreUnavailableError{Op: "写入 " + name, Err: err}
	}
	return path, nil
}

func (s *RunStore) loadJSON(runID, name string, out interface{}) error {
	path, err := s.Path(runID, name)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrArtifactNotFound)
	}
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return nil
}

func validateRunID(runID string) error {
	return models.ValidateRunID(runID)
}
