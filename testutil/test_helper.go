/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/requirements.md#10.4
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify
 * @refs service/models, service/artifact
 */

package testutil

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建内存测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 内存库每个连接各自独立，限制为单连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql.DB: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.PolicyDocument{}); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tdb.DB.Exec("DELETE FROM policy_documents")
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// NewTestRunStore 在临时目录中创建运行产物存储
func NewTestRunStore(t *testing.T) *artifact.RunStore {
	t.Helper()
	runs, err := artifact.NewRunStore(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	return runs
}

// QualityReportOption 质量报告选项函数类型
type QualityReportOption func(*models.QualityReport)

// WithReward 设置显式奖励
func WithReward(reward float64) QualityReportOption {
	return func(r *models.QualityReport) { r.Reward = &reward }
}

// WithNullCounts 设置逐列空值数
func WithNullCounts(counts map[string]int) QualityReportOption {
	return func(r *models.QualityReport) { r.NullCounts = counts }
}

// NewQualityReport 创建测试质量报告
func NewQualityReport(runID string, rows int, opts ...QualityReportOption) *models.QualityReport {
	report := &models.QualityReport{
		RunID:   runID,
		Rows:    rows,
		Columns: 3,
	}
	for _, opt := range opts {
		opt(report)
	}
	return report
}

// SaveQualityReport 写入运行的质量报告
func SaveQualityReport(t *testing.T, runs *artifact.RunStore, report *models.QualityReport) {
	t.Helper()
	_, err := runs.SaveQualityReport(report.RunID, report)
	require.NoError(t, err)
}

// WriteOutputCSV 写入运行的 output.csv
func WriteOutputCSV(t *testing.T, runs *artifact.RunStore, runID, content string) string {
	t.Helper()
	_, err := runs.EnsureRunDir(runID)
	require.NoError(t, err)
	path, err := runs.Path(runID, artifact.OutputFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// MockPublisher 决策发布器模拟
type MockPublisher struct {
	mock.Mock
}

// Name 发布器名称
func (m *MockPublisher) Name() string {
	return "mock"
}

// PublishDecision 记录发布调用
func (m *MockPublisher) PublishDecision(ctx context.Context, event *models.PolicyDecisionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Close 记录关闭调用
func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader = http.NoBody

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// DecodeAPIResponse 解析统一响应，data 解码到 out
func (h *HTTPTestHelper) DecodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder, out interface{}) (status int, msg string) {
	t.Helper()

	var envelope struct {
		Status int             `json:"status"`
		Msg    string          `json:"msg"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	if out != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Status, envelope.Msg
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
