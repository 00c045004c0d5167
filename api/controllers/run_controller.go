/*
 * @module api/controllers/run_controller
 * @description 运行控制器，触发脚本执行与输出评估，查询运行结果并下载清洗后的CSV
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md#11.1, dev_docs/requirements.md#12
 * @stateFlow execute -> evaluate -> result/download
 * @rules 评估要求 output.csv 已存在；下载文件名为 <run_id>_cleaned.csv
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/go-playground/validator/v10
 * @refs service/executor, service/evaluator
 */

package controllers

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/evaluator"
	"adaptive-etl-service/service/executor"
	"adaptive-etl-service/service/models"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RunController 运行控制器
type RunController struct {
	runs      *artifact.RunStore
	executor  *executor.Service
	evaluator *evaluator.Service
}

// NewRunController 创建运行控制器实例
func NewRunController(runs *artifact.RunStore, exec *executor.Service, eval *evaluator.Service) *RunController {
	return &RunController{runs: runs, executor: exec, evaluator: eval}
}

// RunResult 运行结果摘要
type RunResult struct {
	RunID        string              `json:"run_id"`
	QualityScore float64             `json:"quality_score"`
	Rows         int                 `json:"rows"`
	Columns      int                 `json:"columns"`
	NullDensity  float64             `json:"null_density"`
	Status       models.ReportStatus `json:"status"`
	DownloadURL  string              `json:"download_url"`
}

// Execute 执行清洗脚本
// @Summary 执行清洗脚本
// @Description 下载数据集到运行目录并运行清洗脚本，执行日志写入 executor_logs.json
// @Tags 运行
// @Accept json
// @Produce json
// @Param run_id path string true "运行ID"
// @Param request body executor.Request true "执行请求"
// @Success 200 {object} APIResponse{data=executor.Log}
// @Failure 400 {object} APIResponse
// @Failure 422 {object} APIResponse
// @Failure 504 {object} APIResponse
// @Router /runs/{run_id}/execute [post]
func (c *RunController) Execute(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	var req executor.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数校验失败", err))
		return
	}

	entry, err := c.executor.Execute(r.Context(), runID, req)
	if err != nil {
		status := statusFor(err)
		render.Status(r, status)
		resp := ErrorResponse(status, "脚本执行失败", err)
		resp.Data = entry
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, SuccessResponse("执行成功", entry))
}

// Evaluate 评估运行输出
// @Summary 评估运行输出
// @Description 计算 output.csv 的质量指标并写入 evaluation.json 与 quality_report.json
// @Tags 运行
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse{data=evaluator.Result}
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /runs/{run_id}/evaluate [post]
func (c *RunController) Evaluate(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	result, err := c.evaluator.Evaluate(r.Context(), runID)
	if err != nil {
		renderError(w, r, "评估失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("评估完成", result))
}

// GetResult 查询运行结果
// @Summary 查询运行结果
// @Tags 运行
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse{data=RunResult}
// @Failure 404 {object} APIResponse
// @Router /runs/{run_id}/result [get]
func (c *RunController) GetResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	evaluation, err := c.evaluator.GetEvaluation(runID)
	if err != nil {
		renderError(w, r, "评估结果不存在", err)
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", RunResult{
		RunID:        evaluation.RunID,
		QualityScore: evaluation.QualityScore,
		Rows:         evaluation.Rows,
		Columns:      evaluation.Columns,
		NullDensity:  evaluation.NullDensity,
		Status:       evaluation.Status,
		DownloadURL:  strings.TrimSuffix(r.URL.Path, "/result") + "/download",
	}))
}

// GetMetrics 查询完整评估报告
// @Summary 查询完整评估报告
// @Tags 运行
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.EvaluationReport}
// @Failure 404 {object} APIResponse
// @Router /runs/{run_id}/metrics [get]
func (c *RunController) GetMetrics(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	evaluation, err := c.evaluator.GetEvaluation(runID)
	if err != nil {
		renderError(w, r, "评估结果不存在", err)
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", evaluation))
}

// GetExecutorLog 查询执行日志
// @Summary 查询执行日志
// @Tags 运行
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse{data=executor.Log}
// @Failure 404 {object} APIResponse
// @Router /runs/{run_id}/logs [get]
func (c *RunController) GetExecutorLog(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	entry, err := c.executor.GetLog(runID)
	if err != nil {
		renderError(w, r, "执行日志不存在", err)
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", entry))
}

// Download 下载清洗后的CSV
// @Summary 下载清洗后的CSV
// @Tags 运行
// @Produce text/csv
// @Param run_id path string true "运行ID"
// @Success 200 {file} file
// @Failure 404 {object} APIResponse
// @Router /runs/{run_id}/download [get]
func (c *RunController) Download(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	path, err := c.runs.Path(runID, artifact.OutputFile)
	if err != nil {
		renderError(w, r, "下载失败", err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = artifact.ErrArtifactNotFound
		}
		renderError(w, r, "输出文件不存在", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+"_cleaned.csv"))
	http.ServeFile(w, r, path)
}
