/*
 * @module api/controllers/plan_controller
 * @description 计划控制器，接收数据样本生成清洗计划，并按 run_id 查询已持久化的计划
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md#11.1
 * @stateFlow 解析请求 -> 画像生成计划 -> 落盘 -> 返回 run_id 与计划
 * @rules 样本可为空，为空时返回冷启动计划
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/planner
 */

package controllers

import (
	"adaptive-etl-service/service/planner"
	"adaptive-etl-service/service/profiler"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// PlanController 计划控制器
type PlanController struct {
	planner *planner.Service
}

// NewPlanController 创建计划控制器实例
func NewPlanController(planner *planner.Service) *PlanController {
	return &PlanController{planner: planner}
}

// ProducePlanRequest 生成计划请求
type ProducePlanRequest struct {
	Rows []profiler.Row `json:"rows"`
}

// ProducePlan 生成清洗计划
// @Summary 生成清洗计划
// @Description 对数据样本画像并生成清洗计划，样本为空时返回冷启动计划
// @Tags 计划
// @Accept json
// @Produce json
// @Param request body ProducePlanRequest false "数据样本"
// @Success 200 {object} APIResponse{data=planner.Result}
// @Failure 400 {object} APIResponse
// @Router /plans [post]
func (c *PlanController) ProducePlan(w http.ResponseWriter, r *http.Request) {
	var req ProducePlanRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && err != io.EOF {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	result, err := c.planner.ProducePlan(r.Context(), req.Rows)
	if err != nil {
		renderError(w, r, "生成计划失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("计划生成成功", result))
}

// GetPlan 查询计划
// @Summary 查询计划
// @Description 按 run_id 查询已持久化的计划
// @Tags 计划
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.Plan}
// @Failure 404 {object} APIResponse
// @Router /plans/{run_id} [get]
func (c *PlanController) GetPlan(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	plan, err := c.planner.GetPlan(runID)
	if err != nil {
		renderError(w, r, "查询计划失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", plan))
}
