/*
 * @module api/controllers/policy_controller
 * @description 策略控制器，触发策略演化并查询策略状态、历史与下一份计划
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md#11.1
 * @stateFlow 解析请求 -> 校验 -> Evolve -> 返回决策
 * @rules 报告缺失返回404且不产生任何写入；存储不可用返回503
 * @dependencies github.com/go-chi/render, github.com/go-playground/validator/v10
 * @refs service/policy, service/policy_store
 */

package controllers

import (
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/policy"
	"net/http"

	"github.com/go-chi/render"
)

// PolicyController 策略控制器
type PolicyController struct {
	engine *policy.Engine
}

// NewPolicyController 创建策略控制器实例
func NewPolicyController(engine *policy.Engine) *PolicyController {
	return &PolicyController{engine: engine}
}

// EvolveRequest 策略演化请求
type EvolveRequest struct {
	RunID  string                `json:"run_id" validate:"required"`
	Report *models.QualityReport `json:"report,omitempty"`
}

// Evolve 策略演化
// @Summary 策略演化
// @Description 根据运行的质量报告选择下一次的填充策略并生成下一份计划；未提供报告时读取运行产物
// @Tags 策略
// @Accept json
// @Produce json
// @Param request body EvolveRequest true "演化请求"
// @Success 200 {object} APIResponse{data=policy.Decision}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /policies/evolve [post]
func (c *PolicyController) Evolve(w http.ResponseWriter, r *http.Request) {
	var req EvolveRequest
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

	decision, err := c.engine.Evolve(r.Context(), req.RunID, req.Report)
	if err != nil {
		renderError(w, r, "策略演化失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("策略演化成功", decision))
}

// GetState 查询策略状态
// @Summary 查询策略状态
// @Tags 策略
// @Produce json
// @Success 200 {object} APIResponse{data=models.PolicyState}
// @Router /policies/state [get]
func (c *PolicyController) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := c.engine.Store().State(r.Context())
	if err != nil {
		renderError(w, r, "查询策略状态失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", state))
}

// GetHistory 查询策略历史
// @Summary 查询策略历史
// @Tags 策略
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.HistoryEntry}
// @Router /policies/history [get]
func (c *PolicyController) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := c.engine.Store().History(r.Context())
	if err != nil {
		renderError(w, r, "查询策略历史失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", history))
}

// GetNextPlan 查询下一份计划
// @Summary 查询下一份计划
// @Tags 策略
// @Produce json
// @Success 200 {object} APIResponse{data=models.Plan}
// @Failure 404 {object} APIResponse
// @Router /policies/next-plan [get]
func (c *PolicyController) GetNextPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := c.engine.Store().NextPlan(r.Context())
	if err != nil {
		renderError(w, r, "查询下一份计划失败", err)
		return
	}
	if plan == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, NotFoundResponse("尚未生成下一份计划", nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", plan))
}
