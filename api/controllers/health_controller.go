/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供存活与就绪检查
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md#11.1
 * @stateFlow HTTP请求处理流程
 * @rules 就绪检查会读取一次策略状态，存储不可用时返回503
 * @dependencies net/http
 * @refs service/policy_store
 */

package controllers

import (
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/policy_store"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthController 健康检查控制器
type HealthController struct {
	store *policy_store.Store
}

// NewHealthController 创建健康检查控制器实例，store 为空时就绪检查不探测存储
func NewHealthController(store *policy_store.Store) *HealthController {
	return &HealthController{store: store}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
	Service   string    `json:"service" example:"adaptive-etl-service"`
	Backend   string    `json:"backend,omitempty" example:"file"`
}

const serviceName = "adaptive-etl-service"

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   serviceName,
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查服务是否就绪
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   serviceName,
	}

	if c.store != nil {
		response.Backend = c.store.Backend().Name()
		var corrupt *models.CorruptStateError
		// 状态损坏会在读取时回退为默认值，不影响就绪
		if _, _, err := c.store.Read(r.Context(), policy_store.KeyState); err != nil && !errors.As(err, &corrupt) {
			response.Status = "unavailable"
			render.Status(r, http.StatusServiceUnavailable)
		}
	}

	render.JSON(w, r, response)
}
