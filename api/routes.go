/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/requirements.md#11.1
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式；须在 service.Init 之后调用
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, service/init.go
 */

package api

import (
	"adaptive-etl-service/api/controllers"
	apimw "adaptive-etl-service/api/middleware"
	"adaptive-etl-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(service.GlobalPolicyStore)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 计划
	r.Route("/plans", func(r chi.Router) {
		planController := controllers.NewPlanController(service.GlobalPlannerService)
		r.Post("/", planController.ProducePlan)
		r.Get("/{run_id}", planController.GetPlan)
	})

	// 策略
	r.Route("/policies", func(r chi.Router) {
		policyController := controllers.NewPolicyController(service.GlobalPolicyEngine)
		r.Post("/evolve", policyController.Evolve)
		r.Get("/state", policyController.GetState)
		r.Get("/history", policyController.GetHistory)
		r.Get("/next-plan", policyController.GetNextPlan)

		eventController := controllers.NewEventController(service.GlobalEventHub)
		r.Get("/events", eventController.StreamDecisions)
	})

	// 运行
	r.Route("/runs/{run_id}", func(r chi.Router) {
		runController := controllers.NewRunController(service.GlobalRunStore, service.GlobalExecutor, service.GlobalEvaluator)
		r.With(apimw.RateLimit(service.GlobalExecuteLimiter)).Post("/execute", runController.Execute)
		r.Post("/evaluate", runController.Evaluate)
		r.Get("/result", runController.GetResult)
		r.Get("/metrics", runController.GetMetrics)
		r.Get("/logs", runController.GetExecutorLog)
		r.Get("/download", runController.Download)
	})
}
