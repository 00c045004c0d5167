/*
 * @module api/middleware/rate_limit
 * @description 执行限流中间件，超限时返回429并附带限流响应头
 * @architecture 中间件模式 - HTTP请求拦截
 * @documentReference dev_docs/requirements.md#11.13
 * @stateFlow 提取客户端标识 -> 限流检查 -> 放行或拒绝
 * @rules 限流器不可用时放行请求并记录日志
 * @dependencies service/rate_limiter, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"adaptive-etl-service/api/controllers"
	"adaptive-etl-service/service/rate_limiter"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
)

// RateLimit 按客户端限流，limiter 为空时不做限制
func RateLimit(limiter rate_limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := ClientIP(r)
			result, err := limiter.Allow(r.Context(), clientKey)
			if err != nil {
				slog.Warn("限流检查失败，放行请求", "client", clientKey, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

			if !result.Allowed {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, controllers.ErrorResponse(http.StatusTooManyRequests, "执行请求过于频繁，请稍后再试", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP 提取客户端IP，优先使用 X-Forwarded-For 的第一个地址
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
