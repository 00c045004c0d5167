/*
 * @module api/controllers/event_controller
 * @description 事件控制器，通过SSE向客户端实时推送策略决策事件
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/requirements.md#11.12
 * @stateFlow 建立连接 -> 订阅 -> 推送决策/心跳 -> 断开时取消订阅
 * @rules 连接建立后先发送 connected 事件；空闲时定期发送心跳注释
 * @dependencies service/event
 * @refs service/event/decision_hub.go
 */

package controllers

import (
	"adaptive-etl-service/service/event"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
)

const defaultHeartbeat = 30 * time.Second

// EventController 事件控制器
type EventController struct {
	hub       *event.Hub
	heartbeat time.Duration
}

// NewEventController 创建事件控制器实例
func NewEventController(hub *event.Hub) *EventController {
	return &EventController{hub: hub, heartbeat: defaultHeartbeat}
}

// StreamDecisions 订阅策略决策事件
// @Summary 订阅策略决策事件
// @Description 建立SSE连接，每次策略演化提交后推送 policy_decision 事件
// @Tags 策略
// @Produce text/event-stream
// @Success 200 {string} string "SSE事件流"
// @Router /policies/events [get]
func (c *EventController) StreamDecisions(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("当前连接不支持SSE", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}

	sub := c.hub.Subscribe(clientIP)
	defer c.hub.Unsubscribe(sub.ID)

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber_id\":%q,\"timestamp\":%q}\n\n",
		sub.ID, time.Now().Format(time.RFC3339))
	flusher.Flush()

	heartbeat := time.NewTicker(c.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case ev := <-sub.Events:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("序列化决策事件失败", "run_id", ev.RunID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: policy_decision\nid: %s\ndata: %s\n\n", eventID(ev.RunID), data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-sub.Done():
			return

		case <-r.Context().Done():
			return
		}
	}
}

// eventID 去除换行，id 行不能被拆成多条字段
func eventID(runID string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(runID)
}
