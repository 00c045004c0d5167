package controllers

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/evaluator"
	"adaptive-etl-service/service/executor"
	"adaptive-etl-service/service/models"
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: 0, Msg: msg, Data: data}
}

// ErrorResponse 错误响应，err 不为空时附加到消息中
func ErrorResponse(status int, msg string, err error) APIResponse {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return APIResponse{Status: status, Msg: msg}
}

// BadRequestResponse 请求参数错误
func BadRequestResponse(msg string, err error) APIResponse {
	return ErrorResponse(http.StatusBadRequest, msg, err)
}

// NotFoundResponse 资源不存在
func NotFoundResponse(msg string, err error) APIResponse {
	return ErrorResponse(http.StatusNotFound, msg, err)
}

// InternalErrorResponse 服务内部错误
func InternalErrorResponse(msg string, err error) APIResponse {
	return ErrorResponse(http.StatusInternalServerError, msg, err)
}

// renderError 按错误类型选择HTTP状态码并输出统一响应
func renderError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse(status, msg, err))
}

func statusFor(err error) int {
	var (
		invalid     *models.InvalidPlanError
		missing     *models.MissingReportError
		unavailable *models.StoreUnavailableError
	)
	switch {
	case errors.As(err, &invalid), errors.Is(err, models.ErrInvalidRunID):
		return http.StatusBadRequest
	case errors.As(err, &missing), errors.Is(err, artifact.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, evaluator.ErrOutputMissing),
		errors.Is(err, executor.ErrUnsupportedFileType),
		errors.Is(err, executor.ErrScriptNotFound):
		return http.StatusBadRequest
	case errors.Is(err, executor.ErrScriptTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, executor.ErrScriptNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, evaluator.ErrAlreadyEvaluated):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, executor.ErrExecutionFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
