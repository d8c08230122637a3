package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"GreenNest/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

func errorToHTTPStatus(err error) int {
	def, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	// 根据错误码映射 HTTP 状态码
	switch def.Code {
	case "TOO_MANY_REQUESTS":
		return http.StatusTooManyRequests // 429
	case "INVALID_REQUEST", "SIGNUP_STEP_INVALID",
		"SIGNUP_VALIDATION_FAILED", "SIGNUP_INPUT_INVALID",
		"UPLOAD_MISSING_FILE", "UPLOAD_UNSUPPORTED":
		return http.StatusBadRequest // 400
	case "INVALID_CREDENTIALS", "UNAUTHORIZED", "INVALID_USER_ID":
		return http.StatusUnauthorized // 401
	case "SIGNUP_STEP_LOCKED", "SIGNUP_NOT_COMPLETED", "CSRF_INVALID":
		return http.StatusForbidden // 403
	case "NOT_FOUND", "ACCOUNT_NOT_FOUND":
		return http.StatusNotFound // 404
	case "ACCOUNT_EMAIL_TAKEN", "ACCOUNT_NICKNAME_TAKEN", "SIGNUP_IN_PROGRESS":
		return http.StatusConflict // 409
	case "UPLOAD_TOO_LARGE":
		return http.StatusRequestEntityTooLarge // 413
	case "SIGNUP_UPLOAD_FAILED", "SIGNUP_CREATE_FAILED":
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

func describe(err error) (code, message string) {
	if def, ok := errors.As(err); ok {
		return def.Code, def.Message
	}
	return "INTERNAL_ERROR", err.Error()
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	code, message := describe(err)

	c.JSON(errorToHTTPStatus(err), ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// ValidationError 返回字段级校验错误，details.fields 为 字段 -> 提示
func ValidationError(ctx context.Context, c *app.RequestContext, err error, fields map[string]string) {
	ErrorWithDetails(ctx, c, err, map[string]interface{}{"fields": fields})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

// Created 返回 201
func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
