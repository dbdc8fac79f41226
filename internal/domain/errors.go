// Package domain 定义了游戏服务器控制平面的核心领域模型。
// 本文件实现了一套封闭的 HTTP 错误分类体系：任何一层抛出的错误
// 最终都会被分发器统一转换为 JSON 错误信封。
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误种类常量。
// 每个种类与一个固定的 HTTP 状态码绑定（见 statusOf），
// 并作为错误信封中 error 字段的取值。
const (
	KindBadRequest   = "BadRequest"
	KindUnauthorized = "Unauthorized"
	KindForbidden    = "Forbidden"
	KindNotFound     = "NotFound"
	KindConflict     = "Conflict"
	KindInternal     = "InternalServerError"
)

// APIError 是带有 HTTP 语义的领域错误。
// 字段说明：
//   - Kind: 错误种类（见上方常量），决定响应状态码
//   - Status: HTTP 状态码，与 Kind 一一对应（FromCode 除外）
//   - Message: 面向客户端的错误描述
//   - Details: 可选的结构化附加信息（如字段级校验失败列表），原样透传给客户端
type APIError struct {
	Kind    string `json:"error"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// WithDetails 附加结构化详情并返回同一个错误，便于链式调用。
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// BadRequest 构造一个 400 错误，通常用于请求体或查询参数校验失败。
func BadRequest(message string) *APIError {
	return &APIError{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: message}
}

// Unauthorized 构造一个 401 错误，用于令牌缺失或不匹配。
func Unauthorized(message string) *APIError {
	return &APIError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

// Forbidden 构造一个 403 错误。
func Forbidden(message string) *APIError {
	return &APIError{Kind: KindForbidden, Status: http.StatusForbidden, Message: message}
}

// NotFound 构造一个 404 错误，用于容器、文件或路径不存在的场景。
func NotFound(message string) *APIError {
	return &APIError{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// Conflict 构造一个 409 错误，例如容器名称已被占用。
func Conflict(message string) *APIError {
	return &APIError{Kind: KindConflict, Status: http.StatusConflict, Message: message}
}

// Internal 构造一个 500 错误，用于引擎故障、exec 会话失败等未分类错误。
func Internal(message string) *APIError {
	return &APIError{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message}
}

// FromCode 按给定的 HTTP 状态码构造错误，用于将容器引擎上报的状态原样透传。
// 状态码落在已知种类上时使用对应的 Kind，否则按 5xx/4xx 归入 Internal/BadRequest。
func FromCode(status int, message string) *APIError {
	kind := KindInternal
	switch status {
	case http.StatusBadRequest:
		kind = KindBadRequest
	case http.StatusUnauthorized:
		kind = KindUnauthorized
	case http.StatusForbidden:
		kind = KindForbidden
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusConflict:
		kind = KindConflict
	default:
		if status >= 400 && status < 500 {
			kind = KindBadRequest
		}
	}
	return &APIError{Kind: kind, Status: status, Message: message}
}

// AsAPIError 判断任意错误链上是否包含 APIError。
// 分发器使用该函数把已分类错误映射到信封；未命中的错误一律按 500 处理。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FieldError 表示单个字段的校验失败，作为 BadRequest 的 Details 元素。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
