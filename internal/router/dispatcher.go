// Package router 实现路由发现与分发引擎。
// 本文件负责运行期分发：把路由表挂载到传输层路由器上，
// 对每个请求绑定类型化参数、调用处理器，并把结果映射为统一信封。
package router

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/emberforge/warden/internal/config"
	"github.com/emberforge/warden/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Envelope 是统一的响应信封。
// 成功: {success: true, data: ...}
// 失败: {success: false, error: 种类, message: 描述, details?: 详情}
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Dispatcher 持有只读路由表并把请求分发到处理器。
type Dispatcher struct {
	table  *Table
	cfg    *config.Config
	logger *logrus.Logger
}

// NewDispatcher 创建分发器。路由表在此之后不再变化。
func NewDispatcher(table *Table, cfg *config.Config, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{table: table, cfg: cfg, logger: logger}
}

// Mount 把路由表中的所有描述符注册到 chi 路由器上。
// URL 匹配由传输层完成；chi 以名称为键向我们提供原始字符串参数值。
func (d *Dispatcher) Mount(r chi.Router) {
	for i := range d.table.routes {
		desc := &d.table.routes[i]
		r.Method(desc.Method, desc.Pattern, d.wrap(desc))
		d.logger.WithFields(logrus.Fields{
			"method": desc.Method,
			"route":  desc.Pattern,
			"source": desc.Source,
		}).Debug("Route registered")
	}
}

// wrap 为单个路由描述符生成 HTTP 处理器。
// 每次调用都会构造独享的 Invocation；并发请求之间不共享任何可变状态。
func (d *Dispatcher) wrap(desc *Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]any, len(desc.Params))
		for _, spec := range desc.Params {
			params[spec.Name] = coerce(spec, chi.URLParam(r, spec.Name))
		}

		inv := &Invocation{
			Request: r,
			Params:  params,
			Config:  d.cfg,
			Logger: d.logger.WithFields(logrus.Fields{
				"method": desc.Method,
				"route":  desc.Pattern,
			}),
		}

		payload, err := desc.Handler(inv)
		if err != nil {
			d.writeFailure(w, inv, err)
			return
		}
		writeJSON(w, desc.Status, Envelope{Success: true, Data: payload})
	}
}

// writeFailure 把处理器错误渲染为错误信封。
// 分发器是唯一渲染错误的位置：已分类错误按其种类映射状态码，
// 未分类错误绝不外泄原始形态，统一整形为 500 信封。
func (d *Dispatcher) writeFailure(w http.ResponseWriter, inv *Invocation, err error) {
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		inv.Logger.WithError(err).Error("Unclassified handler error")
		apiErr = domain.Internal("internal server error")
		// 非生产环境下 5xx 附带原始错误文本，便于排查
		if d.cfg.Server.Environment != "production" {
			apiErr = apiErr.WithDetails(map[string]string{"cause": err.Error()})
		}
	} else if apiErr.Status >= 500 {
		inv.Logger.WithError(err).Error("Handler error")
	}
	writeJSON(w, apiErr.Status, Envelope{
		Success: false,
		Error:   apiErr.Kind,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

// coerce 按声明类型转换原始路径参数值。
// 转换是刻意宽松的，而不是缺陷：
//   - string: 原样返回
//   - number: 数值解析失败时得到 NaN，由下游处理器自行防御性校验
//   - boolean: 非空字符串即为 true
func coerce(spec ParamSpec, raw string) any {
	switch spec.Type {
	case ParamNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case ParamBoolean:
		return raw != ""
	default:
		return raw
	}
}

// writeJSON 把数据以 JSON 形式写入响应。
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError 供路由表之外的传输层钩子（如 NotFound、认证中间件）
// 以同一信封形态返回错误。
func WriteError(w http.ResponseWriter, apiErr *domain.APIError) {
	writeJSON(w, apiErr.Status, Envelope{
		Success: false,
		Error:   apiErr.Kind,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}
