// Package router 实现路由发现与分发引擎：
// 启动时把注册表中的处理器定义树编译为一张不可变路由表，
// 运行时按请求匹配路由、绑定类型化路径参数、调用处理器，
// 并把处理结果统一映射为成功/错误信封。
package router

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/emberforge/warden/internal/config"
	"github.com/emberforge/warden/internal/domain"
	"github.com/sirupsen/logrus"
)

// ParamType 是路径参数的声明类型。
type ParamType string

// 支持的参数类型。未显式声明时默认为 string。
const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// ParamSpec 描述一个从路径段推导出的命名参数。
// 字段说明：
//   - Name: 参数名，来自 [name] 或 [name:type] 形式的路径段
//   - Type: 声明类型，决定运行期的强制转换方式
//   - Index: 参数在 URL 中的位置序号（从 0 开始）
type ParamSpec struct {
	Name  string
	Type  ParamType
	Index int
}

// HandlerFunc 是统一的处理器签名。
// 约定：成功时返回 (payload, nil)；失败时返回 (nil, err)，
// err 为 *domain.APIError 时按其种类映射状态码，否则按 500 处理。
type HandlerFunc func(inv *Invocation) (any, error)

// Def 是一个处理器定义单元，相当于原始系统中的一个处理器文件。
// 字段说明：
//   - Source: 相对于注册表根的来源路径，如 "containers/[id]/files/index"；
//     方括号段会被改写为命名占位符，末段 index 会被丢弃
//   - Method: HTTP 方法，缺省为 GET
//   - URL: 显式 URL，非空时覆盖由 Source 推导出的 URL
//   - Status: 成功状态码，缺省为 200
//   - Handler: 处理器函数，缺省为固定的"未实现"占位处理器
type Def struct {
	Source  string
	Method  string
	URL     string
	Status  int
	Handler HandlerFunc
}

// Descriptor 是编译后的路由描述符。启动后不可变，仅由路由表持有。
type Descriptor struct {
	Method  string
	Pattern string
	Params  []ParamSpec
	Status  int
	Handler HandlerFunc
	Source  string
}

// Table 是完整的路由表。Build 在启动时一次性产出，之后只读。
type Table struct {
	routes []Descriptor
}

// Routes 返回编译后的路由描述符序列（稳定顺序，仅用于诊断日志）。
func (t *Table) Routes() []Descriptor {
	return t.routes
}

// Invocation 是传递给处理器的请求上下文。
// 每个请求独享一个实例，由分发器创建并在请求结束后丢弃，绝不跨请求共享。
type Invocation struct {
	// Request 原始 HTTP 请求
	Request *http.Request
	// Params 按声明类型转换后的路径参数，按名称索引
	Params map[string]any
	// Config 进程级配置
	Config *config.Config
	// Logger 带请求字段的日志接收器
	Logger *logrus.Entry
}

// Param 返回已绑定的路径参数值；未定义的参数返回 nil。
func (inv *Invocation) Param(name string) any {
	return inv.Params[name]
}

// ParamString 以字符串形式返回路径参数，非字符串类型返回空串。
func (inv *Invocation) ParamString(name string) string {
	if s, ok := inv.Params[name].(string); ok {
		return s
	}
	return ""
}

// Query 返回 URL 查询参数。
func (inv *Invocation) Query(name string) string {
	return inv.Request.URL.Query().Get(name)
}

// DecodeBody 把请求体解析为 JSON。
// 请求体为空或格式非法时返回 BadRequest 错误。
func (inv *Invocation) DecodeBody(v any) error {
	body, err := io.ReadAll(inv.Request.Body)
	if err != nil {
		return domain.BadRequest("failed to read request body")
	}
	if len(body) == 0 {
		return domain.BadRequest("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.BadRequest("invalid JSON body: " + err.Error())
	}
	return nil
}
