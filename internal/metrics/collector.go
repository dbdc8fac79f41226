// Package metrics 提供 Prometheus 指标采集与上报的统一封装。
// 该包集中定义控制平面的关键指标（HTTP 请求、exec 操作、容器状态、
// 日志中继），便于在各模块复用并保持标签一致。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 封装守护进程运行时指标集合。
// 所有字段均为 Prometheus 指标类型，通过辅助方法更新指标值。
type Metrics struct {
	// ========== HTTP 相关指标 ==========

	// RequestsTotal HTTP 请求总次数计数器
	// 标签: method, route, status
	RequestsTotal *prometheus.CounterVec

	// RequestDuration HTTP 请求耗时直方图（单位：毫秒）
	// 标签: method, route
	RequestDuration *prometheus.HistogramVec

	// ========== exec 相关指标 ==========

	// ExecTotal 容器内命令执行总次数计数器
	// 标签: operation, status（ok / not_found / error）
	ExecTotal *prometheus.CounterVec

	// ExecDuration 容器内命令执行耗时直方图（单位：毫秒）
	// 标签: operation
	ExecDuration *prometheus.HistogramVec

	// ========== 容器相关指标 ==========

	// ContainersManaged 受管容器总数
	ContainersManaged prometheus.Gauge

	// ContainersRunning 处于运行状态的受管容器数
	ContainersRunning prometheus.Gauge

	// ========== 日志中继相关指标 ==========

	// LogLinesRelayed 中继转发的日志行计数器
	LogLinesRelayed prometheus.Counter

	// ConsoleClients 当前连接的 websocket 控制台客户端数
	ConsoleClients prometheus.Gauge
}

// NewMetrics 创建并注册所有指标。
// namespace 作为指标名前缀，由配置提供（默认 warden）。
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"method", "route", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),

		ExecTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exec_operations_total",
			Help:      "Total number of in-container exec operations",
		}, []string{"operation", "status"}),

		ExecDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exec_operation_duration_ms",
			Help:      "In-container exec operation latency in milliseconds",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"}),

		ContainersManaged: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "containers_managed",
			Help:      "Number of containers carrying the managed label",
		}),

		ContainersRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "containers_running",
			Help:      "Number of managed containers currently running",
		}),

		LogLinesRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_lines_relayed_total",
			Help:      "Total number of live log lines relayed to subscribers",
		}),

		ConsoleClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "console_clients",
			Help:      "Number of connected websocket console clients",
		}),
	}
}

// ObserveExec 记录一次 exec 操作的结果与耗时。
// m 为 nil 时安全返回，便于在未启用指标时直接传递。
func (m *Metrics) ObserveExec(operation, status string, durationMs float64) {
	if m == nil {
		return
	}
	m.ExecTotal.WithLabelValues(operation, status).Inc()
	m.ExecDuration.WithLabelValues(operation).Observe(durationMs)
}

// ObserveRequest 记录一次 HTTP 请求。
func (m *Metrics) ObserveRequest(method, route, status string, durationMs float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(durationMs)
}

// SetContainerCounts 更新容器数量仪表。
func (m *Metrics) SetContainerCounts(managed, running int) {
	if m == nil {
		return
	}
	m.ContainersManaged.Set(float64(managed))
	m.ContainersRunning.Set(float64(running))
}
