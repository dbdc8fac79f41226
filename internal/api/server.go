// Package api 提供了游戏服务器控制平面的 HTTP API 处理程序。
// 本文件定义 Server 及其协作者接口，并负责配置 HTTP 路由器和中间件。
package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/emberforge/warden/internal/config"
	"github.com/emberforge/warden/internal/domain"
	"github.com/emberforge/warden/internal/metrics"
	"github.com/emberforge/warden/internal/router"
	"github.com/emberforge/warden/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// ContainerEngine 是处理器对容器引擎适配器的依赖。
// 生命周期操作与基于 exec 会话的文件/命令操作都经由该接口。
type ContainerEngine interface {
	List(ctx context.Context) ([]domain.Container, error)
	Create(ctx context.Context, req *domain.CreateContainerRequest) (*domain.Container, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Status(ctx context.Context, id string) (*domain.ContainerStatus, error)

	ListDir(ctx context.Context, id, path string) ([]domain.FileEntry, error)
	ReadFile(ctx context.Context, id, path string) (string, error)
	WriteFile(ctx context.Context, id, path, content string) error
	CreateFile(ctx context.Context, id, path string) error
	DeleteFile(ctx context.Context, id, path string) error
	RunCommand(ctx context.Context, id, command string) (string, error)

	FollowLogs(ctx context.Context, id string) (io.ReadCloser, error)
}

// LogStore 是外部 KV 日志存储的边界接口（有界环形缓冲）。
type LogStore interface {
	Append(ctx context.Context, containerID, line string) error
	Recent(ctx context.Context, containerID string, limit int) ([]string, error)
	Drop(ctx context.Context, containerID string) error
}

// EventPublisher 是实时发布/订阅传输的边界接口。
type EventPublisher interface {
	PublishLifecycle(ctx context.Context, eventType, containerID string, data any)
	PublishLogLine(containerID, line string)
}

// Server 聚合所有协作者并持有编译后的路由表。
type Server struct {
	cfg     *config.Config
	logger  *logrus.Logger
	engine  ContainerEngine
	store   LogStore
	bus     EventPublisher
	metrics *metrics.Metrics
	relay   *Relay
}

// NewServer 创建 API 服务器。bus 与 m 可为 nil（事件/指标未启用时）。
func NewServer(cfg *config.Config, engine ContainerEngine, store LogStore, bus EventPublisher, m *metrics.Metrics, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		store:   store,
		bus:     bus,
		metrics: m,
	}
	s.relay = NewRelay(engine, store, bus, m, logger)
	return s
}

// NewRouter 构建并配置 HTTP 路由器。
//
// 功能说明：
//   - 在启动时把处理器注册表编译为完整路由表，任何非法定义都让构建失败
//   - 配置全局中间件链与认证
//   - 注册健康检查、指标端点与 websocket 控制台端点
//
// 返回编译失败的错误时进程应当快速退出，而不是带着残缺的路由表服务。
func (s *Server) NewRouter() (*chi.Mux, error) {
	table, err := s.routes().Build()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// 中间件按添加顺序执行，形成洋葱模型
	r.Use(telemetry.HTTPMiddleware("warden"))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5, "application/json", "text/plain"))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	r.Use(corsMiddleware)
	if s.metrics != nil {
		r.Use(s.metricsMiddleware)
	}
	r.Use(s.authMiddleware)

	// Prometheus 指标端点
	if s.cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// 路由表由分发器统一挂载；处理器从不直接写响应
	dispatcher := router.NewDispatcher(table, s.cfg, s.logger)
	dispatcher.Mount(r)

	for _, desc := range table.Routes() {
		s.logger.WithFields(logrus.Fields{
			"method": desc.Method,
			"route":  desc.Pattern,
		}).Info("Route active")
	}

	// websocket 实时控制台（协议升级，不走信封）
	r.Get("/containers/{id}/console", s.ConsoleStream)

	// 未匹配路由也返回统一信封
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		router.WriteError(w, domain.NotFound("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		router.WriteError(w, domain.FromCode(http.StatusMethodNotAllowed, "method not allowed"))
	})

	return r, nil
}

// metricsMiddleware 记录每个请求的方法、路由模式、状态码与耗时。
// 路由标签使用编译后的模式而非原始路径，避免高基数标签。
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(r.Method, route, strconv.Itoa(ww.Status()),
			float64(time.Since(start).Milliseconds()))
	})
}

// corsMiddleware 处理跨域资源共享。
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
