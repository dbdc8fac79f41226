// Package cmd 包含 warden 守护进程的所有命令实现。
// 本文件实现 serve 命令：初始化所有依赖组件并启动 HTTP 服务器。
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emberforge/warden/internal/api"
	"github.com/emberforge/warden/internal/config"
	"github.com/emberforge/warden/internal/docker"
	"github.com/emberforge/warden/internal/events"
	"github.com/emberforge/warden/internal/logstore"
	"github.com/emberforge/warden/internal/metrics"
	"github.com/emberforge/warden/internal/monitor"
	"github.com/emberforge/warden/internal/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serveCmd 是 serve 命令的 cobra.Command 实例。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control plane daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// init 注册 serve 命令到根命令。
func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe 是守护进程的主函数
// 它负责初始化所有依赖组件并启动 HTTP 服务器
func runServe() error {
	// 设置日志记录器
	// 默认使用 JSON 格式输出日志，便于日志收集和分析
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// 加载配置文件
	// 配置文件缺失时退回到内置默认配置（令牌仍可经环境变量注入）
	cfg, err := config.Load(configPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WithError(err).Fatal("Failed to load config")
		}
		logger.WithField("path", configPath()).Warn("Config file not found, using defaults")
		cfg = config.Default()
	}

	// 根据配置设置日志级别和格式
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	logger.WithField("environment", cfg.Server.Environment).Info("Starting Warden control plane")

	// 初始化遥测系统 (OpenTelemetry)
	// 遥测系统用于收集分布式追踪数据
	if cfg.Telemetry.Enabled {
		tel, err := telemetry.New(context.Background(), cfg.Telemetry)
		if err != nil {
			// 遥测初始化失败不影响主服务运行，仅记录警告
			logger.WithError(err).Warn("Failed to initialize telemetry, continuing without tracing")
		} else {
			defer tel.Shutdown(context.Background())
			// 将遥测钩子添加到日志记录器，自动关联日志和追踪
			logger.AddHook(telemetry.NewLogrusHook())
			logger.WithFields(logrus.Fields{
				"endpoint":    cfg.Telemetry.Endpoint,
				"sample_rate": cfg.Telemetry.SampleRate,
			}).Info("Telemetry initialized")
		}
	}

	// 初始化 Redis 日志存储
	// Redis 为每个容器维护有界的日志历史环形缓冲
	store, err := logstore.New(cfg.Storage.Redis, cfg.Storage.LogHistory)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer store.Close()

	// 初始化 NATS 事件总线
	// 生命周期事件走 JetStream 持久化流，日志行走普通发布
	var bus api.EventPublisher
	if cfg.Events.Enabled {
		eventBus, err := events.NewEventBus(cfg.Events.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to NATS")
		}
		defer eventBus.Close()
		bus = eventBus
		logger.WithField("url", cfg.Events.NATSURL).Info("Event bus connected")
	}

	// 初始化 Prometheus 指标收集器
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace)
	}

	// 初始化容器引擎适配器
	// 引擎通过 docker CLI 驱动，所有输出经过净化与分类
	engine := docker.NewEngine(cfg.Docker, m, logger)

	// 发现上次运行遗留的受管容器
	// 引擎不可用只告警：守护进程可以先起来，操作时再报错
	if containers, err := engine.List(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to discover managed containers")
	} else {
		for _, c := range containers {
			logger.WithFields(logrus.Fields{
				"container_id": c.ID,
				"name":         c.Name,
				"state":        c.State,
			}).Info("Discovered managed container")
		}
	}

	// 启动容器状态监控器
	// 监控器定期采样容器计数并更新指标
	mon := monitor.New(engine, m, logger)
	if err := mon.Start(); err != nil {
		logger.WithError(err).Error("Failed to start container monitor")
	}
	defer mon.Stop()

	// 初始化 API 服务器并编译路由表
	// 路由表编译失败说明处理器注册表有缺陷，立即退出
	apiServer := api.NewServer(cfg, engine, store, bus, m, logger)
	router, err := apiServer.NewRouter()
	if err != nil {
		logger.WithError(err).Fatal("Failed to build route table")
	}

	// 配置并启动主 HTTP 服务器
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket 控制台长连接不设写超时
		IdleTimeout:  120 * time.Second,
	}

	// 在后台协程中启动 HTTP 服务器
	go func() {
		logger.WithField("addr", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// 等待关闭信号
	// 监听 SIGINT (Ctrl+C) 和 SIGTERM (容器停止) 信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 创建带超时的上下文用于优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 优雅关闭 HTTP 服务器，等待现有请求处理完成
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}

	logger.Info("Server stopped")
	return nil
}
