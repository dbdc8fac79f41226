// Package api 提供了游戏服务器控制平面的 HTTP API 处理程序。
// 本文件实现控制台相关功能：任意命令执行、日志历史查询，
// 以及通过 websocket 的实时日志中继。
package api

import (
	"bufio"
	"context"
	"net/http"
	"strconv"

	"github.com/emberforge/warden/internal/docker"
	"github.com/emberforge/warden/internal/metrics"
	"github.com/emberforge/warden/internal/router"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// commandRequest 是 POST /containers/{id}/command 的请求体。
type commandRequest struct {
	Command string `json:"command"`
	Split   bool   `json:"split,omitempty"`
}

// runCommand 处理 POST /containers/{id}/command。
// 命令经提权与控制台桥接前缀包裹后在容器内执行，
// 返回净化后的输出；split 为 true 时按非空行切分。
func (s *Server) runCommand(inv *router.Invocation) (any, error) {
	var req commandRequest
	if err := inv.DecodeBody(&req); err != nil {
		return nil, err
	}

	output, err := s.engine.RunCommand(inv.Request.Context(), inv.ParamString("id"), req.Command)
	if err != nil {
		return nil, err
	}

	if req.Split {
		return map[string]any{"lines": docker.SplitLines(output)}, nil
	}
	return map[string]string{"output": output}, nil
}

// recentLogs 处理 GET /containers/{id}/logs。
// 从有界环形缓冲读取日志历史，最新的行在前。
func (s *Server) recentLogs(inv *router.Invocation) (any, error) {
	limit, _ := strconv.Atoi(inv.Query("limit"))
	lines, err := s.store.Recent(inv.Request.Context(), inv.ParamString("id"), limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"lines": lines}, nil
}

// streamEndedSentinel 是流结束时发给订阅者的哨兵行。
const streamEndedSentinel = "stream ended"

// Relay 是实时日志中继。
// 订阅时打开 follow 模式日志流（tail 深度为零，只收未来的行），
// 逐行净化后转发给订阅者、追加到有界存储并扇出到事件总线。
// 中继自身不做重连，重连是订阅者的责任。
type Relay struct {
	engine  ContainerEngine
	store   LogStore
	bus     EventPublisher
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewRelay 创建实时日志中继。
func NewRelay(engine ContainerEngine, store LogStore, bus EventPublisher, m *metrics.Metrics, logger *logrus.Logger) *Relay {
	return &Relay{engine: engine, store: store, bus: bus, metrics: m, logger: logger}
}

// Run 中继一个容器的日志流，直到流结束或 ctx 取消。
// 每行经 CleanLogLine 净化；流结束时向订阅者发出哨兵行。
// sink 返回错误表示订阅者已断开，此时直接返回，
// ctx 的取消会终止底层日志流，不留资源泄漏。
func (r *Relay) Run(ctx context.Context, containerID string, sink func(line string) error) error {
	stream, err := r.engine.FollowLogs(ctx, containerID)
	if err != nil {
		return err
	}
	defer stream.Close()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		line := docker.CleanLogLine(scanner.Text())
		if line == "" {
			continue
		}

		if err := sink(line); err != nil {
			return nil
		}

		// 历史只追加；追加失败不中断实时转发
		if err := r.store.Append(ctx, containerID, line); err != nil {
			r.logger.WithError(err).Debug("Failed to persist log line")
		}
		if r.bus != nil {
			r.bus.PublishLogLine(containerID, line)
		}
		if r.metrics != nil {
			r.metrics.LogLinesRelayed.Inc()
		}
	}

	// 流结束（容器停止或引擎故障）：发出哨兵行
	_ = sink(streamEndedSentinel)
	return scanner.Err()
}

// consoleUpgrader 为 websocket 控制台升级连接。
var consoleUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// logEvent 是推送给 websocket 订阅者的消息结构。
type logEvent struct {
	Type string `json:"type"`
	Line string `json:"line"`
}

// ConsoleStream 处理 GET /containers/{id}/console 的 websocket 升级。
// 订阅者断开时取消上下文，中继与底层日志流随之拆除所有监听。
func (s *Server) ConsoleStream(w http.ResponseWriter, r *http.Request) {
	containerID := chi.URLParam(r, "id")

	conn, err := consoleUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ConsoleClients.Inc()
		defer s.metrics.ConsoleClients.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 监听客户端关闭
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	err = s.relay.Run(ctx, containerID, func(line string) error {
		return conn.WriteJSON(logEvent{Type: "log", Line: line})
	})
	if err != nil && ctx.Err() == nil {
		s.logger.WithError(err).WithField("container_id", containerID).Warn("Log relay terminated")
	}
}
