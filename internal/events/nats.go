// Package events 提供平台事件总线。
// 当前实现基于 NATS：容器生命周期事件走 JetStream 持久化发布，
// 实时日志行走核心 NATS 即发即弃（订阅方自行承担重连）。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// 事件类型常量。
const (
	TypeContainerCreated   = "container.created"
	TypeContainerStarted   = "container.started"
	TypeContainerStopped   = "container.stopped"
	TypeContainerRestarted = "container.restarted"
	TypeContainerRemoved   = "container.removed"
)

// EventBus 封装 NATS/JetStream 连接与常用发布操作。
type EventBus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Logger
}

// Event 表示平台内部事件（JSON 格式）。
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ContainerID string    `json:"container_id"`
	Data        any       `json:"data,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEventBus 创建 EventBus 并初始化所需的 JetStream Stream。
func NewEventBus(natsURL string, logger *logrus.Logger) (*EventBus, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// 生命周期事件初始化 Stream（不存在则创建，存在则尝试更新配置）
	cfg := nats.StreamConfig{
		Name:     "CONTAINER_EVENTS",
		Subjects: []string{"container.created", "container.started", "container.stopped", "container.restarted", "container.removed"},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour * 7,
	}
	if _, err := js.AddStream(&cfg); err != nil && err != nats.ErrStreamNameAlreadyInUse {
		js.UpdateStream(&cfg)
	}

	return &EventBus{conn: nc, js: js, logger: logger}, nil
}

// Close 关闭底层 NATS 连接。
func (eb *EventBus) Close() error {
	eb.conn.Close()
	return nil
}

// PublishLifecycle 发布一条容器生命周期事件。
// 发布失败只记录日志：事件总线故障不应阻断控制面操作。
func (eb *EventBus) PublishLifecycle(ctx context.Context, eventType, containerID string, data any) {
	event := Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ContainerID: containerID,
		Data:        data,
		Timestamp:   time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		eb.logger.WithError(err).Error("Failed to marshal lifecycle event")
		return
	}
	if _, err := eb.js.Publish(eventType, payload); err != nil {
		eb.logger.WithError(err).WithField("type", eventType).Warn("Failed to publish lifecycle event")
		return
	}
	eb.logger.WithFields(logrus.Fields{
		"event_id":     event.ID,
		"type":         eventType,
		"container_id": containerID,
	}).Debug("Lifecycle event published")
}

// PublishLogLine 把一条净化后的日志行扇出到实时订阅方。
// 走核心 NATS 即发即弃；日志行的持久化由日志存储负责，这里不重复。
func (eb *EventBus) PublishLogLine(containerID, line string) {
	subject := "container.logs." + containerID
	if err := eb.conn.Publish(subject, []byte(line)); err != nil {
		eb.logger.WithError(err).WithField("subject", subject).Debug("Failed to publish log line")
	}
}
