// Package monitor 实现受管容器的周期性状态采样。
// 采样任务由 cron 调度，把容器总数与运行数写入 Prometheus 仪表，
// 供 /metrics 暴露给监控系统。
package monitor

import (
	"context"
	"time"

	"github.com/emberforge/warden/internal/domain"
	"github.com/emberforge/warden/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ContainerLister 是采样器对容器引擎的最小依赖。
type ContainerLister interface {
	List(ctx context.Context) ([]domain.Container, error)
}

// Monitor 周期性采样容器状态。
type Monitor struct {
	cron    *cron.Cron
	engine  ContainerLister
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// New 创建采样器。
func New(engine ContainerLister, m *metrics.Metrics, logger *logrus.Logger) *Monitor {
	return &Monitor{
		cron:    cron.New(),
		engine:  engine,
		metrics: m,
		logger:  logger,
	}
}

// Start 注册采样任务并启动调度器。
// 启动时立即采样一次，之后每 30 秒一次。
func (m *Monitor) Start() error {
	if _, err := m.cron.AddFunc("@every 30s", m.sample); err != nil {
		return err
	}
	m.cron.Start()
	m.sample()
	m.logger.Info("Container monitor started")
	return nil
}

// Stop 停止调度器并等待进行中的采样结束。
func (m *Monitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

// sample 执行一次采样。
func (m *Monitor) sample() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	containers, err := m.engine.List(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Container sampling failed")
		return
	}

	running := 0
	for _, c := range containers {
		if c.State == "running" {
			running++
		}
	}
	m.metrics.SetContainerCounts(len(containers), running)
}
