// Package docker 通过容器引擎的命令行接口实现容器生命周期管理
// 与容器内命令执行。引擎客户端是进程内唯一共享的句柄，每次调用无状态。
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/emberforge/warden/internal/config"
	"github.com/emberforge/warden/internal/domain"
	"github.com/emberforge/warden/internal/metrics"
	"github.com/sirupsen/logrus"
)

// 容器标签常量，用于标识和管理由本守护进程创建的容器。
// 这些标签在以下场景中使用：
//   - 列表接口只返回受管容器
//   - 启动时发现上次运行遗留的受管容器
//   - 通过 --filter 快速查询
const (
	// managedLabelKey 是受管标签的键名
	managedLabelKey = "warden.managed"
	// managedLabelValue "1" 表示由本守护进程托管
	managedLabelValue = "1"
	// nameLabelKey / typeLabelKey / versionLabelKey / portLabelKey
	// 记录创建请求中的业务字段，供列表和状态接口还原描述符
	nameLabelKey    = "warden.name"
	typeLabelKey    = "warden.type"
	versionLabelKey = "warden.version"
	portLabelKey    = "warden.port"
)

// 引擎错误输出中的识别子串。
const (
	// noSuchContainerMarker 容器不存在
	noSuchContainerMarker = "No such container"
	// nameInUseMarker 容器名称冲突
	nameInUseMarker = "is already in use"
)

// runFunc 执行一条引擎 CLI 命令并返回合并输出与退出码。
// 返回的 error 仅表示传输层故障（如二进制缺失）；命令自身失败体现在退出码上。
// 测试通过替换该函数注入伪造的引擎。
type runFunc func(ctx context.Context, stdin io.Reader, args ...string) ([]byte, int, error)

// Engine 是容器引擎适配器。
// 生命周期操作（创建/启动/停止/删除/检查/统计）与 exec 会话
// 都通过同一个无状态的 CLI 句柄完成。
type Engine struct {
	cfg     config.DockerConfig
	logger  *logrus.Logger
	metrics *metrics.Metrics
	run     runFunc
}

// NewEngine 创建容器引擎适配器。m 可为 nil。
func NewEngine(cfg config.DockerConfig, m *metrics.Metrics, logger *logrus.Logger) *Engine {
	e := &Engine{cfg: cfg, logger: logger, metrics: m}
	e.run = e.runCLI
	return e
}

// runCLI 是默认的 runFunc 实现，直接调用引擎二进制。
// stdout 和 stderr 写入同一缓冲区，保持引擎产出的顺序。
func (e *Engine) runCLI(ctx context.Context, stdin io.Reader, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, e.cfg.Binary, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return buf.Bytes(), exitErr.ExitCode(), nil
		}
		return buf.Bytes(), -1, err
	}
	return buf.Bytes(), 0, nil
}

// psEntry 对应 `ps --format '{{json .}}'` 输出的一行。
type psEntry struct {
	ID     string `json:"ID"`
	Names  string `json:"Names"`
	Image  string `json:"Image"`
	State  string `json:"State"`
	Status string `json:"Status"`
	Labels string `json:"Labels"`
}

// List 返回所有受管容器的描述符。
func (e *Engine) List(ctx context.Context) ([]domain.Container, error) {
	out, code, err := e.run(ctx, nil,
		"ps", "-a",
		"--filter", fmt.Sprintf("label=%s=%s", managedLabelKey, managedLabelValue),
		"--format", "{{json .}}",
	)
	if err != nil {
		return nil, domain.Internal("container engine unavailable: " + err.Error())
	}
	if code != 0 {
		return nil, domain.Internal("failed to list containers: " + Sanitize(string(out)))
	}

	containers := make([]domain.Container, 0)
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry psEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			e.logger.WithError(err).Warn("Failed to parse engine ps line")
			continue
		}
		containers = append(containers, containerFromEntry(entry))
	}
	return containers, nil
}

// containerFromEntry 把 ps 输出行还原为容器描述符，业务字段来自受管标签。
func containerFromEntry(entry psEntry) domain.Container {
	labels := parseLabels(entry.Labels)
	c := domain.Container{
		ID:      entry.ID,
		Name:    strings.TrimPrefix(entry.Names, "/"),
		Image:   entry.Image,
		State:   entry.State,
		Status:  entry.Status,
		Type:    labels[typeLabelKey],
		Version: labels[versionLabelKey],
	}
	if name := labels[nameLabelKey]; name != "" {
		c.Name = name
	}
	if p, err := strconv.Atoi(labels[portLabelKey]); err == nil {
		c.Port = p
	}
	return c
}

// parseLabels 解析 "k=v,k=v" 形式的标签字符串。
func parseLabels(s string) map[string]string {
	labels := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			labels[k] = v
		}
	}
	return labels
}

// Create 按请求创建并启动一个游戏服务器容器。
// 镜像拉取是乐观的：失败只记录日志（本地可能已有镜像），创建照常进行。
func (e *Engine) Create(ctx context.Context, req *domain.CreateContainerRequest) (*domain.Container, error) {
	image, ok := e.cfg.Images[req.Type]
	if !ok {
		return nil, domain.BadRequest(fmt.Sprintf("unknown server type %q", req.Type))
	}

	if out, code, err := e.run(ctx, nil, "pull", image); err != nil || code != 0 {
		e.logger.WithFields(logrus.Fields{
			"image":  image,
			"output": Sanitize(string(out)),
		}).Warn("Image pull failed, continuing with local image")
	}

	memoryMB := req.MemoryMB
	if memoryMB == 0 {
		memoryMB = 2048
	}

	args := []string{
		"create",
		"--name", req.Name,
		"--label", managedLabelKey + "=" + managedLabelValue,
		"--label", nameLabelKey + "=" + req.Name,
		"--label", typeLabelKey + "=" + req.Type,
		"--label", versionLabelKey + "=" + req.Version,
		"--network", e.cfg.NetworkMode,
		"--memory", fmt.Sprintf("%dm", memoryMB),
		"-v", filepath.Join(e.cfg.DataDir, req.Name) + ":" + strings.TrimSuffix(e.cfg.SandboxPrefix, "/"),
		"-e", "EULA=TRUE",
		"-e", "TYPE=" + strings.ToUpper(req.Type),
		"-e", "VERSION=" + req.Version,
		"-e", fmt.Sprintf("MEMORY=%dM", memoryMB),
	}
	if req.ModpackID != "" {
		args = append(args, "-e", "MODPACK_ID="+req.ModpackID)
	}
	if req.Port != 0 {
		args = append(args, "--label", portLabelKey+"="+strconv.Itoa(req.Port))
		args = append(args, "-p", fmt.Sprintf("%d:25565", req.Port))
	}
	args = append(args, image)

	out, code, err := e.run(ctx, nil, args...)
	if err != nil {
		return nil, domain.Internal("container engine unavailable: " + err.Error())
	}
	if code != 0 {
		msg := Sanitize(string(out))
		if strings.Contains(msg, nameInUseMarker) {
			return nil, domain.Conflict(fmt.Sprintf("container name %q is already in use", req.Name))
		}
		return nil, domain.Internal("failed to create container: " + msg)
	}
	id := strings.TrimSpace(Sanitize(string(out)))

	if out, code, err := e.run(ctx, nil, "start", id); err != nil || code != 0 {
		return nil, domain.Internal("container created but failed to start: " + Sanitize(string(out)))
	}

	e.logger.WithFields(logrus.Fields{
		"container_id": id,
		"name":         req.Name,
		"type":         req.Type,
		"version":      req.Version,
	}).Info("Container created")

	return &domain.Container{
		ID:        id,
		Name:      req.Name,
		Type:      req.Type,
		Version:   req.Version,
		Image:     image,
		State:     "running",
		Port:      req.Port,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Start 启动容器。
func (e *Engine) Start(ctx context.Context, id string) error {
	return e.lifecycle(ctx, id, "start", id)
}

// Stop 停止容器，使用配置的宽限时间。
func (e *Engine) Stop(ctx context.Context, id string) error {
	return e.lifecycle(ctx, id, "stop", "-t", strconv.Itoa(e.cfg.StopTimeoutSec), id)
}

// Restart 重启容器。
func (e *Engine) Restart(ctx context.Context, id string) error {
	return e.lifecycle(ctx, id, "restart", "-t", strconv.Itoa(e.cfg.StopTimeoutSec), id)
}

// Remove 强制删除容器。
func (e *Engine) Remove(ctx context.Context, id string) error {
	return e.lifecycle(ctx, id, "rm", "-f", id)
}

// lifecycle 执行一个生命周期子命令并把引擎错误映射到错误分类。
func (e *Engine) lifecycle(ctx context.Context, id string, args ...string) error {
	out, code, err := e.run(ctx, nil, args...)
	if err != nil {
		return domain.Internal("container engine unavailable: " + err.Error())
	}
	if code != 0 {
		msg := Sanitize(string(out))
		if strings.Contains(msg, noSuchContainerMarker) {
			return domain.NotFound("container not found: " + id)
		}
		return domain.Internal(fmt.Sprintf("engine %s failed: %s", args[0], msg))
	}
	e.logger.WithFields(logrus.Fields{
		"container_id": id,
		"operation":    args[0],
	}).Info("Container lifecycle operation completed")
	return nil
}

// inspectEntry 对应 `inspect --format '{{json .}}'` 输出的相关子集。
type inspectEntry struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	State struct {
		Status    string `json:"Status"`
		Running   bool   `json:"Running"`
		StartedAt string `json:"StartedAt"`
	} `json:"State"`
	Config struct {
		Image  string            `json:"Image"`
		Labels map[string]string `json:"Labels"`
	} `json:"Config"`
}

// statsEntry 对应 `stats --no-stream --format '{{json .}}'` 输出的一行。
type statsEntry struct {
	CPUPerc  string `json:"CPUPerc"`
	MemUsage string `json:"MemUsage"`
	MemPerc  string `json:"MemPerc"`
}

// Status 返回容器的运行状态与实时资源指标。
// 容器不存在时返回 NotFound；统计采集失败（如容器已停止）不视为错误。
func (e *Engine) Status(ctx context.Context, id string) (*domain.ContainerStatus, error) {
	out, code, err := e.run(ctx, nil, "inspect", "--format", "{{json .}}", id)
	if err != nil {
		return nil, domain.Internal("container engine unavailable: " + err.Error())
	}
	if code != 0 {
		msg := Sanitize(string(out))
		if strings.Contains(msg, noSuchContainerMarker) {
			return nil, domain.NotFound("container not found: " + id)
		}
		return nil, domain.Internal("failed to inspect container: " + msg)
	}

	var entry inspectEntry
	if err := json.Unmarshal(bytes.TrimSpace(out), &entry); err != nil {
		return nil, domain.Internal("failed to parse inspect output: " + err.Error())
	}

	labels := entry.Config.Labels
	status := &domain.ContainerStatus{
		Container: domain.Container{
			ID:      entry.ID,
			Name:    strings.TrimPrefix(entry.Name, "/"),
			Image:   entry.Config.Image,
			State:   entry.State.Status,
			Type:    labels[typeLabelKey],
			Version: labels[versionLabelKey],
		},
		Running:   entry.State.Running,
		StartedAt: entry.State.StartedAt,
	}
	if name := labels[nameLabelKey]; name != "" {
		status.Name = name
	}
	if p, err := strconv.Atoi(labels[portLabelKey]); err == nil {
		status.Port = p
	}

	if entry.State.Running {
		if out, code, err := e.run(ctx, nil, "stats", "--no-stream", "--format", "{{json .}}", id); err == nil && code == 0 {
			var stats statsEntry
			if err := json.Unmarshal(bytes.TrimSpace(out), &stats); err == nil {
				status.CPUPercent = stats.CPUPerc
				status.MemUsage = stats.MemUsage
				status.MemPercent = stats.MemPerc
			}
		}
	}

	return status, nil
}
