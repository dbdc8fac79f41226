// Package docker 通过容器引擎的命令行接口实现容器生命周期管理
// 与容器内命令执行。
// 本文件实现远程命令执行适配器：在目标容器内打开 exec 会话、
// 聚合合并输出流、判定退出条件，并净化字节流。
// 目录列举、文件读写删建和任意命令都建立在它之上。
package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emberforge/warden/internal/domain"
)

// notFoundMarker 是存在性检测的唯一机制：exec 输出中出现该子串时，
// 无论退出码如何，结果都被重分类为"不存在"。
// 该路径上没有结构化的 stat 调用可用，这是一个已知的脆弱点，
// 但为保持行为兼容必须保留。
const notFoundMarker = "No such file or directory"

// Exec 在容器内执行一条命令并返回净化后的结果。
// 会话生命周期：打开绑定到容器的 exec 会话，挂接合并的
// stdout/stderr，启动，收集输出直到流结束。输出在净化前
// 完整缓冲，适用于短命命令；长流走日志中继路径。
//
// 注意：该路径没有内建超时或取消，底层会话挂起时调用也会挂起；
// 调用方通过 ctx 控制生存期。
func (e *Engine) Exec(ctx context.Context, containerID string, command ...string) (*domain.ExecResult, error) {
	return e.execWith(ctx, nil, containerID, command...)
}

// execWith 在容器内执行命令，可选地接入标准输入。
func (e *Engine) execWith(ctx context.Context, stdin io.Reader, containerID string, command ...string) (*domain.ExecResult, error) {
	args := []string{"exec"}
	if stdin != nil {
		args = append(args, "-i")
	}
	args = append(args, containerID)
	args = append(args, command...)

	start := time.Now()
	out, code, err := e.run(ctx, stdin, args...)
	durationMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		e.metrics.ObserveExec("exec", "error", durationMs)
		return nil, domain.Internal("exec session failed: " + err.Error())
	}

	result := &domain.ExecResult{
		ExitCode:       code,
		CombinedOutput: Sanitize(string(out)),
	}
	e.metrics.ObserveExec("exec", execStatusLabel(result), durationMs)
	return result, nil
}

// execStatusLabel 把 exec 结果归入指标标签。
func execStatusLabel(res *domain.ExecResult) string {
	switch {
	case strings.Contains(res.CombinedOutput, notFoundMarker):
		return "not_found"
	case res.ExitCode != 0:
		return "error"
	default:
		return "ok"
	}
}

// classify 判定 exec 会话的退出条件。
// 输出中含有 notFoundMarker 时重分类为 NotFound（即便退出码为 0）；
// 其余非零退出码视为该请求的致命执行错误。
func classify(res *domain.ExecResult) error {
	if strings.Contains(res.CombinedOutput, notFoundMarker) {
		return domain.NotFound("no such file or directory")
	}
	if res.ExitCode != 0 {
		return domain.Internal(fmt.Sprintf("command exited with code %d: %s",
			res.ExitCode, truncate(res.CombinedOutput, 512)))
	}
	return nil
}

// truncate 截断过长的输出片段，避免错误信息失控。
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// shellQuote 以单引号包裹参数，供 sh -c 安全插值。
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ListDir 列举容器内的目录。
// 路径先经沙箱净化；列举命令对目录名追加斜杠，借此区分目录与文件。
// 路径不存在时返回 NotFound（调用方转换为 404）。
// 对未变化的路径重复调用返回相同的有序序列。
func (e *Engine) ListDir(ctx context.Context, containerID, path string) ([]domain.FileEntry, error) {
	path = SandboxPath(path, e.cfg.SandboxPrefix)
	res, err := e.Exec(ctx, containerID, "ls", "-1Ap", "--color=never", path)
	if err != nil {
		return nil, err
	}
	if err := classify(res); err != nil {
		return nil, err
	}

	entries := make([]domain.FileEntry, 0)
	for _, line := range strings.Split(res.CombinedOutput, "\n") {
		line = strings.TrimSpace(line)
		// 过滤空行与合成的当前/上级目录项
		if line == "" || line == "./" || line == "../" {
			continue
		}
		if strings.HasSuffix(line, "/") {
			entries = append(entries, domain.FileEntry{Name: strings.TrimSuffix(line, "/"), IsDirectory: true})
		} else {
			entries = append(entries, domain.FileEntry{Name: line, IsDirectory: false})
		}
	}
	domain.SortFileEntries(entries)
	return entries, nil
}

// ReadFile 读取容器内的文件内容，返回净化后的文本。
func (e *Engine) ReadFile(ctx context.Context, containerID, path string) (string, error) {
	path = SandboxPath(path, e.cfg.SandboxPrefix)
	res, err := e.Exec(ctx, containerID, "cat", path)
	if err != nil {
		return "", err
	}
	if err := classify(res); err != nil {
		return "", err
	}
	return res.CombinedOutput, nil
}

// WriteFile 把内容写入容器内的文件（覆盖写）。
// 写入不是幂等安全的重试对象：调用方重试前应重新确认存在性。
func (e *Engine) WriteFile(ctx context.Context, containerID, path, content string) error {
	path = SandboxPath(path, e.cfg.SandboxPrefix)
	res, err := e.execWith(ctx, strings.NewReader(content), containerID,
		"sh", "-c", "cat > "+shellQuote(path))
	if err != nil {
		return err
	}
	return classify(res)
}

// CreateFile 在容器内创建一个空文件。
func (e *Engine) CreateFile(ctx context.Context, containerID, path string) error {
	path = SandboxPath(path, e.cfg.SandboxPrefix)
	res, err := e.Exec(ctx, containerID, "touch", path)
	if err != nil {
		return err
	}
	return classify(res)
}

// DeleteFile 删除容器内的文件或目录。
// 刻意不使用 -f：目标不存在时引擎会产出 notFoundMarker，
// 调用方得到 404 而不是静默成功。
func (e *Engine) DeleteFile(ctx context.Context, containerID, path string) error {
	path = SandboxPath(path, e.cfg.SandboxPrefix)
	res, err := e.Exec(ctx, containerID, "rm", "-r", path)
	if err != nil {
		return err
	}
	return classify(res)
}

// RunCommand 在容器内执行任意用户命令。
// 命令被提权前缀与控制台桥接前缀包裹（桥接程序把命令送入
// 游戏服务器控制台），返回净化后的合并输出。
func (e *Engine) RunCommand(ctx context.Context, containerID, command string) (string, error) {
	wrapped := strings.TrimSpace(e.cfg.ElevationPrefix + " " + e.cfg.ConsoleBridge + " " + command)
	res, err := e.Exec(ctx, containerID, "sh", "-c", wrapped)
	if err != nil {
		return "", err
	}
	if err := classify(res); err != nil {
		return "", err
	}
	return res.CombinedOutput, nil
}

// SplitLines 把命令输出切分为非空行，供要求行式输出的调用方使用。
func SplitLines(output string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
