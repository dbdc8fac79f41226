// Package docker 通过容器引擎的命令行接口实现容器生命周期管理
// 与容器内命令执行。
// 本文件实现日志跟随流：为实时日志中继打开 follow 模式的日志流。
package docker

import (
	"context"
	"io"
	"os/exec"
)

// FollowLogs 打开容器的 follow 模式日志流，tail 深度为零（只收未来的行）。
// 返回的 ReadCloser 合并了 stdout/stderr；ctx 取消时底层进程被终止，
// 流随之关闭——这是订阅者断开时释放资源的唯一路径。
func (e *Engine) FollowLogs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, e.cfg.Binary, "logs", "-f", "--tail", "0", containerID)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, err
	}

	go func() {
		// 进程退出（容器停止、ctx 取消或引擎故障）后结束流
		err := cmd.Wait()
		pw.CloseWithError(err)
	}()

	return pr, nil
}
