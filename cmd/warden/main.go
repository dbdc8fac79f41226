// Package main 是 warden 守护进程的入口点
// warden 是游戏服务器容器的控制平面，负责容器生命周期、
// 文件操作、控制台命令和实时日志中继
package main

import (
	"os"

	"github.com/emberforge/warden/cmd/warden/cmd"
)

// main 将控制权交给 cobra 命令树
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
