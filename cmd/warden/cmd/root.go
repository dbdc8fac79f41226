// Package cmd 包含 warden 守护进程的所有命令实现
// 使用 cobra 框架构建命令行接口
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// 全局命令行标志变量
var (
	cfgFile string // 配置文件路径
)

// rootCmd 是守护进程的根命令
// 所有子命令都挂载在这个根命令下
var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - Game Server Container Control Plane",
	Long: `warden 是游戏服务器容器的控制平面守护进程。

使用示例:
  # 使用默认配置启动守护进程
  warden serve

  # 指定配置文件启动
  warden serve --config /etc/warden/config.yaml

  # 查看版本信息
  warden version`,
}

// Execute 执行根命令
// 这是守护进程的入口函数，由 main 包调用
//
// 返回:
//   - error: 命令执行错误
func Execute() error {
	return rootCmd.Execute()
}

// init 初始化命令行工具
// 注册全局标志和配置初始化函数
func init() {
	cobra.OnInitialize(initConfig)

	// 注册持久化标志（所有子命令都可使用）
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认为 /etc/warden/config.yaml）")

	// 将标志绑定到 viper 配置
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

// initConfig 初始化配置
// 按优先级加载配置：命令行标志 > 环境变量 > 配置文件
func initConfig() {
	// 设置环境变量前缀
	// 环境变量格式：WARDEN_<KEY>，如 WARDEN_CONFIG
	viper.SetEnvPrefix("WARDEN")
	viper.AutomaticEnv() // 自动读取环境变量
}

// configPath 获取配置文件的完整路径
// 如果未指定配置文件，返回默认路径
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := viper.GetString("config"); v != "" {
		return v
	}
	return "/etc/warden/config.yaml"
}
