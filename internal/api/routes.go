// Package api 提供了游戏服务器控制平面的 HTTP API 处理程序。
// 本文件是处理器定义注册表：每个条目相当于原始系统中的一个处理器文件，
// 来源路径中的 [name] / [name:type] 段在构建时被编译为类型化路径参数。
// 注册表在启动时整体编译为路由表，之后不再变化。
package api

import (
	"net/http"

	"github.com/emberforge/warden/internal/router"
)

// routes 返回完整的处理器定义注册表。
func (s *Server) routes() *router.Registry {
	reg := router.NewRegistry()

	// 健康检查（放行名单路径）
	reg.Add(router.Def{Source: "health", Handler: s.health})

	// 容器集合
	reg.Add(router.Def{Source: "containers/index", Handler: s.listContainers})
	reg.Add(router.Def{
		Source:  "containers/index",
		Method:  http.MethodPost,
		Status:  http.StatusCreated,
		Handler: s.createContainer,
	})

	// 单个容器的生命周期与状态
	reg.Add(router.Def{Source: "containers/[id]/index", Method: http.MethodDelete, Handler: s.deleteContainer})
	reg.Add(router.Def{Source: "containers/[id]/status", Handler: s.containerStatus})
	reg.Add(router.Def{Source: "containers/[id]/start", Method: http.MethodPost, Handler: s.startContainer})
	reg.Add(router.Def{Source: "containers/[id]/stop", Method: http.MethodPost, Handler: s.stopContainer})
	reg.Add(router.Def{Source: "containers/[id]/restart", Method: http.MethodPost, Handler: s.restartContainer})

	// 文件操作（全部限制在沙箱前缀之下）
	reg.Add(router.Def{Source: "containers/[id]/files/index", Handler: s.readOrListFiles})
	reg.Add(router.Def{Source: "containers/[id]/files/index", Method: http.MethodPut, Handler: s.writeFile})
	reg.Add(router.Def{Source: "containers/[id]/files/index", Method: http.MethodPost, Handler: s.createFile})
	reg.Add(router.Def{Source: "containers/[id]/files/index", Method: http.MethodDelete, Handler: s.deleteFile})

	// 控制台命令与日志历史
	reg.Add(router.Def{Source: "containers/[id]/command", Method: http.MethodPost, Handler: s.runCommand})
	reg.Add(router.Def{Source: "containers/[id]/logs", Handler: s.recentLogs})

	return reg
}
