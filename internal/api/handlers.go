// Package api 提供了游戏服务器控制平面的 HTTP API 处理程序。
// 本文件实现容器生命周期相关的处理器。
// 所有处理器遵循统一分发契约：返回 (载荷, nil) 或 (nil, 错误)，
// 信封渲染完全交给分发器。
package api

import (
	"context"

	"github.com/emberforge/warden/internal/domain"
	"github.com/emberforge/warden/internal/events"
	"github.com/emberforge/warden/internal/router"
)

// health 处理 GET /health。
func (s *Server) health(inv *router.Invocation) (any, error) {
	return map[string]string{"status": "healthy"}, nil
}

// listContainers 处理 GET /containers。
func (s *Server) listContainers(inv *router.Invocation) (any, error) {
	return s.engine.List(inv.Request.Context())
}

// createContainer 处理 POST /containers。
// 校验失败返回 400，details 为字段级失败列表；
// 名称冲突由引擎适配器映射为 409。
func (s *Server) createContainer(inv *router.Invocation) (any, error) {
	var req domain.CreateContainerRequest
	if err := inv.DecodeBody(&req); err != nil {
		return nil, err
	}

	if details := req.Validate(inv.Config.Docker.Images); len(details) > 0 {
		return nil, domain.BadRequest("container request validation failed").WithDetails(details)
	}

	created, err := s.engine.Create(inv.Request.Context(), &req)
	if err != nil {
		return nil, err
	}
	s.publish(events.TypeContainerCreated, created.ID, created)
	return created, nil
}

// deleteContainer 处理 DELETE /containers/{id}。
// 容器的日志历史随容器一并清除。
func (s *Server) deleteContainer(inv *router.Invocation) (any, error) {
	id := inv.ParamString("id")
	if err := s.engine.Remove(inv.Request.Context(), id); err != nil {
		return nil, err
	}
	if err := s.store.Drop(inv.Request.Context(), id); err != nil {
		inv.Logger.WithError(err).Warn("Failed to drop log history")
	}
	s.publish(events.TypeContainerRemoved, id, nil)
	return map[string]string{"message": "container removed"}, nil
}

// containerStatus 处理 GET /containers/{id}/status。
func (s *Server) containerStatus(inv *router.Invocation) (any, error) {
	return s.engine.Status(inv.Request.Context(), inv.ParamString("id"))
}

// startContainer 处理 POST /containers/{id}/start。
func (s *Server) startContainer(inv *router.Invocation) (any, error) {
	id := inv.ParamString("id")
	if err := s.engine.Start(inv.Request.Context(), id); err != nil {
		return nil, err
	}
	s.publish(events.TypeContainerStarted, id, nil)
	return map[string]string{"message": "container started"}, nil
}

// stopContainer 处理 POST /containers/{id}/stop。
func (s *Server) stopContainer(inv *router.Invocation) (any, error) {
	id := inv.ParamString("id")
	if err := s.engine.Stop(inv.Request.Context(), id); err != nil {
		return nil, err
	}
	s.publish(events.TypeContainerStopped, id, nil)
	return map[string]string{"message": "container stopped"}, nil
}

// restartContainer 处理 POST /containers/{id}/restart。
func (s *Server) restartContainer(inv *router.Invocation) (any, error) {
	id := inv.ParamString("id")
	if err := s.engine.Restart(inv.Request.Context(), id); err != nil {
		return nil, err
	}
	s.publish(events.TypeContainerRestarted, id, nil)
	return map[string]string{"message": "container restarted"}, nil
}

// publish 在事件总线可用时发布生命周期事件。
// 使用独立上下文：请求结束不应撤销已发生事实的事件发布。
func (s *Server) publish(eventType, containerID string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.PublishLifecycle(context.Background(), eventType, containerID, data)
}
