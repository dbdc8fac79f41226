// Package api 提供了游戏服务器控制平面的 HTTP API 处理程序。
// 本文件实现文件操作处理器。所有路径都经过沙箱净化并被强制
// 置于固定前缀之下；存在性判定依赖 exec 适配器的分类结果。
package api

import (
	"strings"

	"github.com/emberforge/warden/internal/domain"
	"github.com/emberforge/warden/internal/router"
)

// filePath 从查询参数提取目标路径，缺省为沙箱根目录。
func (s *Server) filePath(inv *router.Invocation) string {
	p := inv.Query("path")
	if strings.TrimSpace(p) == "" {
		return inv.Config.Docker.SandboxPrefix
	}
	return p
}

// readOrListFiles 处理 GET /containers/{id}/files?path=。
// 路径以 "/" 结尾时列举目录（空目录返回空序列），否则读取文件内容。
func (s *Server) readOrListFiles(inv *router.Invocation) (any, error) {
	id := inv.ParamString("id")
	path := s.filePath(inv)

	if strings.HasSuffix(path, "/") {
		return s.engine.ListDir(inv.Request.Context(), id, path)
	}

	content, err := s.engine.ReadFile(inv.Request.Context(), id, path)
	if err != nil {
		return nil, err
	}
	return map[string]string{"content": content}, nil
}

// writeFileRequest 是 PUT /containers/{id}/files 的请求体。
type writeFileRequest struct {
	Content string `json:"content"`
}

// writeFile 处理 PUT /containers/{id}/files?path=。
func (s *Server) writeFile(inv *router.Invocation) (any, error) {
	var req writeFileRequest
	if err := inv.DecodeBody(&req); err != nil {
		return nil, err
	}

	path := s.filePath(inv)
	if strings.HasSuffix(path, "/") {
		return nil, domain.BadRequest("path must reference a file, not a directory")
	}

	if err := s.engine.WriteFile(inv.Request.Context(), inv.ParamString("id"), path, req.Content); err != nil {
		return nil, err
	}
	return map[string]string{"message": "file written"}, nil
}

// createFile 处理 POST /containers/{id}/files?path=。
func (s *Server) createFile(inv *router.Invocation) (any, error) {
	path := s.filePath(inv)
	if strings.HasSuffix(path, "/") {
		return nil, domain.BadRequest("path must reference a file, not a directory")
	}

	if err := s.engine.CreateFile(inv.Request.Context(), inv.ParamString("id"), path); err != nil {
		return nil, err
	}
	return map[string]string{"message": "file created"}, nil
}

// deleteFile 处理 DELETE /containers/{id}/files?path=。
// 删除不是可盲目重试的操作：目标不存在时返回 404 而非静默成功。
func (s *Server) deleteFile(inv *router.Invocation) (any, error) {
	if err := s.engine.DeleteFile(inv.Request.Context(), inv.ParamString("id"), s.filePath(inv)); err != nil {
		return nil, err
	}
	return map[string]string{"message": "file deleted"}, nil
}
