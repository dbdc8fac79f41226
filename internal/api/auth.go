// Package api 提供了游戏服务器控制平面的 HTTP API 处理程序。
// 本文件实现认证中间件：所有路由共享一个固定的 Bearer 令牌，
// 放行名单中的路径除外。令牌不匹配时在任何处理器执行前返回 401。
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/emberforge/warden/internal/domain"
	"github.com/emberforge/warden/internal/router"
)

// authMiddleware 校验请求的 Bearer 令牌。
// 放行规则：路径与放行名单条目完全相等，或以 "/" + 条目结尾
// （使 /containers/{id}/logs 命中名单中的 /logs）。
// 比较使用恒定时间算法，避免时序侧信道。
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isAllowListed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" || s.cfg.Auth.Token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Auth.Token)) != 1 {
			router.WriteError(w, domain.Unauthorized("invalid or missing bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowListed 判断路径是否在放行名单中。
func (s *Server) isAllowListed(path string) bool {
	for _, allowed := range s.cfg.Auth.AllowList {
		if path == allowed || strings.HasSuffix(path, allowed) && strings.HasPrefix(allowed, "/") {
			return true
		}
	}
	// 指标端点供抓取器直接访问
	return path == "/metrics"
}

// bearerToken 从 Authorization 头提取 Bearer 令牌。
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
