// Package docker 通过容器引擎的命令行接口实现容器生命周期管理
// 与容器内命令执行。
// 本文件实现文件操作路径的净化：剥离目录穿越序列并强制沙箱前缀。
package docker

import "strings"

// SandboxPath 把用户提供的路径规范化到沙箱前缀之下。
// 规则：
//   - 去除首尾空白与反斜杠形式的分隔符
//   - 丢弃空段、"." 段与 ".." 段（目录穿越序列被直接剥离而非报错）
//   - 结果始终以 prefix 开头；原路径已带前缀时不会重复添加
//   - 保留结尾的 "/"，目录列举的语义依赖它
func SandboxPath(raw, prefix string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "\\", "/")

	wantSlash := raw == "" || strings.HasSuffix(raw, "/")

	// 剥掉已有的前缀，剩余部分统一重新拼接
	trimmed := strings.TrimPrefix(raw, prefix)
	trimmed = strings.TrimPrefix(trimmed, strings.TrimSuffix(prefix, "/"))

	var segs []string
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		segs = append(segs, seg)
	}

	p := prefix + strings.Join(segs, "/")
	if wantSlash && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
