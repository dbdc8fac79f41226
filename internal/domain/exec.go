// Package domain 定义了游戏服务器控制平面的核心领域模型。
// 本文件包含 exec 会话结果与文件条目类型。
package domain

import (
	"sort"
	"strings"
)

// ExecResult 是一次容器内命令执行的结果。
// 不变量：CombinedOutput 在交给调用方之前已完成净化
// （无 ANSI 转义序列、无换行以外的控制字符、首尾空白已裁剪）。
type ExecResult struct {
	ExitCode       int    `json:"exit_code"`
	CombinedOutput string `json:"output"`
}

// FileEntry 是目录列举中的一项。
type FileEntry struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"is_directory"`
}

// SortFileEntries 将条目排序为：目录在前，其后按名称做不区分大小写的字典序。
// 列举操作的幂等性依赖该排序的稳定性。
func SortFileEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}
