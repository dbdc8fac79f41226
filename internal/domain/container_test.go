// Package domain 定义了游戏服务器控制平面的核心领域模型。
// 本文件包含创建请求校验规则的单元测试。
package domain

import (
	"testing"
)

// testImages 是测试用的游戏类型到镜像的映射。
var testImages = map[string]string{
	"vanilla": "itzg/minecraft-server:latest",
	"paper":   "itzg/minecraft-server:latest",
}

// TestCreateContainerRequest_Validate 测试 CreateContainerRequest 的校验方法。
// 该测试覆盖了各种有效和无效的输入场景，包括：
// - 有效的请求参数
// - 名称长度与字符集违规
// - 缺失的必填字段
// - 未知的游戏类型
// - 可选字段的范围校验
func TestCreateContainerRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string                 // 测试用例名称
		req        CreateContainerRequest // 测试输入的请求对象
		wantFields []string               // 期望出现在失败详情中的字段名
	}{
		{
			// 测试用例：有效的最小请求
			name: "valid minimal request",
			req: CreateContainerRequest{
				Name:    "my-server",
				Version: "1.21.1",
				Type:    "vanilla",
			},
		},
		{
			// 测试用例：有效的完整请求（含可选字段）
			name: "valid full request",
			req: CreateContainerRequest{
				Name:      "survival-smp",
				Version:   "1.21.1",
				Type:      "paper",
				Port:      25566,
				MemoryMB:  4096,
				ModpackID: "atm-9",
			},
		},
		{
			// 测试用例：名称过短（少于 3 个字符）
			name: "name too short",
			req: CreateContainerRequest{
				Name:    "ab",
				Version: "1.21.1",
				Type:    "vanilla",
			},
			wantFields: []string{"name"},
		},
		{
			// 测试用例：名称含非法字符（大写字母）
			name: "name with uppercase",
			req: CreateContainerRequest{
				Name:    "MyServer",
				Version: "1.21.1",
				Type:    "vanilla",
			},
			wantFields: []string{"name"},
		},
		{
			// 测试用例：版本为空
			name: "missing version",
			req: CreateContainerRequest{
				Name: "my-server",
				Type: "vanilla",
			},
			wantFields: []string{"version"},
		},
		{
			// 测试用例：未知的游戏类型
			name: "unknown type",
			req: CreateContainerRequest{
				Name:    "my-server",
				Version: "1.21.1",
				Type:    "bedrock",
			},
			wantFields: []string{"type"},
		},
		{
			// 测试用例：内存低于下限
			name: "memory too low",
			req: CreateContainerRequest{
				Name:     "my-server",
				Version:  "1.21.1",
				Type:     "vanilla",
				MemoryMB: 256,
			},
			wantFields: []string{"memory"},
		},
		{
			// 测试用例：特权端口被拒绝
			name: "privileged port",
			req: CreateContainerRequest{
				Name:    "my-server",
				Version: "1.21.1",
				Type:    "vanilla",
				Port:    80,
			},
			wantFields: []string{"port"},
		},
		{
			// 测试用例：多个字段同时失败，详情逐一列出
			name:       "multiple failures reported together",
			req:        CreateContainerRequest{Name: "x"},
			wantFields: []string{"name", "version", "type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.req.Validate(testImages)

			if len(details) != len(tt.wantFields) {
				t.Fatalf("Validate() = %v, want failures on %v", details, tt.wantFields)
			}
			// 详情中的字段名与期望一一对应
			got := make(map[string]bool, len(details))
			for _, d := range details {
				if d.Message == "" {
					t.Errorf("field %q has empty message", d.Field)
				}
				got[d.Field] = true
			}
			for _, field := range tt.wantFields {
				if !got[field] {
					t.Errorf("Validate() missing failure for field %q, got %v", field, details)
				}
			}
		})
	}
}

// TestSortFileEntries 测试目录条目排序：目录在前，其后按名称
// 做不区分大小写的字典序。
func TestSortFileEntries(t *testing.T) {
	entries := []FileEntry{
		{Name: "server.properties"},
		{Name: "World", IsDirectory: true},
		{Name: "banned-players.json"},
		{Name: "config", IsDirectory: true},
		{Name: "EULA.txt"},
	}

	SortFileEntries(entries)

	want := []FileEntry{
		{Name: "config", IsDirectory: true},
		{Name: "World", IsDirectory: true},
		{Name: "banned-players.json"},
		{Name: "EULA.txt"},
		{Name: "server.properties"},
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}
