// Package domain 定义了游戏服务器控制平面的核心领域模型。
// 本文件包含容器描述符、创建请求及其校验规则。
package domain

import (
	"fmt"
	"regexp"
	"time"
)

// 容器创建请求的校验边界。
const (
	// NameMinLen 容器名称最小长度
	NameMinLen = 3
	// NameMaxLen 容器名称最大长度
	NameMaxLen = 32
	// MemoryMinMB 内存下限（MB）
	MemoryMinMB = 512
	// MemoryMaxMB 内存上限（MB）
	MemoryMaxMB = 16384
	// PortMin 可绑定端口下限（非特权端口）
	PortMin = 1024
	// PortMax 可绑定端口上限
	PortMax = 65535
)

// namePattern 限制容器名称为小写字母、数字和连字符。
var namePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Container 是对外暴露的容器描述符。
// 字段来源于引擎的列表/检查输出与 warden 管理标签。
type Container struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Version   string    `json:"version"`
	Image     string    `json:"image"`
	State     string    `json:"state"`
	Status    string    `json:"status"`
	Port      int       `json:"port,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ContainerStatus 是状态查询的完整载荷：检查到的运行状态加上实时资源指标。
type ContainerStatus struct {
	Container
	Running    bool   `json:"running"`
	StartedAt  string `json:"started_at,omitempty"`
	CPUPercent string `json:"cpu_percent,omitempty"`
	MemUsage   string `json:"mem_usage,omitempty"`
	MemPercent string `json:"mem_percent,omitempty"`
}

// CreateContainerRequest 是 POST /containers 的请求体。
type CreateContainerRequest struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Type      string `json:"type"`
	Port      int    `json:"port,omitempty"`
	MemoryMB  int    `json:"memory,omitempty"`
	ModpackID string `json:"modpackId,omitempty"`
}

// Validate 校验创建请求。
// 返回字段级失败列表；列表为空表示请求合法。
// knownTypes 为配置中声明的游戏类型到镜像的映射键集合。
func (r *CreateContainerRequest) Validate(knownTypes map[string]string) []FieldError {
	var details []FieldError

	if len(r.Name) < NameMinLen || len(r.Name) > NameMaxLen {
		details = append(details, FieldError{
			Field:   "name",
			Message: fmt.Sprintf("name must be between %d and %d characters", NameMinLen, NameMaxLen),
		})
	} else if !namePattern.MatchString(r.Name) {
		details = append(details, FieldError{
			Field:   "name",
			Message: "name may only contain lowercase letters, digits and hyphens",
		})
	}

	if r.Version == "" {
		details = append(details, FieldError{Field: "version", Message: "version is required"})
	}

	if r.Type == "" {
		details = append(details, FieldError{Field: "type", Message: "type is required"})
	} else if _, ok := knownTypes[r.Type]; !ok {
		details = append(details, FieldError{
			Field:   "type",
			Message: fmt.Sprintf("unknown server type %q", r.Type),
		})
	}

	// 可选字段：仅在提供时校验范围
	if r.MemoryMB != 0 && (r.MemoryMB < MemoryMinMB || r.MemoryMB > MemoryMaxMB) {
		details = append(details, FieldError{
			Field:   "memory",
			Message: fmt.Sprintf("memory must be between %d and %d MB", MemoryMinMB, MemoryMaxMB),
		})
	}
	if r.Port != 0 && (r.Port < PortMin || r.Port > PortMax) {
		details = append(details, FieldError{
			Field:   "port",
			Message: fmt.Sprintf("port must be between %d and %d", PortMin, PortMax),
		})
	}

	return details
}
