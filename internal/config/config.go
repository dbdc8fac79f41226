// Package config 提供了控制平面守护进程的配置管理功能。
// 该包负责从 YAML 配置文件加载配置，并支持通过环境变量覆盖敏感配置项
// （如认证令牌和 Redis 密码）。配置覆盖服务器、认证、容器引擎、
// 存储、事件、日志、指标和遥测等方面的设置。
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是守护进程的主配置结构体，包含所有子系统的配置。
type Config struct {
	// Server HTTP 服务器配置
	Server ServerConfig `yaml:"server"`
	// Auth 认证配置（单一共享令牌）
	Auth AuthConfig `yaml:"auth"`
	// Docker 容器引擎配置
	Docker DockerConfig `yaml:"docker"`
	// Storage 存储配置（Redis 日志环形缓冲）
	Storage StorageConfig `yaml:"storage"`
	// Events 事件总线配置（NATS）
	Events EventsConfig `yaml:"events"`
	// Logging 日志配置
	Logging LoggingConfig `yaml:"logging"`
	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
	// Telemetry OpenTelemetry 追踪配置
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig HTTP 服务器配置。
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeout 单个请求的超时时间
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Environment 运行环境标识（development/production），
	// 非生产环境下 5xx 响应可附带额外诊断信息
	Environment string `yaml:"environment"`
}

// AuthConfig 认证配置。
// 所有路由共享一个固定的 Bearer 令牌；AllowList 中的路径跳过认证。
type AuthConfig struct {
	Token     string   `yaml:"token"`
	AllowList []string `yaml:"allow_list"`
}

// DockerConfig 容器引擎配置。
type DockerConfig struct {
	// Binary 引擎 CLI 可执行文件，默认 docker
	Binary string `yaml:"binary"`
	// NetworkMode 容器网络模式
	NetworkMode string `yaml:"network_mode"`
	// SandboxPrefix 所有文件操作被限制在该路径之下
	SandboxPrefix string `yaml:"sandbox_prefix"`
	// DataDir 宿主机上的实例数据目录，按容器名建立子目录并挂载到沙箱前缀
	DataDir string `yaml:"data_dir"`
	// Images 游戏类型到镜像的映射，如 "vanilla" -> "itzg/minecraft-server:latest"
	Images map[string]string `yaml:"images"`
	// ElevationPrefix 任意命令的提权前缀
	ElevationPrefix string `yaml:"elevation_prefix"`
	// ConsoleBridge 把命令送入游戏服务器控制台的桥接程序
	ConsoleBridge string `yaml:"console_bridge"`
	// StopTimeoutSec 停止容器时的宽限时间（秒）
	StopTimeoutSec int `yaml:"stop_timeout_sec"`
}

// StorageConfig 存储配置。
type StorageConfig struct {
	Redis RedisConfig `yaml:"redis"`
	// LogHistory 每个容器保留的日志行数（环形缓冲容量，最旧的先被淘汰）
	LogHistory int `yaml:"log_history"`
}

// RedisConfig Redis 连接配置。
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EventsConfig 事件总线配置。
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
}

// LoggingConfig 日志配置。
type LoggingConfig struct {
	// Level 日志级别：debug/info/warn/error
	Level string `yaml:"level"`
	// Format 输出格式：json/text
	Format string `yaml:"format"`
}

// MetricsConfig Prometheus 指标配置。
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TelemetryConfig OpenTelemetry 追踪配置。
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
	Environment string  `yaml:"environment"`
}

// Load 从指定路径加载 YAML 配置文件。
// 加载后依次应用默认值和环境变量覆盖。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Default 返回一套可直接运行的默认配置（配置文件缺失时使用）。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

// applyDefaults 为未设置的配置项填充默认值。
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "production"
	}

	if len(c.Auth.AllowList) == 0 {
		c.Auth.AllowList = []string{"/health", "/logs"}
	}

	if c.Docker.Binary == "" {
		c.Docker.Binary = "docker"
	}
	if c.Docker.NetworkMode == "" {
		c.Docker.NetworkMode = "bridge"
	}
	if c.Docker.SandboxPrefix == "" {
		c.Docker.SandboxPrefix = "/data/"
	}
	if c.Docker.DataDir == "" {
		c.Docker.DataDir = "/var/lib/warden/instances"
	}
	if len(c.Docker.Images) == 0 {
		c.Docker.Images = map[string]string{
			"vanilla": "itzg/minecraft-server:latest",
			"paper":   "itzg/minecraft-server:latest",
			"forge":   "itzg/minecraft-server:latest",
			"fabric":  "itzg/minecraft-server:latest",
		}
	}
	if c.Docker.ElevationPrefix == "" {
		c.Docker.ElevationPrefix = "sudo"
	}
	if c.Docker.ConsoleBridge == "" {
		c.Docker.ConsoleBridge = "rcon-cli"
	}
	if c.Docker.StopTimeoutSec == 0 {
		c.Docker.StopTimeoutSec = 30
	}

	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}
	if c.Storage.LogHistory == 0 {
		c.Storage.LogHistory = 500
	}

	if c.Events.NATSURL == "" {
		c.Events.NATSURL = "nats://localhost:4222"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "warden"
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "warden"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 0.1
	}
}

// applyEnvOverrides 应用环境变量覆盖。
// 敏感配置项支持两种方式：直接设置环境变量（如 WARDEN_AUTH_TOKEN），
// 或通过 _FILE 后缀指定密钥文件路径（如 WARDEN_AUTH_TOKEN_FILE）。
// _FILE 方式优先级更高，适用于 Docker Secrets 等场景。
func (c *Config) applyEnvOverrides() {
	if v := readEnvOrFile("WARDEN_AUTH_TOKEN", "WARDEN_AUTH_TOKEN_FILE"); v != "" {
		c.Auth.Token = v
	}
	if v := readEnvOrFile("WARDEN_REDIS_PASSWORD", "WARDEN_REDIS_PASSWORD_FILE"); v != "" {
		c.Storage.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("WARDEN_NATS_URL")); v != "" {
		c.Events.NATSURL = v
	}
}

// readEnvOrFile 从环境变量或文件读取配置值。
// 优先从 fileKey 指向的文件读取，失败时回退到 envKey。
func readEnvOrFile(envKey, fileKey string) string {
	if filePath := strings.TrimSpace(os.Getenv(fileKey)); filePath != "" {
		if b, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return strings.TrimSpace(os.Getenv(envKey))
}
