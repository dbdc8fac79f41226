// Package logstore 实现按容器划分的有界日志环形缓冲。
// 存储后端是外部的 Redis：LPUSH 追加、LTRIM 维持容量上限
// （最旧的行先被淘汰）、LRANGE 按最近优先读取。
// 历史只追加，从不改写。
package logstore

import (
	"context"
	"fmt"
	"time"

	"github.com/emberforge/warden/internal/config"
	"github.com/redis/go-redis/v9"
)

// keyPrefix 是日志键的前缀，完整键形如 warden:logs:<containerID>。
const keyPrefix = "warden:logs:"

// Store 是 Redis 日志环形缓冲的客户端。
type Store struct {
	client   *redis.Client
	capacity int64
}

// New 连接 Redis 并返回日志存储。
// capacity 为每个容器保留的行数 N，超出后最旧的行被淘汰。
func New(cfg config.RedisConfig, capacity int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client, capacity: int64(capacity)}, nil
}

// Append 追加一条日志行并裁剪到容量上限。
func (s *Store) Append(ctx context.Context, containerID, line string) error {
	key := keyPrefix + containerID
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, line)
	pipe.LTrim(ctx, key, 0, s.capacity-1)
	_, err := pipe.Exec(ctx)
	return err
}

// Recent 返回最近的日志行，最新的在前。
// limit 小于等于 0 或超过容量时按容量截断。
func (s *Store) Recent(ctx context.Context, containerID string, limit int) ([]string, error) {
	if limit <= 0 || int64(limit) > s.capacity {
		limit = int(s.capacity)
	}
	lines, err := s.client.LRange(ctx, keyPrefix+containerID, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// Drop 删除一个容器的全部日志历史（容器被移除时调用）。
func (s *Store) Drop(ctx context.Context, containerID string) error {
	return s.client.Del(ctx, keyPrefix+containerID).Err()
}

// Ping 检查存储连通性，供健康检查使用。
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭底层连接。
func (s *Store) Close() error {
	return s.client.Close()
}
