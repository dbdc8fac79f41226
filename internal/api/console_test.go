// Package api 提供了游戏服务器容器控制平面的 HTTP API 处理程序。
// 本文件包含实时日志中继的单元测试。
package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// streamEngine 在 MockEngine 之上覆盖日志流，返回脚本化的行序列。
type streamEngine struct {
	*MockEngine
	stream string
}

// FollowLogs 返回固定内容的日志流。
func (s *streamEngine) FollowLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewBufferString(s.stream)), nil
}

// newTestRelay 构建带脚本化日志流的中继。
func newTestRelay(stream string) (*Relay, *MockStore) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := NewMockStore()
	engine := &streamEngine{MockEngine: NewMockEngine(), stream: stream}
	return NewRelay(engine, store, nil, nil, logger), store
}

// TestRelay_Run 测试日志中继：逐行净化、转发给订阅者、
// 追加到存储，流结束时发出哨兵行。
func TestRelay_Run(t *testing.T) {
	relay, store := newTestRelay(
		"\x1b[32m2024-05-01 [Server/INFO]: Done\x1b[0m\n" +
			"noise before [World] saved\n" +
			"\n" +
			"plain line\n")

	var received []string
	err := relay.Run(context.Background(), "c1", func(line string) error {
		received = append(received, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"[Server/INFO]: Done",
		"[World] saved",
		"plain line",
		"stream ended",
	}
	if len(received) != len(want) {
		t.Fatalf("received = %v, want %v", received, want)
	}
	for i := range want {
		if received[i] != want[i] {
			t.Errorf("received[%d] = %q, want %q", i, received[i], want[i])
		}
	}

	// 哨兵行不进入历史存储，实际日志行全部进入
	stored := store.lines["c1"]
	if len(stored) != 3 {
		t.Errorf("stored = %v, want three log lines", stored)
	}
}

// TestRelay_SubscriberDisconnect 测试订阅者断开：sink 返回错误后
// 中继立即停止，不再追加后续行。
func TestRelay_SubscriberDisconnect(t *testing.T) {
	relay, store := newTestRelay("[1] first\n[2] second\n[3] third\n")

	count := 0
	err := relay.Run(context.Background(), "c1", func(line string) error {
		count++
		if count == 2 {
			return errors.New("client gone")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v, subscriber loss is not a relay failure", err)
	}
	if count != 2 {
		t.Errorf("sink called %d times, want 2", count)
	}
	// 断开后的行不再进入存储
	if stored := store.lines["c1"]; len(stored) != 1 {
		t.Errorf("stored = %v, want only the first line", stored)
	}
}
