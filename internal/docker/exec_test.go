// Package docker 通过容器引擎的命令行接口实现容器生命周期管理
// 与容器内命令执行。
// 本文件包含 exec 适配器与文件操作的单元测试，
// 通过替换 runFunc 注入伪造的引擎，无需真实容器运行时。
package docker

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/emberforge/warden/internal/config"
	"github.com/emberforge/warden/internal/domain"
	"github.com/sirupsen/logrus"
)

// fakeCall 记录一次对伪造引擎的调用。
type fakeCall struct {
	args  []string // CLI 参数
	stdin string   // 标准输入内容（未接入时为空）
}

// fakeEngine 构造一个 runFunc 被替换的引擎适配器。
// respond 按调用顺序依次给出每次调用的输出与退出码。
func fakeEngine(t *testing.T, respond func(call int, args []string) (string, int)) (*Engine, *[]fakeCall) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.DockerConfig{
		Binary:          "docker",
		NetworkMode:     "bridge",
		SandboxPrefix:   "/data/",
		DataDir:         "/var/lib/warden/instances",
		Images:          map[string]string{"vanilla": "itzg/minecraft-server:latest"},
		ElevationPrefix: "sudo",
		ConsoleBridge:   "rcon-cli",
		StopTimeoutSec:  30,
	}

	e := NewEngine(cfg, nil, logger)
	calls := &[]fakeCall{}
	e.run = func(ctx context.Context, stdin io.Reader, args ...string) ([]byte, int, error) {
		rec := fakeCall{args: args}
		if stdin != nil {
			b, _ := io.ReadAll(stdin)
			rec.stdin = string(b)
		}
		*calls = append(*calls, rec)
		out, code := respond(len(*calls)-1, args)
		return []byte(out), code, nil
	}
	return e, calls
}

// wantKind 断言错误被归入期望的种类。
func wantKind(t *testing.T, err error, kind string) {
	t.Helper()
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		t.Fatalf("error %v is not classified", err)
	}
	if apiErr.Kind != kind {
		t.Errorf("error kind = %q, want %q (message: %s)", apiErr.Kind, kind, apiErr.Message)
	}
}

// TestExec_Sanitizes 测试 exec 输出在交给调用方前完成净化。
func TestExec_Sanitizes(t *testing.T) {
	e, calls := fakeEngine(t, func(call int, args []string) (string, int) {
		return "\x1b[32mok\x1b[0m \r\n", 0
	})

	res, err := e.Exec(context.Background(), "c1", "echo", "ok")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if res.CombinedOutput != "ok" {
		t.Errorf("CombinedOutput = %q, want sanitized %q", res.CombinedOutput, "ok")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}

	got := (*calls)[0].args
	want := []string{"exec", "c1", "echo", "ok"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("engine args = %v, want %v", got, want)
	}
}

// TestClassify 测试 exec 退出条件的判定。
// 存在性标记优先于退出码：即便退出码为 0，含有标记的输出也被
// 重分类为 NotFound。
func TestClassify(t *testing.T) {
	tests := []struct {
		name     string             // 测试用例名称
		res      *domain.ExecResult // exec 结果
		wantKind string             // 期望的错误种类，空表示无错误
	}{
		{
			name: "success",
			res:  &domain.ExecResult{ExitCode: 0, CombinedOutput: "done"},
		},
		{
			name:     "marker with zero exit code",
			res:      &domain.ExecResult{ExitCode: 0, CombinedOutput: "ls: /data/x: No such file or directory"},
			wantKind: domain.KindNotFound,
		},
		{
			name:     "marker with nonzero exit code",
			res:      &domain.ExecResult{ExitCode: 2, CombinedOutput: "cat: /data/x: No such file or directory"},
			wantKind: domain.KindNotFound,
		},
		{
			name:     "nonzero exit without marker",
			res:      &domain.ExecResult{ExitCode: 1, CombinedOutput: "permission denied"},
			wantKind: domain.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.res)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("classify() error = %v, want nil", err)
				}
				return
			}
			wantKind(t, err, tt.wantKind)
		})
	}
}

// TestListDir 测试目录列举：条目解析、合成目录项过滤与排序。
func TestListDir(t *testing.T) {
	t.Run("parses and sorts entries", func(t *testing.T) {
		e, calls := fakeEngine(t, func(call int, args []string) (string, int) {
			return "server.properties\nworld/\n./\n../\nbanned-ips.json\nplugins/\n", 0
		})

		entries, err := e.ListDir(context.Background(), "c1", "../")
		if err != nil {
			t.Fatalf("ListDir() error = %v", err)
		}

		want := []domain.FileEntry{
			{Name: "plugins", IsDirectory: true},
			{Name: "world", IsDirectory: true},
			{Name: "banned-ips.json"},
			{Name: "server.properties"},
		}
		if len(entries) != len(want) {
			t.Fatalf("ListDir() = %v, want %v", entries, want)
		}
		for i := range want {
			if entries[i] != want[i] {
				t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
			}
		}

		// 穿越段被剥离后的沙箱路径进入列举命令
		args := (*calls)[0].args
		if args[len(args)-1] != "/data/" {
			t.Errorf("listing path = %q, want sandbox root", args[len(args)-1])
		}
	})

	t.Run("empty directory returns empty non-nil slice", func(t *testing.T) {
		e, _ := fakeEngine(t, func(call int, args []string) (string, int) {
			return "", 0
		})

		entries, err := e.ListDir(context.Background(), "c1", "empty/")
		if err != nil {
			t.Fatalf("ListDir() error = %v", err)
		}
		if entries == nil {
			t.Fatal("ListDir() = nil, want empty slice")
		}
		if len(entries) != 0 {
			t.Errorf("ListDir() = %v, want empty", entries)
		}
	})

	t.Run("missing directory is not found", func(t *testing.T) {
		e, _ := fakeEngine(t, func(call int, args []string) (string, int) {
			return "ls: /data/gone/: No such file or directory", 2
		})

		_, err := e.ListDir(context.Background(), "c1", "gone/")
		wantKind(t, err, domain.KindNotFound)
	})
}

// TestReadFile 测试文件读取与缺失文件的分类。
func TestReadFile(t *testing.T) {
	t.Run("returns sanitized content", func(t *testing.T) {
		e, _ := fakeEngine(t, func(call int, args []string) (string, int) {
			return "motd=A Minecraft Server\nmax-players=20\n", 0
		})

		content, err := e.ReadFile(context.Background(), "c1", "server.properties")
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if content != "motd=A Minecraft Server\nmax-players=20" {
			t.Errorf("ReadFile() = %q", content)
		}
	})

	t.Run("missing file is not found", func(t *testing.T) {
		e, _ := fakeEngine(t, func(call int, args []string) (string, int) {
			return "cat: /data/nope.txt: No such file or directory", 1
		})

		_, err := e.ReadFile(context.Background(), "c1", "nope.txt")
		wantKind(t, err, domain.KindNotFound)
	})
}

// TestWriteFile 测试覆盖写：内容经标准输入进入容器，路径被单引号包裹。
func TestWriteFile(t *testing.T) {
	e, calls := fakeEngine(t, func(call int, args []string) (string, int) {
		return "", 0
	})

	err := e.WriteFile(context.Background(), "c1", "config/motd.txt", "hello\nworld")
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	call := (*calls)[0]
	if call.stdin != "hello\nworld" {
		t.Errorf("stdin = %q, want file content", call.stdin)
	}
	// -i 接入标准输入
	if call.args[1] != "-i" {
		t.Errorf("args = %v, want interactive exec", call.args)
	}
	shellCmd := call.args[len(call.args)-1]
	if shellCmd != "cat > '/data/config/motd.txt'" {
		t.Errorf("shell command = %q", shellCmd)
	}
}

// TestDeleteFile 测试删除：缺失目标产出 404 而非静默成功。
func TestDeleteFile(t *testing.T) {
	t.Run("missing target is not found", func(t *testing.T) {
		e, _ := fakeEngine(t, func(call int, args []string) (string, int) {
			return "rm: cannot remove '/data/gone': No such file or directory", 1
		})

		err := e.DeleteFile(context.Background(), "c1", "gone")
		wantKind(t, err, domain.KindNotFound)
	})

	t.Run("uses recursive remove without force", func(t *testing.T) {
		e, calls := fakeEngine(t, func(call int, args []string) (string, int) {
			return "", 0
		})

		if err := e.DeleteFile(context.Background(), "c1", "world"); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}
		args := (*calls)[0].args
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "rm -r /data/world") {
			t.Errorf("args = %v, want rm -r without -f", args)
		}
		if strings.Contains(joined, "-rf") || strings.Contains(joined, "-f ") {
			t.Errorf("args = %v must not force removal", args)
		}
	})
}

// TestRunCommand 测试任意命令的包裹：提权前缀与控制台桥接程序
// 在用户命令之前拼接。
func TestRunCommand(t *testing.T) {
	e, calls := fakeEngine(t, func(call int, args []string) (string, int) {
		return "There are 3 of a max of 20 players online", 0
	})

	out, err := e.RunCommand(context.Background(), "c1", "list")
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if !strings.Contains(out, "3 of a max of 20") {
		t.Errorf("RunCommand() = %q", out)
	}

	args := (*calls)[0].args
	shellCmd := args[len(args)-1]
	if shellCmd != "sudo rcon-cli list" {
		t.Errorf("wrapped command = %q, want elevation and bridge prefixes", shellCmd)
	}
}

// TestShellQuote 测试单引号包裹与引号逃逸。
func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string // 输入
		want string // 期望输出
	}{
		{"plain", "'plain'"},
		{"/data/my file.txt", "'/data/my file.txt'"},
		{"it's", `'it'\''s'`},
	}

	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSplitLines 测试行切分：空行被丢弃，返回值始终非 nil。
func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string   // 测试用例名称
		in   string   // 输入
		want []string // 期望输出
	}{
		{"multiple lines", "a\n\n b \nc\n", []string{"a", "b", "c"}},
		{"single line", "only", []string{"only"}},
		{"empty input", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines(tt.in)
			if got == nil {
				t.Fatal("SplitLines() = nil, want non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SplitLines() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("lines[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
