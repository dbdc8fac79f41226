// Package docker 通过容器引擎的命令行接口实现容器生命周期管理
// 与容器内命令执行。引擎本身被当作外部能力消费，不在进程内重新实现。
// 本文件实现 exec 输出的净化管道。
package docker

import (
	"regexp"
	"strings"
)

// ansiPattern 匹配 ANSI/终端转义序列：CSI 序列（颜色、光标控制等）、
// OSC 标题序列以及裸 ESC 控制符。
var ansiPattern = regexp.MustCompile(`\x1b(\[[0-9;?]*[@-~]|\][^\x07\x1b]*(\x07|\x1b\\)|[@-Z\\-_])`)

// StripANSI 去除字符串中的所有 ANSI/终端转义序列。
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// Sanitize 对 exec 输出执行完整的净化管道，顺序为：
//  1. 去除 ANSI/终端转义序列
//  2. 去除可打印 ASCII 范围之外的控制字符（换行除外）
//  3. 裁剪首尾空白
//
// 所有交给调用方的 exec 输出都必须先经过该函数。
func Sanitize(s string) string {
	s = StripANSI(s)
	s = strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// CleanLogLine 净化一条实时日志行：
// 去除 ANSI 序列后，如果行中含有 '['，则丢弃第一个 '[' 之前的内容
// （视为日志前缀噪音），最后去除残余控制字符与首尾空白。
func CleanLogLine(line string) string {
	line = StripANSI(line)
	if i := strings.Index(line, "["); i > 0 {
		line = line[i:]
	}
	line = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, line)
	return strings.TrimSpace(line)
}
