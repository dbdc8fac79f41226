// Package router 实现路由发现与分发引擎。
// 本文件负责把注册的处理器定义树编译为路由表：
// 深度优先遍历目录节点，推导 URL 与参数描述，并在任何定义非法时整体失败。
package router

import (
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
)

// paramSegment 匹配 [name] 或 [name:type] 形式的路径段。
var paramSegment = regexp.MustCompile(`^\[([A-Za-z_][A-Za-z0-9_]*)(?::(string|number|boolean))?\]$`)

// Registry 收集处理器定义单元。
// 动态模块加载被显式注册取代：所有定义在启动时登记，
// Build 产出经过完整校验的不可变路由表后服务才开始接收流量。
type Registry struct {
	defs []Def
}

// NewRegistry 创建空的注册表。
func NewRegistry() *Registry {
	return &Registry{}
}

// Add 登记一个处理器定义单元。
func (r *Registry) Add(def Def) {
	r.defs = append(r.defs, def)
}

// node 是处理器定义树中的一个目录节点。
// 子目录保持首次出现的顺序，保证路由表顺序稳定。
type node struct {
	files      []Def
	children   map[string]*node
	childOrder []string
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Build 把注册表编译为路由表。
// 任何一个定义非法（方括号模式错误、重复路由等）都会使整个构建失败：
// 进程应当快速退出，而不是带着被悄悄丢弃的路由继续服务。
func (r *Registry) Build() (*Table, error) {
	root := newNode()

	// 按来源路径把定义挂到目录树上
	for _, def := range r.defs {
		source := strings.Trim(def.Source, "/")
		if source == "" && def.URL == "" {
			return nil, fmt.Errorf("route definition has neither source path nor explicit URL")
		}
		segs := strings.Split(source, "/")
		cur := root
		for _, dir := range segs[:len(segs)-1] {
			child, ok := cur.children[dir]
			if !ok {
				child = newNode()
				cur.children[dir] = child
				cur.childOrder = append(cur.childOrder, dir)
			}
			cur = child
		}
		cur.files = append(cur.files, def)
	}

	table := &Table{}
	seen := make(map[string]string) // method+pattern -> source
	if err := buildNode(root, nil, table, seen); err != nil {
		return nil, err
	}
	return table, nil
}

// buildNode 深度优先编译一个目录节点：先编译本目录的定义，再递归子目录。
func buildNode(n *node, dirs []string, table *Table, seen map[string]string) error {
	for _, def := range n.files {
		desc, err := compile(def, dirs)
		if err != nil {
			return err
		}
		key := desc.Method + " " + desc.Pattern
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("duplicate route %s (defined by %q and %q)", key, prev, desc.Source)
		}
		seen[key] = desc.Source
		table.routes = append(table.routes, *desc)
	}
	for _, name := range n.childOrder {
		if err := buildNode(n.children[name], append(dirs, name), table, seen); err != nil {
			return err
		}
	}
	return nil
}

// compile 把单个定义单元编译为路由描述符。
// URL 推导规则：
//   - 来源路径去掉扩展名后即为 URL，末段为 index 时丢弃
//   - [name] / [name:type] 段改写为命名占位符 {name}，类型缺省为 string
//   - 结果为空映射到 "/"
//   - 定义中显式声明的 URL / 方法始终覆盖推导值
func compile(def Def, dirs []string) (*Descriptor, error) {
	source := strings.Trim(def.Source, "/")

	segs := make([]string, 0, len(dirs)+1)
	segs = append(segs, dirs...)
	if source != "" {
		parts := strings.Split(source, "/")
		file := parts[len(parts)-1]
		// 去掉扩展名；末段 index 不进入 URL
		file = strings.TrimSuffix(file, path.Ext(file))
		if file != "index" {
			segs = append(segs, file)
		}
	}

	var (
		params  []ParamSpec
		pattern strings.Builder
	)
	for i, seg := range segs {
		if m := paramSegment.FindStringSubmatch(seg); m != nil {
			typ := ParamType(m[2])
			if typ == "" {
				typ = ParamString
			}
			for _, p := range params {
				if p.Name == m[1] {
					return nil, fmt.Errorf("route %q declares parameter %q twice", def.Source, m[1])
				}
			}
			params = append(params, ParamSpec{Name: m[1], Type: typ, Index: i})
			pattern.WriteString("/{" + m[1] + "}")
			continue
		}
		// 含方括号但不符合 [name] / [name:type] 形式的段视为致命错误
		if strings.ContainsAny(seg, "[]") {
			return nil, fmt.Errorf("malformed parameter segment %q in route %q", seg, def.Source)
		}
		pattern.WriteString("/" + seg)
	}

	url := pattern.String()
	if url == "" {
		url = "/"
	}
	// 显式声明优先于路径推导
	if def.URL != "" {
		url = def.URL
		params, _ = paramsFromPattern(url)
	}

	method := strings.ToUpper(def.Method)
	if method == "" {
		method = http.MethodGet
	}

	status := def.Status
	if status == 0 {
		status = http.StatusOK
	}

	handler := def.Handler
	if handler == nil {
		handler = notImplementedHandler
	}

	return &Descriptor{
		Method:  method,
		Pattern: url,
		Params:  params,
		Status:  status,
		Handler: handler,
		Source:  def.Source,
	}, nil
}

// paramsFromPattern 从显式 URL 中提取 {name} 占位符作为 string 参数。
func paramsFromPattern(pattern string) ([]ParamSpec, error) {
	var params []ParamSpec
	for i, seg := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			params = append(params, ParamSpec{Name: seg[1 : len(seg)-1], Type: ParamString, Index: i})
		}
	}
	return params, nil
}

// notImplementedHandler 是缺省的占位处理器。
func notImplementedHandler(inv *Invocation) (any, error) {
	return map[string]string{"message": "not yet implemented"}, nil
}
