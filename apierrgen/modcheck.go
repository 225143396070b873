package apierrgen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/mod/modfile"
)

// runtimeModule 运行时包所在模块
const runtimeModule = "github.com/donutnomad/apierrgen"

// ModChecker 检查目标模块的 go.mod 是否引入了生成代码依赖的模块，结果按 go.mod 缓存
type ModChecker struct {
	mu    sync.Mutex
	files map[string]*modfile.File // key: go.mod 路径，nil 表示解析失败
}

// NewModChecker 创建 go.mod 检查器
func NewModChecker() *ModChecker {
	return &ModChecker{files: make(map[string]*modfile.File)}
}

// Missing 返回 dir 所属模块缺少的依赖，找不到 go.mod 时返回 nil
func (m *ModChecker) Missing(dir string, modules ...string) ([]string, error) {
	path, err := findGoMod(dir)
	if err != nil || path == "" {
		return nil, err
	}
	f, err := m.parse(path)
	if err != nil || f == nil {
		return nil, err
	}

	required := make(map[string]bool, len(f.Require))
	for _, r := range f.Require {
		required[r.Mod.Path] = true
	}
	if f.Module != nil {
		required[f.Module.Mod.Path] = true
	}
	for _, r := range f.Replace {
		required[r.Old.Path] = true
	}

	var missing []string
	for _, mod := range modules {
		if !required[mod] {
			missing = append(missing, mod)
		}
	}
	return missing, nil
}

func (m *ModChecker) parse(path string) (*modfile.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.files[path]; ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		m.files[path] = nil
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	m.files[path] = f
	return f, nil
}

// findGoMod 从 dir 向上查找 go.mod
func findGoMod(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, "go.mod")
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
