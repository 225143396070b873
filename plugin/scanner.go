package plugin

import (
	"bufio"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Scanner 两阶段并行注解扫描器
// 第一阶段：快速文本匹配，找出可能包含注解的文件
// 第二阶段：对匹配的文件进行 AST 解析
type Scanner struct {
	workers int
	verbose bool

	// 注解过滤器（可选）
	annotationFilter []string
}

// ScannerOption 扫描器选项
type ScannerOption func(*Scanner)

func WithScannerVerbose(v bool) ScannerOption {
	return func(s *Scanner) {
		s.verbose = v
	}
}

func WithAnnotationFilter(annotations ...string) ScannerOption {
	return func(s *Scanner) {
		s.annotationFilter = annotations
	}
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quickMatchRegex 快速匹配注解名
var quickMatchRegex = regexp.MustCompile(`@(\w+)`)

// Scan 扫描指定路径
// 支持: ./... ./pkg/... ./pkg /abs/path/... file.go
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	allFiles, err := CollectFiles(patterns)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{PackageConfigs: make(map[string]*PackageConfig)}
	if len(allFiles) == 0 {
		return result, nil
	}

	// ========== 第一阶段：快速匹配 ==========
	matched := runWorkers(ctx, s.workers, allFiles, func(file string) bool {
		ok, err := s.quickMatchFile(file)
		return err == nil && ok
	})
	var matchedFiles []string
	for i, ok := range matched {
		if ok {
			matchedFiles = append(matchedFiles, allFiles[i])
		}
	}
	if s.verbose {
		fmt.Printf("[scanner] 共 %d 个文件，快速匹配命中 %d 个\n", len(allFiles), len(matchedFiles))
	}
	if len(matchedFiles) == 0 {
		return result, ctx.Err()
	}

	// ========== 第二阶段：AST 解析 ==========
	fset := token.NewFileSet()
	parsed := runWorkers(ctx, s.workers, matchedFiles, func(file string) *fileScan {
		return s.parseFile(fset, file)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range parsed {
		if r == nil {
			continue
		}
		if r.err != nil {
			fmt.Printf("警告: 解析文件 %s 失败: %v\n", r.file, r.err)
			continue
		}
		for _, t := range r.targets {
			result.add(t)
		}
		if r.pkgConfig != nil {
			mergePackageConfig(result.PackageConfigs, r.pkgConfig)
		}
	}

	return result, nil
}

// add 按目标类型归类
func (r *ScanResult) add(t *AnnotatedTarget) {
	switch t.Target.Kind {
	case TargetStruct:
		r.Structs = append(r.Structs, t)
	case TargetInterface:
		r.Interfaces = append(r.Interfaces, t)
	case TargetType:
		r.Types = append(r.Types, t)
	case TargetFunc:
		r.Funcs = append(r.Funcs, t)
	case TargetMethod:
		r.Methods = append(r.Methods, t)
	case TargetVar:
		r.Vars = append(r.Vars, t)
	case TargetConst:
		r.Consts = append(r.Consts, t)
	}
}

func mergePackageConfig(configs map[string]*PackageConfig, cfg *PackageConfig) {
	existing, ok := configs[cfg.PackageDir]
	if !ok {
		configs[cfg.PackageDir] = cfg
		return
	}
	if cfg.DefaultOutput != "" {
		if existing.DefaultOutput != "" && existing.DefaultOutput != cfg.DefaultOutput {
			fmt.Printf("警告: 包 %s 中存在多个不同的 go:gogen 默认输出配置，使用后发现的配置\n", cfg.PackageDir)
		}
		existing.DefaultOutput = cfg.DefaultOutput
	}
	for k, v := range cfg.PluginOutputs {
		if old, ok := existing.PluginOutputs[k]; ok && old != v {
			fmt.Printf("警告: 包 %s 中插件 %s 存在多个不同的输出配置，使用后发现的配置\n", cfg.PackageDir, k)
		}
		existing.PluginOutputs[k] = v
	}
}

// runWorkers 用固定数量的工作者并行处理 inputs
// 返回值与 inputs 按下标一一对应，ctx 取消后未处理的位置保持零值
func runWorkers[In, Out any](ctx context.Context, workers int, inputs []In, fn func(In) Out) []Out {
	out := make([]Out, len(inputs))
	idxCh := make(chan int)

	var wg sync.WaitGroup
	for range max(workers, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				out[i] = fn(inputs[i])
			}
		}()
	}

feed:
	for i := range inputs {
		select {
		case <-ctx.Done():
			break feed
		case idxCh <- i:
		}
	}
	close(idxCh)
	wg.Wait()

	return out
}

// quickMatchFile 快速检查文件是否包含注解或 go:gogen 配置，决定是否需要 AST 解析
func (s *Scanner) quickMatchFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		// 只检查注释行，行尾注释也可能带注解
		idx := strings.Index(trimmed, "//")
		if idx < 0 {
			idx = strings.Index(trimmed, "/*")
		}
		if idx < 0 {
			continue
		}
		comment := trimmed[idx:]

		if strings.Contains(comment, "go:gogen:") {
			return true, nil
		}

		for _, match := range quickMatchRegex.FindAllStringSubmatch(comment, -1) {
			if len(s.annotationFilter) == 0 || slices.Contains(s.annotationFilter, match[1]) {
				return true, nil
			}
		}
	}

	return false, scanner.Err()
}

// fileScan 单个文件的解析结果
type fileScan struct {
	file      string
	targets   []*AnnotatedTarget
	pkgConfig *PackageConfig
	err       error
}

// parseFile AST 解析单个文件
// token.FileSet 可并发使用，所有文件共享同一个
func (s *Scanner) parseFile(fset *token.FileSet, filePath string) *fileScan {
	r := &fileScan{file: filePath}

	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		r.err = err
		return r
	}
	// 生成的文件不参与扫描，避免把自己的输出当作输入
	if ast.IsGenerated(file) {
		return r
	}

	r.pkgConfig = parsePackageConfig(file, filePath)

	newTarget := func(kind TargetKind, name string, pos token.Pos, node ast.Node) *Target {
		return &Target{
			Kind:        kind,
			Name:        name,
			PackageName: file.Name.Name,
			FilePath:    filePath,
			Position:    pos,
			Fset:        fset,
			Node:        node,
		}
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					anns := s.annotations(lo.Ternary(ts.Doc != nil, ts.Doc, d.Doc))
					if len(anns) == 0 {
						continue
					}
					kind := TargetType
					switch ts.Type.(type) {
					case *ast.StructType:
						kind = TargetStruct
					case *ast.InterfaceType:
						kind = TargetInterface
					}
					r.targets = append(r.targets, &AnnotatedTarget{
						Target:      newTarget(kind, ts.Name.Name, ts.Pos(), ts),
						Annotations: anns,
					})
				}
			case token.VAR, token.CONST:
				kind := lo.Ternary(d.Tok == token.VAR, TargetVar, TargetConst)
				for _, spec := range d.Specs {
					vs := spec.(*ast.ValueSpec)
					anns := s.annotations(lo.Ternary(vs.Doc != nil, vs.Doc, d.Doc))
					if len(anns) == 0 {
						continue
					}
					for _, name := range vs.Names {
						if name.Name == "_" {
							continue
						}
						r.targets = append(r.targets, &AnnotatedTarget{
							Target:      newTarget(kind, name.Name, vs.Pos(), vs),
							Annotations: anns,
						})
					}
				}
			}
		case *ast.FuncDecl:
			anns := s.annotations(d.Doc)
			if len(anns) == 0 {
				continue
			}
			target := newTarget(TargetFunc, d.Name.Name, d.Pos(), d)
			if d.Recv != nil && len(d.Recv.List) > 0 {
				target.Kind = TargetMethod
				recv := d.Recv.List[0]
				if len(recv.Names) > 0 {
					target.ReceiverName = recv.Names[0].Name
				}
				target.ReceiverType = exprToString(recv.Type)
			}
			r.targets = append(r.targets, &AnnotatedTarget{Target: target, Annotations: anns})
		}
	}

	return r
}

// annotations 解析注释组中的注解，并应用过滤器
func (s *Scanner) annotations(doc *ast.CommentGroup) []*Annotation {
	if doc == nil {
		return nil
	}
	anns := ParseAnnotations(doc.Text())
	if len(s.annotationFilter) == 0 {
		return anns
	}
	return lo.Filter(anns, func(ann *Annotation, _ int) bool {
		return slices.Contains(s.annotationFilter, ann.Name)
	})
}

// SkipDir 递归扫描时跳过的目录：隐藏目录、_ 开头的目录、vendor 和 testdata
func SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata"
}

// CollectFiles 收集所有需要扫描的文件，结果按路径排序
func CollectFiles(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		pattern = strings.TrimSuffix(pattern, "/...")
		if pattern == "" {
			pattern = "."
		}

		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if strings.HasSuffix(absPath, ".go") {
				add(absPath)
			}
			continue
		}

		err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == absPath {
					return nil
				}
				if !recursive || SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(files)
	return files, nil
}

func exprToString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprToString(e.X)
	case *ast.SelectorExpr:
		return exprToString(e.X) + "." + e.Sel.Name
	case *ast.IndexExpr:
		return exprToString(e.X) + "[" + exprToString(e.Index) + "]"
	default:
		return ""
	}
}

// goGenRegex 匹配 go:gogen: 指令
// 支持两种格式：//go:gogen: 和 // go:gogen:
var goGenRegex = regexp.MustCompile(`go:gogen:\s*(.*)`)

// parsePackageConfig 解析包级 go:gogen: 配置
// 支持格式:
//
//	//go:gogen: -output `$FILE_errors`
//	// go:gogen: plugin:apierror -output `errors_apierror`
func parsePackageConfig(file *ast.File, filePath string) *PackageConfig {
	var lines []string
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimPrefix(c.Text, "//")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimSuffix(text, "*/")
			if m := goGenRegex.FindStringSubmatch(strings.TrimSpace(text)); len(m) > 1 {
				lines = append(lines, m[1])
			}
		}
	}

	switch len(lines) {
	case 0:
		return nil
	case 1:
		return parseGogenLine(lines[0], filePath)
	default:
		fmt.Printf("警告: 文件 %s 定义了多个 go:gogen: 指令，将被忽略\n", filePath)
		return nil
	}
}

// parseGogenLine 解析单行 go:gogen: 配置
// 格式:
//
//	-output `xxx`                                         // 默认输出
//	plugin:apierror -output `xxx` plugin:other -output `yyy` // 插件特定输出
func parseGogenLine(line string, filePath string) *PackageConfig {
	config := &PackageConfig{
		PackageDir:    filepath.Dir(filePath),
		PluginOutputs: make(map[string]string),
	}

	parts := splitGogenArgs(strings.TrimSpace(line))

	var currentPlugin string
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		switch {
		case strings.HasPrefix(part, "plugin:"):
			currentPlugin = strings.ToLower(strings.TrimPrefix(part, "plugin:"))
		case part == "-output" && i+1 < len(parts):
			i++
			output := trimQuotes(parts[i])
			if currentPlugin == "" {
				config.DefaultOutput = output
			} else {
				config.PluginOutputs[currentPlugin] = output
			}
		}
	}

	if config.DefaultOutput == "" && len(config.PluginOutputs) == 0 {
		return nil
	}
	return config
}

// splitGogenArgs 分割 go:gogen 参数，支持引号内的空格
func splitGogenArgs(line string) []string {
	var parts []string
	var current strings.Builder
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == 0 && (c == '`' || c == '"' || c == '\''):
			quote = c
			current.WriteByte(c)
		case quote != 0 && c == quote:
			quote = 0
			current.WriteByte(c)
		case quote == 0 && (c == ' ' || c == '\t'):
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// trimQuotes 去除引号
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '`' || first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
