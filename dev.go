package main

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/donutnomad/apierrgen/apierrgen"
	"github.com/donutnomad/apierrgen/internal/diag"
	"github.com/donutnomad/apierrgen/plugin"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
)

// DevOptions dev 命令选项
type DevOptions struct {
	Patterns []string
	Verbose  bool
	Output   string
	Async    bool
	Response bool
	Debounce time.Duration
}

// devSession 监听源码变动，按包目录重新生成
type devSession struct {
	opts      *DevOptions
	out       io.Writer
	errOut    io.Writer
	watcher   *fsnotify.Watcher
	recursive bool // 是否有 ./... 形式的模式，决定新建目录是否加入监听

	mu     sync.Mutex
	timers map[string]*time.Timer // key: 包目录

	runMu sync.Mutex // 同一时间只运行一次生成，避免输出交错
}

func newDevSession(opts *DevOptions, out, errOut io.Writer) *devSession {
	return &devSession{
		opts:   opts,
		out:    out,
		errOut: errOut,
		timers: make(map[string]*time.Timer),
		recursive: lo.SomeBy(opts.Patterns, func(p string) bool {
			return strings.HasSuffix(p, "/...")
		}),
	}
}

// runDev 启动开发模式，返回进程退出码
func runDev(args []string) int {
	opts := &DevOptions{
		Patterns: lo.Ternary(len(args) == 0, []string{"./..."}, args),
		Verbose:  *verbose,
		Output:   *output,
		Async:    *async,
		Response: *response,
		Debounce: 300 * time.Millisecond,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dev(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

func dev(ctx context.Context, opts *DevOptions, out, errOut io.Writer) error {
	dirs, err := collectWatchDirs(opts.Patterns)
	if err != nil {
		return fmt.Errorf("收集监听目录失败: %w", err)
	}
	if len(dirs) == 0 {
		return fmt.Errorf("没有找到需要监听的目录")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	s := newDevSession(opts, out, errOut)
	s.watcher = watcher
	defer s.stopTimers()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("添加监听目录 %s 失败: %w", dir, err)
		}
		if opts.Verbose {
			fmt.Fprintf(out, "监听目录: %s\n", dir)
		}
	}
	fmt.Fprintf(out, "开发模式已启动，监听 %d 个目录，按 Ctrl+C 退出\n\n", len(dirs))

	s.regenerate(ctx, opts.Patterns...)
	return s.loop(ctx)
}

func (s *devSession) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "\n正在退出...")
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handle(ctx, ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(s.errOut, "监听错误: %v\n", err)
		}
	}
}

func (s *devSession) handle(ctx context.Context, ev fsnotify.Event) {
	if s.recursive && s.watcher != nil && ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !plugin.SkipDir(info.Name()) {
			s.watchNewDir(ctx, ev.Name)
			return
		}
	}

	dir, ok := eventDir(ev)
	if !ok {
		return
	}
	if s.opts.Verbose {
		fmt.Fprintf(s.out, "检测到变动: %s (%s)\n", ev.Name, ev.Op)
	}
	s.schedule(ctx, dir)
}

// watchNewDir 新建的目录及其子目录加入监听，已经存在的源码立即生成一次
func (s *devSession) watchNewDir(ctx context.Context, root string) {
	dirs, err := collectWatchDirs([]string{root + "/..."})
	if err != nil {
		fmt.Fprintf(s.errOut, "监听新目录 %s 失败: %v\n", root, err)
		return
	}
	for _, dir := range dirs {
		if err := s.watcher.Add(dir); err != nil {
			fmt.Fprintf(s.errOut, "监听新目录 %s 失败: %v\n", dir, err)
			continue
		}
		s.schedule(ctx, dir)
	}
}

// eventDir 返回需要重新生成的包目录。
// 测试文件不触发；写入和新建的生成文件也不触发，否则每次生成都会再触发一次。
func eventDir(ev fsnotify.Event) (string, bool) {
	if !strings.HasSuffix(ev.Name, ".go") || strings.HasSuffix(ev.Name, "_test.go") {
		return "", false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return filepath.Dir(ev.Name), true
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		return filepath.Dir(ev.Name), !isGeneratedFile(ev.Name)
	}
	return "", false
}

// schedule 防抖：同一目录在 Debounce 内的多次变动只生成一次
func (s *devSession) schedule(ctx context.Context, dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[dir]; ok {
		t.Stop()
	}
	s.timers[dir] = time.AfterFunc(s.opts.Debounce, func() {
		s.mu.Lock()
		delete(s.timers, dir)
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.regenerate(ctx, dir)
	})
}

func (s *devSession) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
}

// regenerate 重新生成 patterns 中的包，逐个枚举输出结果
func (s *devSession) regenerate(ctx context.Context, patterns ...string) []apierrgen.EnumReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var reports []apierrgen.EnumReport
	gen := apierrgen.NewGenerator().
		SetResponseDefault(s.opts.Response).
		OnEnum(func(r apierrgen.EnumReport) { reports = append(reports, r) })

	// 诊断总是以文本输出，JSON 只用于一次性的 gen/check
	rep := diag.NewReporter(s.errOut)
	_, err := plugin.RunWithOptionsAndStats(ctx, &plugin.RunOptions{
		Registry: plugin.NewRegistry(gen),
		Patterns: patterns,
		Verbose:  s.opts.Verbose,
		Output:   s.opts.Output,
		Async:    s.opts.Async,
		Report:   rep.Error,
		Warn:     rep.Warn,
		Written:  func(string) {},
	})
	var runErr *plugin.RunError
	if err != nil && !errors.As(err, &runErr) {
		fmt.Fprintf(s.errOut, "生成失败: %v\n", err)
		return reports
	}

	for _, r := range reports {
		s.printReport(r, err != nil)
	}
	if len(reports) == 0 && s.opts.Verbose {
		fmt.Fprintf(s.out, "%s: 没有 @ApiError 枚举\n", strings.Join(patterns, " "))
	}
	return reports
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	skipMark = color.New(color.FgYellow).Sprint("-")
)

// printReport 输出单个枚举的结果，failed 表示本次运行有错误，没有写入任何文件
func (s *devSession) printReport(r apierrgen.EnumReport, failed bool) {
	switch {
	case !r.OK():
		n := len(r.Diagnostics)
		if r.Err != nil {
			n++
		}
		fmt.Fprintf(s.out, "%s %s (%s): %d 个错误\n", failMark, r.Name, relPath(r.Pos.Filename), n)
	case failed:
		fmt.Fprintf(s.out, "%s %s: 其他枚举有错误，未写入\n", skipMark, r.Name)
	default:
		fmt.Fprintf(s.out, "%s %s -> %s (%d 个变体)\n", okMark, r.Name, relPath(r.Output), r.Variants)
	}
}

func relPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// collectWatchDirs 收集需要监听的目录，递归时跳过与扫描器相同的目录
func collectWatchDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		absDir, err := filepath.Abs(lo.CoalesceOrEmpty(strings.TrimSuffix(pattern, "/..."), "."))
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absDir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			continue
		}
		if !recursive {
			add(absDir)
			continue
		}

		err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != absDir && plugin.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dirs, nil
}

// isGeneratedFile 检查是否是测试文件或生成的文件
func isGeneratedFile(filePath string) bool {
	base := filepath.Base(filePath)
	if strings.HasSuffix(base, "_test.go") || strings.HasSuffix(base, "_apierror.go") {
		return true
	}

	f, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer f.Close()

	file, err := parser.ParseFile(token.NewFileSet(), filePath, f, parser.PackageClauseOnly|parser.ParseComments)
	return err == nil && ast.IsGenerated(file)
}
