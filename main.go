package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/donutnomad/apierrgen/apierrgen"
	"github.com/donutnomad/apierrgen/internal/diag"
	"github.com/donutnomad/apierrgen/plugin"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

var (
	verbose  = flag.Bool("v", false, "详细输出")
	help     = flag.Bool("h", false, "显示帮助信息")
	output   = flag.String("output", "", "默认输出路径（支持模板变量 $FILE, $PACKAGE），为空时输出到 $FILE_apierror.go")
	async    = flag.Bool("async", true, "异步执行生成器（默认 true）")
	response = flag.Bool("response", false, "默认生成响应适配方法 Respond，可被注解参数 response 覆盖")
	jsonOut  = flag.Bool("json", false, "以 JSON 格式输出诊断信息")
	noColor  = flag.Bool("no-color", false, "禁用彩色输出")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}
	if *noColor {
		color.NoColor = true
	}

	args := flag.Args()

	// 默认命令是 gen
	if len(args) == 0 {
		os.Exit(runGen([]string{"./..."}))
	}

	switch args[0] {
	case "gen":
		os.Exit(runGen(args[1:]))
	case "check":
		os.Exit(runCheck(args[1:]))
	case "dev":
		os.Exit(runDev(args[1:]))
	default:
		// 不是子命令，当作路径参数处理，执行 gen
		os.Exit(runGen(args))
	}
}

func newReporter() *diag.Reporter {
	opts := []diag.Option{diag.WithJSON(*jsonOut)}
	if *noColor {
		opts = append(opts, diag.WithColor(false))
	}
	return diag.NewReporter(os.Stderr, opts...)
}

// newRegistry 注册 apierror 生成器，-response 作为未写 response 参数时的默认值
func newRegistry() *plugin.Registry {
	return plugin.NewRegistry(apierrgen.NewGenerator().SetResponseDefault(*response))
}

func runOptions(patterns []string, rep *diag.Reporter) *plugin.RunOptions {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	return &plugin.RunOptions{
		Registry: newRegistry(),
		Patterns: patterns,
		Verbose:  *verbose,
		Output:   *output,
		Async:    *async,
		Report:   rep.Error,
		Warn:     rep.Warn,
	}
}

func printRegistry(registry *plugin.Registry) {
	fmt.Printf("已注册 %d 个生成器:\n", len(registry.Generators()))
	for _, gen := range registry.Generators() {
		anns := lo.Map(gen.Annotations(), func(item string, _ int) string {
			return "@" + item
		})
		fmt.Printf("  - %s (%s)\n", gen.Name(), strings.Join(anns, ","))
	}
	fmt.Println()
}

// runGen 执行代码生成，返回进程退出码
func runGen(patterns []string) int {
	rep := newReporter()
	opts := runOptions(patterns, rep)
	if *verbose {
		printRegistry(opts.Registry)
	}

	stats, err := plugin.RunWithOptionsAndStats(context.Background(), opts)
	if ferr := rep.Flush(); ferr != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", ferr)
	}
	if err != nil {
		var runErr *plugin.RunError
		if !errors.As(err, &runErr) {
			// RunError 中的错误已经逐条输出
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		} else if !*jsonOut {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return 1
	}

	// 输出统计信息
	if stats != nil && (stats.FileCount > 0 || *verbose) {
		fmt.Printf("\n统计: 扫描 %d 个目标, 生成 %d 个文件\n", stats.TargetCount, stats.FileCount)
		fmt.Printf("耗时: 扫描 %v, 生成 %v, 总计 %v\n", stats.ScanDuration, stats.GenerateDuration, stats.TotalDuration)
	}
	return 0
}

// runCheck 检查磁盘上的生成文件是否最新，返回进程退出码
func runCheck(patterns []string) int {
	rep := newReporter()
	opts := runOptions(patterns, rep)

	drifts, err := plugin.Check(context.Background(), opts)
	if ferr := rep.Flush(); ferr != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", ferr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	for _, d := range drifts {
		if d.Missing {
			fmt.Printf("缺少生成文件: %s\n", d.Path)
			continue
		}
		fmt.Printf("生成文件已过期: %s\n%s\n", d.Path, d.Diff)
	}
	if len(drifts) > 0 {
		fmt.Fprintf(os.Stderr, "%d 个生成文件需要更新，请运行 apierrgen gen\n", len(drifts))
		return 1
	}
	if *verbose {
		fmt.Println("所有生成文件均为最新")
	}
	return 0
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `apierrgen - 为枚举类型生成 API 错误描述

用法:
  apierrgen [选项] [路径...]
  apierrgen gen [选项] [路径...]
  apierrgen check [选项] [路径...]
  apierrgen dev [选项] [路径...]

命令:
  gen     执行代码生成（默认）
  check   只检查生成文件是否最新，不写入，过期时退出码为 1
  dev     启动开发模式，监听文件变动自动生成

路径:
  支持 Go 包路径模式，如:
    ./...          递归扫描当前目录及子目录（默认）
    ./pkg/...      递归扫描指定目录
    ./errs         只扫描 errs 目录

选项:
`)
	flag.PrintDefaults()

	// 动态生成注解帮助信息
	registry := newRegistry()
	if len(registry.Generators()) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "\n支持的注解:\n")
		_, _ = fmt.Fprint(os.Stderr, plugin.FormatHelpText(registry))
	}

	_, _ = fmt.Fprintf(os.Stderr, `模板变量:
  $FILE     - 源文件名（不含 .go 后缀）
  $PACKAGE  - 包名

示例:
  apierrgen                                 扫描当前目录（默认 ./...）
  apierrgen -response ./...                 默认生成 gin 响应适配方法
  apierrgen -v ./errs/...                   详细模式扫描 errs 目录
  apierrgen -output $PACKAGE_errors ./...   同一个包的枚举输出到同一个文件
  apierrgen -json check ./...               CI 中检查生成文件，诊断以 JSON 输出
  apierrgen dev ./...                       开发模式，监听文件变动
`)
}
