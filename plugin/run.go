package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/donutnomad/apierrgen/internal/utils"
	"github.com/donutnomad/gg"
	"github.com/samber/lo"
)

// GeneratedHeader 写入每个生成文件的头部注释
const GeneratedHeader = "Code generated by apierrgen. DO NOT EDIT."

// RunOptions 运行选项
type RunOptions struct {
	Registry *Registry
	Patterns []string
	Verbose  bool
	Output   string // 命令行指定的默认输出路径（最低优先级）
	Async    bool   // 是否并行执行生成器

	// Report 输出单个错误，为空时打印到标准输出
	Report func(err error)
	// Warn 输出单个警告，为空时打印到标准输出
	Warn func(err error)
	// Written 每写入一个文件调用一次，为空时打印到标准输出
	Written func(path string)
}

func (o *RunOptions) report(err error) {
	if o.Report != nil {
		o.Report(err)
		return
	}
	fmt.Printf("错误: %v\n", err)
}

func (o *RunOptions) warn(err error) {
	if o.Warn != nil {
		o.Warn(err)
		return
	}
	fmt.Printf("警告: %v\n", err)
}

// RunStats 运行统计信息
type RunStats struct {
	ScanDuration     time.Duration // 扫描耗时
	GenerateDuration time.Duration // 生成耗时
	TotalDuration    time.Duration // 总耗时
	TargetCount      int           // 目标数量
	FileCount        int           // 生成文件数量
}

// RunError 汇总一次运行中的所有错误
// 可以通过 errors.As 找到其中任意一个
type RunError struct {
	Errors []error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("生成过程中出现 %d 个错误", len(e.Errors))
}

func (e *RunError) Unwrap() []error {
	return e.Errors
}

// PlannedFile 计划写入的文件，内容已经格式化
type PlannedFile struct {
	Path    string
	Content []byte
}

// Plan 一次运行计划产出的全部内容，不落盘
type Plan struct {
	Files    []PlannedFile // 按路径排序
	Errors   []error
	Warnings []error
	Stats    *RunStats
}

// RunWithOptionsAndStats 带选项运行并返回统计信息
// 只要存在任意错误，本次运行不会写入任何文件
func RunWithOptionsAndStats(ctx context.Context, opts *RunOptions) (*RunStats, error) {
	plan, err := BuildPlan(ctx, opts)
	if err != nil {
		return nil, err
	}

	for _, w := range plan.Warnings {
		opts.warn(w)
	}
	if len(plan.Errors) > 0 {
		for _, e := range plan.Errors {
			opts.report(e)
		}
		return plan.Stats, &RunError{Errors: plan.Errors}
	}

	for _, f := range plan.Files {
		if err := writeFile(f); err != nil {
			opts.report(err)
			return plan.Stats, &RunError{Errors: []error{err}}
		}
		plan.Stats.FileCount++
		if opts.Written != nil {
			opts.Written(f.Path)
		} else {
			fmt.Printf("生成文件: %s\n", f.Path)
		}
	}

	return plan.Stats, nil
}

// BuildPlan 扫描、分发、生成并格式化，返回计划写入的文件
// 返回的 error 只表示扫描等基础设施失败，生成错误记录在 Plan.Errors 中
func BuildPlan(ctx context.Context, opts *RunOptions) (*Plan, error) {
	totalStart := time.Now()
	plan := &Plan{Stats: &RunStats{}}

	registry := opts.Registry
	if registry == nil || len(registry.Annotations()) == 0 {
		return nil, fmt.Errorf("没有已注册的生成器")
	}

	scanStart := time.Now()
	scanner := NewScanner(
		WithAnnotationFilter(registry.Annotations()...),
		WithScannerVerbose(opts.Verbose),
	)
	result, err := scanner.Scan(ctx, opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("扫描失败: %w", err)
	}
	plan.Stats.ScanDuration = time.Since(scanStart)
	plan.Stats.TargetCount = len(result.All())

	if plan.Stats.TargetCount == 0 {
		if opts.Verbose {
			fmt.Println("没有找到任何带注解的目标")
		}
		plan.Stats.TotalDuration = time.Since(totalStart)
		return plan, nil
	}
	if opts.Verbose {
		fmt.Printf("找到 %d 个带注解的目标 (扫描耗时: %v)\n", plan.Stats.TargetCount, plan.Stats.ScanDuration)
	}

	generateStart := time.Now()
	batches := registry.Dispatch(result)

	// 先串行解析所有目标的参数（避免并发修改共享数据），参数有误的目标不再分发
	for i, b := range batches {
		bound, errs, warns := bindParams(b.Generator, b.Targets)
		batches[i].Targets = bound
		plan.Errors = append(plan.Errors, errs...)
		plan.Warnings = append(plan.Warnings, warns...)
	}

	type genResultItem struct {
		result *GenerateResult
		err    error
	}

	execute := func(b Batch) genResultItem {
		if opts.Verbose {
			fmt.Printf("执行生成器: %s (开始处理 %d 个目标)\n", b.Generator.Name(), len(b.Targets))
		}
		start := time.Now()
		res, err := b.Generator.Generate(&GenerateContext{
			Targets:        b.Targets,
			PackageConfigs: result.PackageConfigs,
			DefaultOutput:  opts.Output,
			Verbose:        opts.Verbose,
		})
		if opts.Verbose {
			fmt.Printf("执行生成器: %s (耗时: %v)\n", b.Generator.Name(), time.Since(start))
		}
		return genResultItem{result: res, err: err}
	}

	// 结果按批次下标存放，保证合并顺序与执行方式无关
	items := make([]genResultItem, len(batches))
	if opts.Async {
		var wg sync.WaitGroup
		for i, b := range batches {
			wg.Add(1)
			go func() {
				defer wg.Done()
				items[i] = execute(b)
			}()
		}
		wg.Wait()
	} else {
		for i, b := range batches {
			items[i] = execute(b)
		}
	}

	// 收集 gg 定义，按输出路径分组
	fileDefinitions := make(map[string][]*gg.Generator)
	fileGenNames := make(map[string][]string)
	for i, b := range batches {
		gen, item := b.Generator, items[i]
		if item.err != nil {
			plan.Errors = append(plan.Errors, fmt.Errorf("生成器 %s 执行失败: %w", gen.Name(), item.err))
			continue
		}
		if item.result == nil {
			continue
		}
		paths := lo.Keys(item.result.Definitions)
		slices.Sort(paths)
		for _, path := range paths {
			fileDefinitions[path] = append(fileDefinitions[path], item.result.Definitions[path])
			fileGenNames[path] = append(fileGenNames[path], gen.Name())
		}
		plan.Errors = append(plan.Errors, item.result.Errors...)
		plan.Warnings = append(plan.Warnings, item.result.Warnings...)
	}

	paths := lo.Keys(fileDefinitions)
	slices.Sort(paths)
	for _, path := range paths {
		merged, err := mergeDefinitionsWithSeparator(fileDefinitions[path], fileGenNames[path])
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Errorf("合并文件 %s 的定义失败: %w", path, err))
			continue
		}
		content, err := utils.Format(path, merged.Bytes())
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Errorf("格式化文件 %s 失败: %w", path, err))
			continue
		}
		plan.Files = append(plan.Files, PlannedFile{Path: path, Content: content})
	}

	plan.Stats.GenerateDuration = time.Since(generateStart)
	plan.Stats.TotalDuration = time.Since(totalStart)
	return plan, nil
}

// bindParams 将注解参数绑定到生成器的参数结构体，返回绑定成功的目标
func bindParams(gen Generator, targets []*AnnotatedTarget) (bound []*AnnotatedTarget, errs, warns []error) {
	paramDefs := gen.ParamDefs()
	for _, target := range targets {
		var ann *Annotation
		for _, name := range gen.Annotations() {
			if ann = GetAnnotation(target.Annotations, name); ann != nil {
				break
			}
		}
		if ann == nil {
			bound = append(bound, target)
			continue
		}

		loc := target.Target.Location()
		if ann.Err != nil {
			errs = append(errs, fmt.Errorf("%s: @%s %w", loc, ann.Name, ann.Err))
			continue
		}
		for _, key := range UnknownParams(ann, paramDefs) {
			warns = append(warns, fmt.Errorf("%s: @%s 未知参数 %s，已忽略", loc, ann.Name, key))
		}

		params := gen.NewParams()
		if params == nil {
			bound = append(bound, target)
			continue
		}
		if reflect.ValueOf(params).Kind() != reflect.Ptr {
			errs = append(errs, fmt.Errorf("NewParams() 必须返回指针类型, 得到: %T", params))
			continue
		}
		if err := ParseAnnotationParams(ann, params, paramDefs); err != nil {
			errs = append(errs, fmt.Errorf("%s: 解析参数失败: %w", loc, err))
			continue
		}
		target.ParsedParams = reflect.ValueOf(params).Elem().Interface()
		bound = append(bound, target)
	}
	return bound, errs, warns
}

// mergeDefinitionsWithSeparator 合并多个 gg.Generator 定义到一个文件
// 只有一个生成器输出到该文件时不添加分隔符
func mergeDefinitionsWithSeparator(definitions []*gg.Generator, genNames []string) (*gg.Generator, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("没有定义需要合并")
	}

	merged := gg.New()
	merged.SetHeader(GeneratedHeader)

	var pkgName string
	for _, def := range definitions {
		if def.PackageName() == "" {
			continue
		}
		if pkgName == "" {
			pkgName = def.PackageName()
		} else if pkgName != def.PackageName() {
			return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, def.PackageName())
		}
	}
	if pkgName != "" {
		merged.SetPackage(pkgName)
	}

	// 直接使用 Merge，它会正确处理 imports 和别名
	for i, def := range definitions {
		if len(definitions) > 1 {
			merged.Body().AddLine()
			merged.Body().AddString(fmt.Sprintf("// ================ %s ================", genNames[i]))
			merged.Body().AddLine()
		}
		merged.Merge(def)
	}

	return merged, nil
}

// writeFile 写入已格式化的文件
func writeFile(f PlannedFile) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(f.Path, f.Content, 0644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", f.Path, err)
	}
	return nil
}

// GetOutputPath 根据注解参数和默认规则计算输出路径
// 优先级：注解参数 > 包级插件配置 > 包级默认配置 > 命令行参数 > 默认文件名
// 模板变量：
//   - $FILE: 源文件名（不含 .go 后缀）
//   - $PACKAGE: 包名
func GetOutputPath(target *Target, ann *Annotation, defaultFileName string, pkgConfig *PackageConfig, pluginName string, cmdOutput string) string {
	output := ann.GetParam("output")
	if output == "" {
		output = pkgConfig.GetPluginOutput(strings.ToLower(pluginName))
	}
	if output == "" {
		output = cmdOutput
	}
	if output == "" {
		return GetDefaultOutputPath(target, defaultFileName)
	}

	output = replaceTemplateVars(output, target)
	if !strings.HasSuffix(output, ".go") {
		output += ".go"
	}
	if filepath.IsAbs(output) {
		return output
	}
	// 相对于源文件目录
	return filepath.Join(target.Dir(), output)
}

// replaceTemplateVars 替换模板变量
func replaceTemplateVars(template string, target *Target) string {
	fileName := strings.TrimSuffix(filepath.Base(target.FilePath), ".go")
	template = strings.ReplaceAll(template, "$FILE", fileName)
	template = strings.ReplaceAll(template, "$PACKAGE", target.PackageName)
	return template
}

// GetDefaultOutputPath 获取默认输出路径
func GetDefaultOutputPath(target *Target, defaultFileName string) string {
	if defaultFileName == "" {
		defaultFileName = "generate.go"
	}
	return filepath.Join(target.Dir(), replaceTemplateVars(defaultFileName, target))
}
