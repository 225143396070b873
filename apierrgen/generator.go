package apierrgen

import (
	"cmp"
	"fmt"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/donutnomad/apierrgen/plugin"
	"github.com/donutnomad/gg"
	"github.com/samber/lo"
)

const (
	generatorName  = "apierror"
	annotationName = "ApiError"
	defaultOutput  = "$FILE_apierror.go"
)

// Params 定义 ApiError 注解支持的参数
type Params struct {
	Response  string `param:"name=response,required=false,default=,description=是否生成响应适配方法 Respond: true|false，为空时使用命令行 -response"`
	Framework string `param:"name=framework,required=false,default=gin,description=响应适配使用的 Web 框架: gin|echo|fiber"`
}

// EnumReport 单个 @ApiError 目标的处理结果
type EnumReport struct {
	Name        string
	Pos         token.Position
	Variants    int
	Output      string // 计划写入的文件，出错时为空
	Diagnostics Diagnostics
	Err         error // 诊断以外的错误，如类型检查失败
}

func (r EnumReport) OK() bool { return r.Err == nil && len(r.Diagnostics) == 0 }

// Generator 实现 plugin.Generator 接口
type Generator struct {
	*plugin.BaseGenerator
	responseDefault bool
	onEnum          func(EnumReport)
}

func NewGenerator() *Generator {
	gen := &Generator{
		BaseGenerator: plugin.NewBaseGenerator(
			generatorName,
			[]string{annotationName},
			// 所有目标都接收，非枚举声明报告 UnsupportedDeclarationKind
			plugin.AllTargetKinds(),
			Params{},
		),
	}
	gen.SetPriority(10)
	return gen
}

// SetResponseDefault 设置未指定 response 参数时是否生成响应适配方法
func (g *Generator) SetResponseDefault(on bool) *Generator {
	g.responseDefault = on
	return g
}

// OnEnum 每处理完一个 @ApiError 目标调用一次 fn
func (g *Generator) OnEnum(fn func(EnumReport)) *Generator {
	g.onEnum = fn
	return g
}

// Describe 实现 plugin.Describer
func (g *Generator) Describe() string {
	return `为底层类型为整数或字符串的具名类型生成 ApiErrorData 方法
常量注解:
  @StatusCode(NotFound) - 使用 net/http 状态码，标签为常量名
  @Custom("text")       - 使用自定义标签，状态码为 500
  @Pass                 - 状态码 500，标签为常量名，不能与上面两个同时使用`
}

type enumItem struct {
	derivation *Derivation
	backend    ResponseBackend
}

// Generate 执行代码生成
func (g *Generator) Generate(ctx *plugin.GenerateContext) (*plugin.GenerateResult, error) {
	result := plugin.NewGenerateResult()
	if len(ctx.Targets) == 0 {
		return result, nil
	}

	loader := NewPackageLoader()
	mods := NewModChecker()
	warned := make(map[string]bool)

	targets := slices.Clone(ctx.Targets)
	slices.SortFunc(targets, func(a, b *plugin.AnnotatedTarget) int {
		return cmp.Or(
			strings.Compare(a.Target.FilePath, b.Target.FilePath),
			cmp.Compare(a.Target.Position, b.Target.Position),
		)
	})

	// key: 输出路径
	fileItems := make(map[string][]enumItem)

	for _, at := range targets {
		ann := plugin.GetAnnotation(at.Annotations, annotationName)
		if ann == nil {
			continue
		}
		item, report := g.prepare(ctx, at, ann, loader, mods, warned, result)
		if g.onEnum != nil {
			g.onEnum(report)
		}
		if report.OK() {
			fileItems[report.Output] = append(fileItems[report.Output], item)
		}
	}

	// 按输出路径排序，确保生成顺序一致
	outputPaths := lo.Keys(fileItems)
	slices.Sort(outputPaths)

	for _, outputPath := range outputPaths {
		items := fileItems[outputPath]
		slices.SortFunc(items, func(a, b enumItem) int {
			return strings.Compare(a.derivation.Enum.Name, b.derivation.Enum.Name)
		})

		gen, err := generateDefinition(items)
		if err != nil {
			result.AddError(fmt.Errorf("生成 %s 失败: %w", filepath.Base(outputPath), err))
			continue
		}
		result.AddDefinition(outputPath, gen)
	}

	return result, nil
}

// prepare 收集并推导单个枚举，错误和警告同时写入 result
func (g *Generator) prepare(ctx *plugin.GenerateContext, at *plugin.AnnotatedTarget, ann *plugin.Annotation,
	loader *PackageLoader, mods *ModChecker, warned map[string]bool, result *plugin.GenerateResult) (enumItem, EnumReport) {
	report := EnumReport{Name: at.Target.Name, Pos: at.Target.Location()}

	var params Params
	if at.ParsedParams != nil {
		var ok bool
		params, ok = at.ParsedParams.(Params)
		if !ok {
			report.Err = fmt.Errorf("ParsedParams 类型断言失败: %T", at.ParsedParams)
			result.AddError(report.Err)
			return enumItem{}, report
		}
	}

	enum, err := CollectEnum(loader, at.Target)
	if err != nil {
		report.Err = fmt.Errorf("收集枚举 %s 失败: %w", at.Target.Name, err)
		result.AddError(report.Err)
		return enumItem{}, report
	}
	report.Pos = enum.Pos
	report.Variants = len(enum.Variants)
	for _, alias := range enum.Aliases {
		if ignored := alias.IgnoredDirectives(); len(ignored) > 0 {
			result.AddWarning(fmt.Errorf("%s: 常量 %s 与 %s 的值相同，按别名处理，其上的 %s 不会生效",
				alias.Pos, alias.Name, alias.Of,
				strings.Join(lo.Map(ignored, func(d Directive, _ int) string { return d.Raw }), " ")))
		}
	}

	derivation, diags := Derive(enum)
	backend, err := LookupBackend(lo.CoalesceOrEmpty(params.Framework, DefaultFramework))
	if err != nil {
		diags = append(diags, newDiagnostic(UnsupportedFramework, enum.Pos, enum.Name, "%v", err))
	}
	if len(diags) > 0 {
		report.Diagnostics = diags
		for _, d := range diags {
			result.AddError(d)
		}
		return enumItem{}, report
	}

	response := g.responseDefault
	if strings.TrimSpace(params.Response) != "" {
		response = plugin.ParseParamBool(params.Response)
	}
	if !response {
		backend = nil
	}

	required := []string{runtimeModule}
	if backend != nil {
		required = append(required, backend.ModulePath())
	}
	missing, err := mods.Missing(at.Target.Dir(), required...)
	if err != nil {
		result.AddWarning(err)
	}
	for _, mod := range missing {
		key := at.Target.Dir() + "\x00" + mod
		if warned[key] {
			continue
		}
		warned[key] = true
		result.AddWarning(fmt.Errorf("%s: go.mod 未引入 %s，生成的代码无法编译", enum.Pos, mod))
	}

	report.Output = plugin.GetOutputPath(at.Target, ann, defaultOutput,
		ctx.GetPackageConfig(at.Target.FilePath), g.Name(), ctx.DefaultOutput)
	if ctx.Verbose {
		fmt.Printf("[apierror] 处理枚举 %s (%d 个变体) -> %s\n", enum.Name, len(enum.Variants), report.Output)
		fmt.Printf("[apierror] %s", spew.Sdump(derivation.Policies))
	}
	return enumItem{derivation: derivation, backend: backend}, report
}

// generateDefinition 为同一输出文件中的枚举生成 gg 定义
func generateDefinition(items []enumItem) (*gg.Generator, error) {
	pkgName := items[0].derivation.Enum.PackageName
	for _, it := range items[1:] {
		if it.derivation.Enum.PackageName != pkgName {
			return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, it.derivation.Enum.PackageName)
		}
	}

	gen := gg.New()
	gen.SetPackage(pkgName)
	for i, it := range items {
		if i > 0 {
			gen.Body().AddLine()
		}
		Emit(gen, it.derivation, it.backend)
	}
	return gen, nil
}
