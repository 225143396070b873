package plugin

import (
	"go/ast"
	"go/token"
	"path/filepath"

	"github.com/donutnomad/gg"
)

// TargetKind 表示注解目标的类型
type TargetKind int

const (
	TargetStruct    TargetKind = iota + 1 // 结构体
	TargetInterface                       // 接口
	TargetFunc                            // 包级函数
	TargetMethod                          // 结构体方法
	TargetVar                             // 包级变量
	TargetConst                           // 包级常量
	TargetType                            // 其他具名类型（type E int / type A = B / type F func()）
)

// AllTargetKinds 返回所有目标类型，按声明顺序
func AllTargetKinds() []TargetKind {
	return []TargetKind{
		TargetStruct, TargetInterface, TargetFunc, TargetMethod,
		TargetVar, TargetConst, TargetType,
	}
}

func (k TargetKind) String() string {
	switch k {
	case TargetStruct:
		return "struct"
	case TargetInterface:
		return "interface"
	case TargetFunc:
		return "func"
	case TargetMethod:
		return "method"
	case TargetVar:
		return "var"
	case TargetConst:
		return "const"
	case TargetType:
		return "type"
	default:
		return "unknown"
	}
}

// ParamDef 定义注解参数的元信息
type ParamDef struct {
	Name        string // 参数名称
	Required    bool   // 是否必填
	Default     string // 默认值（如果不是必填）
	Description string // 参数描述
}

// Annotation 表示解析后的注解
type Annotation struct {
	Name   string            // 注解名称，如 "ApiError"
	Params map[string]string // 注解参数，如 framework=gin
	Raw    string            // 原始注解文本
	Err    error             // 参数不是 key=value 形式时的解析错误
}

// Target 表示注解的目标
type Target struct {
	Kind        TargetKind // 目标类型
	Name        string     // 名称
	PackageName string     // 包名
	FilePath    string     // 文件路径（绝对路径）
	Position    token.Pos  // 位置信息，配合 Fset 使用
	Fset        *token.FileSet

	// 方法特有字段
	ReceiverName string // 接收者名称（仅方法）
	ReceiverType string // 接收者类型（仅方法）

	// AST 节点，用于深度解析
	Node ast.Node
}

// Location 返回目标的源码位置
func (t *Target) Location() token.Position {
	if t.Fset == nil || !t.Position.IsValid() {
		return token.Position{Filename: t.FilePath}
	}
	return t.Fset.Position(t.Position)
}

// Dir 返回目标所在的包目录
func (t *Target) Dir() string {
	return filepath.Dir(t.FilePath)
}

// AnnotatedTarget 表示带注解的目标
type AnnotatedTarget struct {
	Target       *Target       // 目标信息
	Annotations  []*Annotation // 注解列表
	ParsedParams any           // 解析后的参数结构体
}

// ScanResult 表示扫描结果
type ScanResult struct {
	Structs    []*AnnotatedTarget
	Interfaces []*AnnotatedTarget
	Types      []*AnnotatedTarget
	Funcs      []*AnnotatedTarget
	Methods    []*AnnotatedTarget
	Vars       []*AnnotatedTarget
	Consts     []*AnnotatedTarget

	// PackageConfigs 包级配置
	// key: 包目录
	PackageConfigs map[string]*PackageConfig
}

// All 返回所有带注解的目标
func (r *ScanResult) All() []*AnnotatedTarget {
	result := make([]*AnnotatedTarget, 0,
		len(r.Structs)+len(r.Interfaces)+len(r.Types)+len(r.Funcs)+len(r.Methods)+len(r.Vars)+len(r.Consts))
	result = append(result, r.Structs...)
	result = append(result, r.Interfaces...)
	result = append(result, r.Types...)
	result = append(result, r.Funcs...)
	result = append(result, r.Methods...)
	result = append(result, r.Vars...)
	result = append(result, r.Consts...)
	return result
}

// GenerateContext 生成上下文，传递给 Generator
type GenerateContext struct {
	Targets        []*AnnotatedTarget        // 该 Generator 需要处理的目标
	PackageConfigs map[string]*PackageConfig // 包级配置，key: 包目录
	DefaultOutput  string                    // 命令行指定的默认输出路径（最低优先级）
	Verbose        bool                      // 详细输出
}

// GetPackageConfig 获取指定源文件所在包的配置
func (c *GenerateContext) GetPackageConfig(filePath string) *PackageConfig {
	if c.PackageConfigs == nil {
		return nil
	}
	return c.PackageConfigs[filepath.Dir(filePath)]
}

// GenerateResult 生成结果
// Generator 返回 gg 定义，由聚合器统一处理
type GenerateResult struct {
	// Definitions 是生成的 gg 定义
	// key: 输出文件路径
	Definitions map[string]*gg.Generator

	// Errors 错误列表，任意错误都会阻止本次运行写入文件
	Errors []error

	// Warnings 警告列表，只输出不阻断
	Warnings []error
}

// PackageConfig 包级生成配置
// 通过 // go:gogen: 注释定义
// 示例:
//
//	// go:gogen: -output `$FILE_gen`
//	// go:gogen: plugin:apierror -output `errors_gen`
type PackageConfig struct {
	PackageDir string // 包目录

	// DefaultOutput 默认输出路径（对所有插件生效）
	DefaultOutput string

	// PluginOutputs 插件特定的输出路径
	// key: 插件名（小写）, value: 输出路径
	PluginOutputs map[string]string
}

// GetPluginOutput 获取指定插件的输出路径
// 优先返回插件特定配置，其次返回默认配置，最后返回空字符串
func (c *PackageConfig) GetPluginOutput(pluginName string) string {
	if c == nil {
		return ""
	}
	if output, ok := c.PluginOutputs[pluginName]; ok {
		return output
	}
	return c.DefaultOutput
}

// NewGenerateResult 创建新的生成结果
func NewGenerateResult() *GenerateResult {
	return &GenerateResult{
		Definitions: make(map[string]*gg.Generator),
	}
}

// AddDefinition 添加 gg 定义
func (r *GenerateResult) AddDefinition(path string, gen *gg.Generator) {
	if r.Definitions == nil {
		r.Definitions = make(map[string]*gg.Generator)
	}
	r.Definitions[path] = gen
}

// AddError 添加错误
func (r *GenerateResult) AddError(err error) {
	r.Errors = append(r.Errors, err)
}

// AddWarning 添加警告
func (r *GenerateResult) AddWarning(err error) {
	r.Warnings = append(r.Warnings, err)
}
