package plugin

import "reflect"

// Generator 处理一组带注解的目标，返回按输出路径分组的 gg 定义
type Generator interface {
	// Name 同时作为 go:gogen 中 plugin:<name> 的键
	Name() string
	// Annotations 绑定的注解名，一个注解只能属于一个生成器
	Annotations() []string
	// SupportedTargets 只有这些类型的目标会分发给 Generate
	SupportedTargets() []TargetKind
	ParamDefs() []ParamDef
	// NewParams 返回参数结构体的新指针，nil 表示没有参数
	NewParams() any
	// Priority 越小越靠前，决定同一输出文件中的合并顺序
	Priority() int
	Generate(ctx *GenerateContext) (*GenerateResult, error)
}

// BaseGenerator 实现 Generator 中除 Generate 以外的方法，供嵌入
type BaseGenerator struct {
	name        string
	annotations []string
	targets     []TargetKind
	params      reflect.Type // 参数结构体类型，可为 nil
	paramDefs   []ParamDef
	priority    int
}

// NewBaseGenerator 创建基础生成器。
// params 为参数结构体的零值（或其指针），字段通过 param 标签声明，可为 nil。
func NewBaseGenerator(name string, annotations []string, targets []TargetKind, params any) *BaseGenerator {
	g := &BaseGenerator{
		name:        name,
		annotations: annotations,
		targets:     targets,
		priority:    100,
	}
	if params != nil {
		t := reflect.TypeOf(params)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		g.params = t
		g.paramDefs = ParseParamsFromStruct(params)
	}
	return g
}

func (g *BaseGenerator) Name() string                   { return g.name }
func (g *BaseGenerator) Annotations() []string          { return g.annotations }
func (g *BaseGenerator) SupportedTargets() []TargetKind { return g.targets }
func (g *BaseGenerator) ParamDefs() []ParamDef          { return g.paramDefs }
func (g *BaseGenerator) Priority() int                  { return g.priority }

func (g *BaseGenerator) NewParams() any {
	if g.params == nil {
		return nil
	}
	return reflect.New(g.params).Interface()
}

// SetPriority 设置优先级，数字越小越靠前
func (g *BaseGenerator) SetPriority(priority int) *BaseGenerator {
	g.priority = priority
	return g
}
