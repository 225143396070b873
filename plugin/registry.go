package plugin

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Registry 注解到生成器的绑定，一个注解只能属于一个生成器。
// 注册在运行前完成，运行期间只读。
type Registry struct {
	byName       map[string]Generator
	byAnnotation map[string]Generator
}

func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{
		byName:       make(map[string]Generator),
		byAnnotation: make(map[string]Generator),
	}
	for _, gen := range gens {
		r.MustRegister(gen)
	}
	return r
}

// Register 注册生成器，名称或注解冲突时返回错误
func (r *Registry) Register(gen Generator) error {
	name := gen.Name()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("生成器 %q 已注册", name)
	}
	for _, ann := range gen.Annotations() {
		if owner, ok := r.byAnnotation[ann]; ok {
			return fmt.Errorf("注解 @%s 已被生成器 %q 绑定，无法被 %q 再次绑定", ann, owner.Name(), name)
		}
	}

	r.byName[name] = gen
	for _, ann := range gen.Annotations() {
		r.byAnnotation[ann] = gen
	}
	return nil
}

func (r *Registry) MustRegister(gen Generator) {
	if err := r.Register(gen); err != nil {
		panic(err)
	}
}

// Generators 按优先级、名称排序
func (r *Registry) Generators() []Generator {
	gens := lo.Values(r.byName)
	slices.SortFunc(gens, byPriority)
	return gens
}

// Annotations 已绑定的注解名，按名称排序
func (r *Registry) Annotations() []string {
	anns := lo.Keys(r.byAnnotation)
	slices.Sort(anns)
	return anns
}

func byPriority(a, b Generator) int {
	return cmp.Or(cmp.Compare(a.Priority(), b.Priority()), cmp.Compare(a.Name(), b.Name()))
}

// Batch 分发给同一个生成器的目标
type Batch struct {
	Generator Generator
	Targets   []*AnnotatedTarget
}

// Dispatch 将扫描结果按注解分发给生成器，结果按生成器优先级排序。
// 同一目标上属于同一生成器的多个注解只分发一次，不支持的目标类型被跳过。
func (r *Registry) Dispatch(result *ScanResult) []Batch {
	targets := make(map[string][]*AnnotatedTarget)
	for _, at := range result.All() {
		owners := lo.UniqBy(lo.FilterMap(at.Annotations, func(ann *Annotation, _ int) (Generator, bool) {
			gen, ok := r.byAnnotation[ann.Name]
			return gen, ok && slices.Contains(gen.SupportedTargets(), at.Target.Kind)
		}), Generator.Name)
		for _, gen := range owners {
			targets[gen.Name()] = append(targets[gen.Name()], at)
		}
	}

	return lo.FilterMap(r.Generators(), func(gen Generator, _ int) (Batch, bool) {
		ts, ok := targets[gen.Name()]
		return Batch{Generator: gen, Targets: ts}, ok
	})
}
