package plugin

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
)

// Describer 生成器可选实现，提供额外的帮助说明（如子注解）
type Describer interface {
	Describe() string
}

// outputParam 所有生成器共有的 output 参数
var outputParam = ParamDef{Name: "output", Description: "输出文件路径，支持 $FILE、$PACKAGE"}

// FormatHelpText 为所有注册的生成器生成帮助文本
func FormatHelpText(registry *Registry) string {
	generators := registry.Generators()
	if len(generators) == 0 {
		return "  (暂无已注册的生成器)\n"
	}

	var sb strings.Builder
	for _, gen := range generators {
		annotations := gen.Annotations()
		if len(annotations) == 0 {
			continue
		}
		main := annotations[0]

		fmt.Fprintf(&sb, "  @%s (%s)\n", main, gen.Name())
		if d, ok := gen.(Describer); ok {
			for _, line := range strings.Split(strings.TrimSpace(d.Describe()), "\n") {
				sb.WriteString("    " + line + "\n")
			}
		}

		params := append([]ParamDef{outputParam}, gen.ParamDefs()...)
		labels := lo.Map(params, func(p ParamDef, _ int) string {
			if p.Required {
				return p.Name + " (必填)"
			}
			return p.Name
		})
		width := lo.Max(lo.Map(labels, func(s string, _ int) int { return runewidth.StringWidth(s) }))

		sb.WriteString("    参数:\n")
		for i, p := range params {
			desc := p.Description
			if p.Default != "" {
				desc += fmt.Sprintf(" [默认: %s]", p.Default)
			}
			fmt.Fprintf(&sb, "      %s  %s\n", runewidth.FillRight(labels[i], width), desc)
		}

		sb.WriteString("    示例:\n")
		fmt.Fprintf(&sb, "      @%s\n", main)
		fmt.Fprintf(&sb, "      @%s(output=$FILE_errors.go)\n", main)
		for _, p := range gen.ParamDefs() {
			if p.Default != "" {
				fmt.Fprintf(&sb, "      @%s(%s=%s)\n", main, p.Name, p.Default)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
