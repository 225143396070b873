package apierrgen

import (
	"fmt"
	"strconv"

	"github.com/donutnomad/gg"
	"github.com/samber/lo"
)

// RuntimeImportPath 生成代码依赖的运行时包
const RuntimeImportPath = "github.com/donutnomad/apierrgen/apierror"

// Emit 把一个枚举的推导结果写入 gen。
// backend 为 nil 时不生成响应适配方法。
func Emit(gen *gg.Generator, d *Derivation, backend ResponseBackend) {
	gen.P(RuntimeImportPath)
	gen.P("net/http")
	gen.P("fmt")

	group := gen.Body()
	name := d.Enum.Name
	taken := lo.SliceToMap(d.Enum.Variants, func(v VariantDeclaration) (string, bool) {
		return v.Name, true
	})
	recv := freeName("e", taken)
	msg := freeName("msg", taken)

	group.AddString(fmt.Sprintf("var _ apierror.Descriptor = (*%s)(nil)\n", name))
	if backend != nil {
		group.AddString(fmt.Sprintf("var _ %s = (*%s)(nil)\n", backend.Responder(), name))
	}

	group.AddLine()
	group.Append(gg.LineComment("ApiErrorData returns the API error descriptor of %s.", name))

	body := []any{gg.S("%s := fmt.Sprint(%s)", msg, recv)}
	if len(d.Policies) > 0 {
		sw := gg.Switch(recv)
		for _, p := range d.Policies {
			out := p.Resolve()
			sw.NewCase(gg.S(p.Variant)).AddBody(
				gg.S("return apierror.NewData(http.%s, %s, %s)", out.StatusConst, msg, strconv.Quote(out.Label)),
			)
		}
		body = append(body, sw)
	}
	body = append(body,
		gg.S("return apierror.NewData(http.%s, %s, %s)", defaultStatusConst, msg, strconv.Quote(defaultLabel)),
	)

	fn := gg.Function("ApiErrorData").
		WithReceiver(recv, name).
		AddResult("", "apierror.Data").
		AddBody(body...)
	group.Append(fn)

	if backend != nil {
		group.AddLine()
		backend.Emit(gen, name, recv)
	}
}

// freeName 返回不与变体名冲突的局部变量名
func freeName(base string, taken map[string]bool) string {
	name := base
	for i := 1; taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	return name
}
