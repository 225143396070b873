package apierrgen

import (
	"go/token"
	"net/http"
)

const (
	defaultStatusConst = "StatusInternalServerError"
	defaultLabel       = "InternalServerError"
)

// VariantPolicy 一个变体折叠后的注解结果
type VariantPolicy struct {
	Variant    string
	Pos        token.Position
	Explicit   bool        // 出现过任一可识别注解
	Pass       bool        // @Pass
	StatusCode *StatusCode // 最后一个 @StatusCode
	Label      *string     // 最后一个 @Custom
}

// Derivation 一个枚举的推导结果，Policies 与 Enum.Variants 一一对应
type Derivation struct {
	Enum     *EnumDeclaration
	Policies []VariantPolicy
}

// Outcome 变体最终的状态码与标签
type Outcome struct {
	StatusConst string // net/http 常量名
	StatusCode  int
	Label       string
	Default     bool // 使用默认策略
}

// Fold 按出现顺序折叠注解，同类注解后者覆盖前者
func Fold(variant VariantDeclaration, directives []Directive) VariantPolicy {
	p := VariantPolicy{Variant: variant.Name, Pos: variant.Pos}
	for _, d := range directives {
		p.Explicit = true
		switch d.Kind {
		case DirectivePass:
			p.Pass = true
		case DirectiveStatusCode:
			p.StatusCode = LookupStatus(d.Ident)
		case DirectiveCustom:
			label := d.Text
			p.Label = &label
		}
	}
	return p
}

// Validate 校验所有变体，返回全部诊断
func Validate(policies []VariantPolicy) Diagnostics {
	var diags Diagnostics
	for _, p := range policies {
		if p.Pass && (p.StatusCode != nil || p.Label != nil) {
			diags = append(diags, newDiagnostic(ConflictingAnnotations, p.Pos, p.Variant,
				"@Pass 不能与 @StatusCode 或 @Custom 同时使用"))
		}
		if p.StatusCode != nil && !p.StatusCode.Resolved() {
			diags = append(diags, newDiagnostic(UnknownStatusCode, p.Pos, p.Variant,
				"@StatusCode(%s) 不是 net/http 中的状态码", p.StatusCode.Name))
		}
	}
	return diags
}

// Resolve 计算变体的状态码与标签，p 必须已通过 Validate
func (p VariantPolicy) Resolve() Outcome {
	out := Outcome{
		StatusConst: defaultStatusConst,
		StatusCode:  http.StatusInternalServerError,
		Label:       defaultLabel,
	}
	if !p.Explicit {
		out.Default = true
		return out
	}

	out.Label = p.Variant
	if p.StatusCode != nil {
		out.StatusConst = p.StatusCode.Const
		out.StatusCode = p.StatusCode.Code
	}
	if p.Label != nil {
		out.Label = *p.Label
	}
	return out
}

// Derive 读取注解、折叠并校验。
// 任一变体的注解参数格式错误时不再继续校验；有任何诊断时返回 nil。
func Derive(enum *EnumDeclaration) (*Derivation, Diagnostics) {
	if enum.Kind != DeclEnum {
		return nil, Diagnostics{newDiagnostic(UnsupportedDeclarationKind, enum.Pos, enum.Name,
			"@ApiError 只能用于底层类型为整数或字符串的具名类型，这里是 %s", enum.Kind)}
	}

	var (
		diags      Diagnostics
		directives = make([][]Directive, len(enum.Variants))
	)
	for i, v := range enum.Variants {
		for _, raw := range v.Directives {
			ds, errs := ReadDirectives(raw.Text, raw.Pos, v.Name)
			directives[i] = append(directives[i], ds...)
			diags = append(diags, errs...)
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}

	policies := make([]VariantPolicy, len(enum.Variants))
	for i, v := range enum.Variants {
		policies[i] = Fold(v, directives[i])
	}
	if diags := Validate(policies); len(diags) > 0 {
		return nil, diags
	}
	return &Derivation{Enum: enum, Policies: policies}, nil
}
