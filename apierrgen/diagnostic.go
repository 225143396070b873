package apierrgen

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/donutnomad/apierrgen/internal/utils"
	"github.com/samber/lo"
)

// Kind 诊断类型
type Kind int

const (
	MalformedAnnotationPayload Kind = iota + 1 // 注解参数无法按语法解析
	ConflictingAnnotations                     // @Pass 与 @StatusCode/@Custom 同时出现
	UnsupportedDeclarationKind                 // @ApiError 标注在非枚举声明上
	UnknownStatusCode                          // @StatusCode 的标识符不是 net/http 状态码
	UnsupportedFramework                       // framework 参数不是已知的 Web 框架
)

var kindNames = map[Kind]string{
	MalformedAnnotationPayload: "MalformedAnnotationPayload",
	ConflictingAnnotations:     "ConflictingAnnotations",
	UnsupportedDeclarationKind: "UnsupportedDeclarationKind",
	UnknownStatusCode:          "UnknownStatusCode",
	UnsupportedFramework:       "UnsupportedFramework",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code 返回蛇形命名的类型代码，用于 JSON 输出
func (k Kind) Code() string {
	return utils.ToSnakeCase(k.String())
}

// Diagnostic 一条带位置的诊断
type Diagnostic struct {
	Kind    Kind
	Pos     token.Position
	Subject string // 变体名或类型名
	Message string
}

func newDiagnostic(kind Kind, pos token.Position, subject, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:    kind,
		Pos:     pos,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Summary())
}

// Location 实现 diag.Diagnostic
func (d *Diagnostic) Location() token.Position { return d.Pos }

// Code 实现 diag.Diagnostic
func (d *Diagnostic) Code() string { return d.Kind.Code() }

// Summary 实现 diag.Diagnostic
func (d *Diagnostic) Summary() string {
	if d.Subject == "" {
		return d.Message
	}
	return d.Subject + ": " + d.Message
}

// Diagnostics 一组诊断，按发现顺序排列
type Diagnostics []*Diagnostic

func (ds Diagnostics) Error() string {
	return strings.Join(lo.Map(ds, func(d *Diagnostic, _ int) string {
		return d.Error()
	}), "\n")
}

func (ds Diagnostics) Unwrap() []error {
	return lo.Map(ds, func(d *Diagnostic, _ int) error { return d })
}

// Err 没有诊断时返回 nil
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	return ds
}

// Has 是否包含指定类型的诊断
func (ds Diagnostics) Has(kind Kind) bool {
	return lo.ContainsBy(ds, func(d *Diagnostic) bool { return d.Kind == kind })
}

// OfKind 过滤指定类型的诊断
func (ds Diagnostics) OfKind(kind Kind) Diagnostics {
	return lo.Filter(ds, func(d *Diagnostic, _ int) bool { return d.Kind == kind })
}
