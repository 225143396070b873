package apierrgen

import (
	"go/token"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/donutnomad/apierrgen/internal/utils"
)

// DirectiveKind 常量上可识别的注解
type DirectiveKind int

const (
	DirectivePass       DirectiveKind = iota + 1 // @Pass
	DirectiveStatusCode                          // @StatusCode(Ident)
	DirectiveCustom                              // @Custom("text")
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectivePass:
		return "@Pass"
	case DirectiveStatusCode:
		return "@StatusCode"
	case DirectiveCustom:
		return "@Custom"
	default:
		return "@?"
	}
}

// directiveKeywords 归一化后的注解名
var directiveKeywords = map[string]DirectiveKind{
	"pass":       DirectivePass,
	"statuscode": DirectiveStatusCode,
	"custom":     DirectiveCustom,
}

// Directive 解析后的注解
type Directive struct {
	Kind  DirectiveKind
	Ident string // DirectiveStatusCode 的标识符
	Text  string // DirectiveCustom 的标签，已去除引号
	Raw   string // 原始文本，如 @StatusCode(NotFound)
}

// RawDirective 一段挂在常量上的注释，Pos 为所属常量的位置
type RawDirective struct {
	Text string
	Pos  token.Position
}

// payloadExpr 注解括号内的内容：一个标识符或一个字符串字面量
type payloadExpr struct {
	Ident  *string `parser:"  @Ident"`
	String *string `parser:"| @String"`
}

var payloadLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|` + "`[^`]*`"},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{Nd}_]*`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Punct", Pattern: `[^\s\p{L}\p{Nd}_"` + "`" + `]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var payloadParser = participle.MustBuild[payloadExpr](
	participle.Lexer(payloadLexer),
	participle.Elide("Whitespace"),
)

// directiveStart 匹配 @Name
var directiveStart = regexp.MustCompile(`@([\p{L}_][\p{L}\p{Nd}_]*)`)

// ReadDirectives 从一段注释文本中按顺序读取可识别的注解。
// 无法识别的 @Name 会被忽略，其参数不闭合时只跳过名字本身；
// 可识别注解的参数不合法时返回 MalformedAnnotationPayload，
// 位置为 pos，subject 为所属常量名。
func ReadDirectives(text string, pos token.Position, subject string) ([]Directive, Diagnostics) {
	var (
		directives []Directive
		diags      Diagnostics
	)

	for i := 0; i < len(text); {
		loc := directiveStart.FindStringSubmatchIndex(text[i:])
		if loc == nil {
			break
		}
		start, end := i+loc[0], i+loc[1]
		name := text[i+loc[2] : i+loc[3]]

		// 邮箱等 x@y 形式不是注解
		if start > 0 {
			if r, _ := utf8.DecodeLastRuneInString(text[:start]); unicode.IsLetter(r) || unicode.IsDigit(r) {
				i = end
				continue
			}
		}

		kind, known := directiveKeywords[utils.FoldIdent(name)]

		var payload *string
		next := end
		if end < len(text) && text[end] == '(' {
			// 未知注解的参数只在本行内查找
			scope := text
			if !known {
				if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 {
					scope = text[:end+nl]
				}
			}
			body, after, ok := cutPayload(scope, end)
			if !ok {
				if known {
					diags = append(diags, newDiagnostic(MalformedAnnotationPayload, pos, subject,
						"%s 的参数缺少右括号", kind))
				}
				// 只跳过 @Name，后面的注解照常读取
				i = end
				continue
			}
			payload, next = &body, after
		}
		i = next

		if !known {
			continue
		}

		d, err := buildDirective(kind, payload)
		if err != "" {
			diags = append(diags, newDiagnostic(MalformedAnnotationPayload, pos, subject, "%s", err))
			continue
		}
		d.Raw = text[start:next]
		directives = append(directives, d)
	}

	return directives, diags
}

// buildDirective 按注解类型校验参数，失败时返回错误描述
func buildDirective(kind DirectiveKind, payload *string) (Directive, string) {
	d := Directive{Kind: kind}

	if kind == DirectivePass {
		if payload != nil {
			return d, "@Pass 不接受参数"
		}
		return d, ""
	}

	expect := "一个标识符，如 @StatusCode(NotFound)"
	if kind == DirectiveCustom {
		expect = "一个字符串字面量，如 @Custom(\"oops\")"
	}
	if payload == nil || strings.TrimSpace(*payload) == "" {
		return d, kind.String() + " 需要" + expect
	}

	expr, err := payloadParser.ParseString("", *payload)
	if err != nil {
		return d, kind.String() + " 的参数 (" + *payload + ") 无法解析: " + err.Error() + "，需要" + expect
	}

	switch kind {
	case DirectiveStatusCode:
		if expr.Ident == nil {
			return d, kind.String() + " 的参数必须是标识符，需要" + expect
		}
		d.Ident = *expr.Ident
	case DirectiveCustom:
		if expr.String == nil {
			return d, kind.String() + " 的参数必须是字符串字面量，需要" + expect
		}
		text, err := strconv.Unquote(*expr.String)
		if err != nil {
			return d, kind.String() + " 的字符串字面量无效: " + err.Error()
		}
		d.Text = text
	}
	return d, ""
}

// cutPayload 从 text[open] == '(' 开始找到匹配的右括号，字符串中的括号不计入。
// 返回括号内的内容与右括号之后的位置。
func cutPayload(text string, open int) (string, int, bool) {
	depth := 0
	var quote byte
	for i := open; i < len(text); i++ {
		c := text[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return text[open+1 : i], i + 1, true
			}
		}
	}
	return "", len(text), false
}
